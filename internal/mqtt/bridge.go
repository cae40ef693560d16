//go:build !no_mqtt

package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"campus-inventory/internal/session"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Bridge mirrors inventory changes to an MQTT broker: one retained message
// per device and a stream of change events per campus.
type Bridge struct {
	client pahomqtt.Client
	events *session.EventBus
	prefix string
	logger *slog.Logger
	unsub  func()
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(events *session.EventBus, cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{
		events: events,
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "campus-inventory"
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetWill(bridgeStateTopic(cfg.TopicPrefix), "offline", 1, true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			c.Publish(bridgeStateTopic(b.prefix), 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to inventory events and begins publishing.
func (b *Bridge) Start() {
	b.unsub = b.events.OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publish(bridgeStateTopic(b.prefix), []byte("offline"), true)
	b.client.Disconnect(500)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) handleEvent(event session.Event) {
	for _, msg := range buildMessages(b.prefix, event) {
		b.publish(msg.Topic, msg.Payload, msg.Retained)
	}
}

// publish waits for delivery so a short-lived command does not exit with
// messages still queued.
func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		b.logger.Warn("MQTT publish timeout", "topic", topic)
	} else if err := token.Error(); err != nil {
		b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
	}
}
