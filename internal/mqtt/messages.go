package mqtt

import (
	"encoding/json"

	"campus-inventory/internal/inventory"
	"campus-inventory/internal/session"
	"campus-inventory/internal/store"
)

type message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

func bridgeStateTopic(prefix string) string {
	return prefix + "/bridge/state"
}

func campusTopic(prefix, campus string) string {
	return prefix + "/" + store.Slug(campus)
}

// buildMessages maps an inventory event to the MQTT messages it produces.
// Device events also set (or clear, on removal) the retained device state,
// keyed by the device ID so renames and position shifts keep the topic.
func buildMessages(prefix string, event session.Event) []message {
	if event.Campus == "" {
		return nil
	}
	base := campusTopic(prefix, event.Campus)
	msgs := []message{{Topic: base + "/events", Payload: mustJSON(event)}}

	data, ok := event.Data.(session.DeviceData)
	if !ok {
		return msgs
	}
	id := data.Device[inventory.LabelID]
	if id == "" {
		return msgs
	}
	device := message{Topic: base + "/devices/" + id, Retained: true}
	switch event.Type {
	case session.EventDeviceAdded, session.EventDeviceUpdated:
		device.Payload = mustJSON(data.Device)
	case session.EventDeviceRemoved:
		// An empty retained payload deletes the broker's copy.
		device.Payload = []byte{}
	default:
		return msgs
	}
	return append(msgs, device)
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
