package inventory

import (
	"slices"
	"strings"
	"time"
)

// Kind is the device category. The value is the stored tag; Label gives the
// display form.
type Kind string

const (
	KindPC       Kind = "pc"
	KindServer   Kind = "server"
	KindRouter   Kind = "router"
	KindSwitch   Kind = "switch"
	KindFirewall Kind = "firewall"
	KindPrinter  Kind = "printer"
)

var kindLabels = map[Kind]string{
	KindPC:       "PC",
	KindServer:   "Server",
	KindRouter:   "Router",
	KindSwitch:   "Switch",
	KindFirewall: "Firewall",
	KindPrinter:  "Printer",
}

// Kinds lists every kind in menu order.
var Kinds = []Kind{KindPC, KindServer, KindRouter, KindSwitch, KindFirewall, KindPrinter}

// Label returns the display label, or the raw tag for unknown kinds.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// HasLayer reports whether a hierarchy layer is meaningful for k.
func (k Kind) HasLayer() bool {
	return k == KindRouter || k == KindSwitch
}

// ParseKind accepts a tag or a label in any case. The original tool's
// "Switch Multicapa" is read as a switch.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "switch multicapa" {
		return KindSwitch, true
	}
	k := Kind(s)
	return k, k.Valid()
}

// Layer is the position of a router or switch in the campus hierarchy.
type Layer string

const (
	LayerCore         Layer = "Core"
	LayerDistribution Layer = "Distribution"
	LayerAccess       Layer = "Access"
)

// Layers lists every layer top-down.
var Layers = []Layer{LayerCore, LayerDistribution, LayerAccess}

var layerAliases = map[string]Layer{
	"core":         LayerCore,
	"nucleo":       LayerCore,
	"núcleo":       LayerCore,
	"distribution": LayerDistribution,
	"distribucion": LayerDistribution,
	"distribución": LayerDistribution,
	"access":       LayerAccess,
	"acceso":       LayerAccess,
}

// ParseLayer accepts English or Spanish layer names in any case.
func ParseLayer(s string) (Layer, bool) {
	l, ok := layerAliases[strings.ToLower(strings.TrimSpace(s))]
	return l, ok
}

// Service is a network service tag from the fixed vocabulary.
type Service string

const (
	ServiceDNS      Service = "DNS"
	ServiceDHCP     Service = "DHCP"
	ServiceWeb      Service = "Web"
	ServiceDatabase Service = "Database"
	ServiceMail     Service = "Mail"
	ServiceVPN      Service = "VPN"
)

// Services lists the vocabulary in menu order.
var Services = []Service{ServiceDNS, ServiceDHCP, ServiceWeb, ServiceDatabase, ServiceMail, ServiceVPN}

// ParseService matches a tag case-insensitively and returns its canonical
// spelling.
func ParseService(s string) (Service, bool) {
	s = strings.TrimSpace(s)
	for _, svc := range Services {
		if strings.EqualFold(s, string(svc)) {
			return svc, true
		}
	}
	return "", false
}

// Record is one device in a campus inventory.
type Record struct {
	ID           string
	Kind         Kind
	Name         string
	IP           string
	Layer        Layer
	Services     []Service
	LastModified time.Time

	// Extra holds persisted labels this version does not model.
	Extra map[string]string
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	cp := r
	cp.Services = slices.Clone(r.Services)
	if r.Extra != nil {
		cp.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}

// HasService reports whether r lists svc.
func (r Record) HasService(svc Service) bool {
	for _, s := range r.Services {
		if strings.EqualFold(string(s), string(svc)) {
			return true
		}
	}
	return false
}

func serviceStrings(svcs []Service) []string {
	out := make([]string, len(svcs))
	for i, s := range svcs {
		out[i] = string(s)
	}
	return out
}
