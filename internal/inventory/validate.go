package inventory

import (
	"net/netip"
	"strconv"
	"strings"
)

// MaxNameLen is the longest accepted device name.
const MaxNameLen = 30

// reservedPrefixes are IPv4 blocks never assigned to a device.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

func validNameChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '.'
}

// ValidateName checks charset, length and case-insensitive uniqueness
// against existing.
func ValidateName(name string, existing []Record) error {
	if name == "" {
		return fieldErr("name", name, ErrMissingRequiredField)
	}
	for _, c := range name {
		if !validNameChar(c) {
			return fieldErr("name", name, ErrInvalidCharset)
		}
	}
	if len(name) > MaxNameLen {
		return fieldErr("name", name, ErrTooLong)
	}
	for _, r := range existing {
		if strings.EqualFold(r.Name, name) {
			return fieldErr("name", name, ErrDuplicateName)
		}
	}
	return nil
}

// ParseIPv4 parses four dot-separated decimal octets. Leading zeros are
// allowed; the returned address is canonical.
func ParseIPv4(s string) (netip.Addr, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return netip.Addr{}, false
	}
	var b [4]byte
	for i, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return netip.Addr{}, false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return netip.Addr{}, false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return netip.Addr{}, false
		}
		b[i] = byte(n)
	}
	return netip.AddrFrom4(b), true
}

func isReserved(addr netip.Addr) bool {
	if addr.As4()[3] == 255 {
		return true
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ValidateIP checks syntax, reserved ranges and uniqueness against existing.
// The empty string means "no address" and always passes.
func ValidateIP(ip string, existing []Record) error {
	if ip == "" {
		return nil
	}
	addr, ok := ParseIPv4(ip)
	if !ok {
		return fieldErr("ip", ip, ErrMalformedIP)
	}
	if isReserved(addr) {
		return fieldErr("ip", ip, ErrReservedRange)
	}
	for _, r := range existing {
		if r.IP == "" {
			continue
		}
		if other, ok := ParseIPv4(r.IP); ok && other == addr {
			return fieldErr("ip", ip, ErrDuplicateIP)
		}
	}
	return nil
}

// ValidateServices checks vocabulary membership and rejects repeats.
// Matching ignores case.
func ValidateServices(tags []string) error {
	seen := make(map[Service]bool, len(tags))
	for _, t := range tags {
		svc, ok := ParseService(t)
		if !ok {
			return fieldErr("services", t, ErrUnknownService)
		}
		if seen[svc] {
			return fieldErr("services", t, ErrDuplicateService)
		}
		seen[svc] = true
	}
	return nil
}

// ValidateLayer rejects a layer on kinds that have none.
func ValidateLayer(kind Kind, layer Layer) error {
	if layer == "" {
		return nil
	}
	if _, ok := ParseLayer(string(layer)); !ok {
		return fieldErr("layer", string(layer), ErrParse)
	}
	if !kind.HasLayer() {
		return fieldErr("layer", string(layer), ErrLayerNotAllowed)
	}
	return nil
}

// ValidateRecord runs every field validator on r.
func ValidateRecord(r Record, existing []Record) error {
	if !r.Kind.Valid() {
		return fieldErr("kind", string(r.Kind), ErrParse)
	}
	if err := ValidateName(r.Name, existing); err != nil {
		return err
	}
	if err := ValidateIP(r.IP, existing); err != nil {
		return err
	}
	if err := ValidateLayer(r.Kind, r.Layer); err != nil {
		return err
	}
	return ValidateServices(serviceStrings(r.Services))
}
