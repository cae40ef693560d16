package inventory

import (
	"strings"
	"time"
)

// persistedAliases maps labels written by the old tool to canonical labels.
var persistedAliases = map[string]string{
	"TIPO":      LabelType,
	"NOMBRE":    LabelName,
	"CAPA":      LabelLayer,
	"SERVICIOS": LabelServices,
}

// persistedValue returns the value stored under label, or under its old
// alias when the canonical key is absent.
func persistedValue(m map[string]string, label string) (string, bool) {
	if v, ok := m[label]; ok {
		return v, true
	}
	for alias, canon := range persistedAliases {
		if canon == label {
			if v, ok := m[alias]; ok {
				return v, true
			}
		}
	}
	return "", false
}

// ToPersisted flattens r into the label-keyed form written to disk. Absent
// optional fields have no key.
func ToPersisted(r Record) map[string]string {
	m := make(map[string]string, 7+len(r.Extra))
	for k, v := range r.Extra {
		m[k] = v
	}
	if r.ID != "" {
		m[LabelID] = r.ID
	}
	m[LabelType] = string(r.Kind)
	m[LabelName] = r.Name
	if r.IP != "" {
		m[LabelIP] = r.IP
	}
	if r.Layer != "" {
		m[LabelLayer] = string(r.Layer)
	}
	if len(r.Services) > 0 {
		m[LabelServices] = strings.Join(serviceStrings(r.Services), ",")
	}
	if !r.LastModified.IsZero() {
		m[LabelLastModified] = r.LastModified.UTC().Format(time.RFC3339Nano)
	}
	return m
}

// FromPersisted is the inverse of ToPersisted. Unknown labels are kept in
// Extra so the entry is written back unchanged. Fields are checked in label
// order, so the first bad field is the one reported.
func FromPersisted(m map[string]string) (Record, error) {
	var r Record
	r.ID = m[LabelID]

	if v, ok := persistedValue(m, LabelType); ok {
		k, ok := ParseKind(v)
		if !ok {
			return Record{}, fieldErr("type", v, ErrParse)
		}
		r.Kind = k
	}
	r.Name, _ = persistedValue(m, LabelName)
	r.IP = m[LabelIP]
	if v, _ := persistedValue(m, LabelLayer); v != "" {
		l, ok := ParseLayer(v)
		if !ok {
			return Record{}, fieldErr("layer", v, ErrParse)
		}
		r.Layer = l
	}
	if v, _ := persistedValue(m, LabelServices); v != "" {
		tags := strings.Split(v, ",")
		if err := ValidateServices(tags); err != nil {
			return Record{}, err
		}
		for _, t := range tags {
			svc, _ := ParseService(t)
			r.Services = append(r.Services, svc)
		}
	}
	if v, ok := m[LabelLastModified]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Record{}, fieldErr("lastModified", v, ErrParse)
		}
		r.LastModified = t
	}

	for key, v := range m {
		if isPersistedLabel(key) {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[key] = v
	}

	if r.Name == "" {
		return Record{}, fieldErr("name", "", ErrMissingRequiredField)
	}
	if r.Kind == "" {
		return Record{}, fieldErr("type", "", ErrMissingRequiredField)
	}
	return r, nil
}

func isPersistedLabel(key string) bool {
	switch key {
	case LabelID, LabelType, LabelName, LabelIP, LabelLayer, LabelServices, LabelLastModified:
		return true
	}
	_, ok := persistedAliases[key]
	return ok
}
