package inventory

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Labels anchoring each field in the legacy text form and keying the
// persisted form.
const (
	LabelID       = "ID"
	LabelType     = "TYPE"
	LabelName     = "NAME"
	LabelIP       = "IP"
	LabelLayer    = "LAYER"
	LabelServices = "SERVICES"

	LabelLastModified = "lastModified"
)

// Border frames a record in the legacy text form.
const Border = "---------------------------------"

// textLabels maps each field to the labels recognised when decoding, in
// priority order. The Spanish forms come from files written by the old tool.
var textLabels = []struct {
	field  string
	labels []string
}{
	{LabelType, []string{"TYPE", "TIPO"}},
	{LabelName, []string{"NAME", "NOMBRE"}},
	{LabelIP, []string{"IP"}},
	{LabelLayer, []string{"LAYER", "CAPA", "JERARQUÍA", "JERARQUíA", "JERARQUIA"}},
	{LabelServices, []string{"SERVICES", "SERVICIOS"}},
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

// Encode renders r as a bordered block with one labelled field per line.
// Absent optional fields are left out.
func Encode(r Record) string {
	var b strings.Builder
	b.WriteString(Border + "\n")
	fmt.Fprintf(&b, "%s: %s\n", LabelType, r.Kind.Label())
	fmt.Fprintf(&b, "%s: %s\n", LabelName, r.Name)
	if r.IP != "" {
		fmt.Fprintf(&b, "%s: %s\n", LabelIP, r.IP)
	}
	if r.Layer != "" {
		fmt.Fprintf(&b, "%s: %s\n", LabelLayer, r.Layer)
	}
	if len(r.Services) > 0 {
		fmt.Fprintf(&b, "%s: %s\n", LabelServices, strings.Join(serviceStrings(r.Services), ", "))
	}
	b.WriteString(Border + "\n")
	return b.String()
}

// StripDecoration removes terminal escape sequences from s. Text that is
// not valid UTF-8 is read as Windows-1252 first.
func StripDecoration(s string) string {
	return ansiEscape.ReplaceAllString(toUTF8(s), "")
}

func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	if out, err := charmap.Windows1252.NewDecoder().String(s); err == nil {
		return out
	}
	return strings.ToValidUTF8(s, "")
}

func isDecoration(c rune) bool {
	return !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '.' && c != '-'
}

// asciiUpper upper-cases ASCII letters byte by byte so offsets into the
// result are offsets into s.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// labelValue finds label in line and returns the text after the first colon
// that follows it, with decoration trimmed.
func labelValue(line, upper, label string) (string, bool) {
	from := 0
	for {
		i := strings.Index(upper[from:], label)
		if i < 0 {
			return "", false
		}
		i += from
		from = i + len(label)
		if i > 0 {
			prev := []rune(line[:i])
			if unicode.IsLetter(prev[len(prev)-1]) {
				continue
			}
		}
		rest := line[i+len(label):]
		c := strings.IndexByte(rest, ':')
		if c < 0 || strings.TrimFunc(rest[:c], isDecoration) != "" {
			continue
		}
		return strings.TrimFunc(rest[c+1:], isDecoration), true
	}
}

// Decode rebuilds a record from a legacy text block. Labels are located by
// substring search and the first match wins. Decoration around labels and
// values is ignored, as are unknown lines and unrecognised values. Only the
// name is required.
func Decode(text string) (Record, error) {
	values := make(map[string]string, len(textLabels))
	lines := strings.Split(StripDecoration(text), "\n")
	for _, line := range lines {
		upper := asciiUpper(line)
		for _, tl := range textLabels {
			if _, done := values[tl.field]; done {
				continue
			}
			for _, label := range tl.labels {
				if v, ok := labelValue(line, upper, label); ok {
					values[tl.field] = v
					break
				}
			}
		}
	}

	var r Record
	name, ok := values[LabelName]
	if !ok {
		r.Kind, name, ok = legacyHeader(lines)
	}
	if !ok || name == "" {
		return Record{}, fieldErr("name", "", ErrMissingRequiredField)
	}
	r.Name = name

	if v, ok := values[LabelType]; ok {
		if k, ok := ParseKind(v); ok {
			r.Kind = k
		}
	}
	r.IP = values[LabelIP]
	if l, ok := ParseLayer(values[LabelLayer]); ok {
		r.Layer = l
	}
	r.Services = splitServices(values[LabelServices])
	return r, nil
}

// legacyHeader reads the "<Kind>: <name>" line the old tool wrote in place
// of separate type and name fields.
func legacyHeader(lines []string) (Kind, string, bool) {
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, isDecoration)
		before, after, found := strings.Cut(trimmed, ":")
		if !found {
			continue
		}
		if k, ok := ParseKind(before); ok {
			return k, strings.TrimFunc(after, isDecoration), true
		}
	}
	return "", "", false
}

// splitServices accepts spaces, commas or both as delimiters. Unknown tags
// and repeats are dropped.
func splitServices(v string) []Service {
	fields := strings.FieldsFunc(v, func(c rune) bool {
		return c == ',' || unicode.IsSpace(c)
	})
	var out []Service
	for _, f := range fields {
		svc, ok := ParseService(strings.TrimFunc(f, isDecoration))
		if !ok {
			continue
		}
		dup := false
		for _, s := range out {
			if s == svc {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, svc)
		}
	}
	return out
}

func isBorderLine(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 3 {
		return false
	}
	for _, c := range line {
		if !strings.ContainsRune("-=+*_─━═┌┐└┘├┤", c) {
			return false
		}
	}
	return true
}

// DecodeAll splits a legacy file into bordered blocks and decodes each one.
// A block that fails is reported in errs and does not stop the others.
func DecodeAll(text string) (records []Record, errs []error) {
	var block []string
	n := 0
	flush := func() {
		if strings.TrimSpace(strings.Join(block, "")) == "" {
			block = block[:0]
			return
		}
		n++
		r, err := Decode(strings.Join(block, "\n"))
		if err != nil {
			errs = append(errs, fmt.Errorf("block %d: %w", n, err))
		} else {
			records = append(records, r)
		}
		block = block[:0]
	}
	for _, line := range strings.Split(StripDecoration(text), "\n") {
		if isBorderLine(line) {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	return records, errs
}
