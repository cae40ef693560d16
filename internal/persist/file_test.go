package persist

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"campus-inventory/internal/inventory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFile(t *testing.T) *File {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "campus", "zona-core.json"), testLogger())
}

func sampleStore(t *testing.T) *inventory.Store {
	t.Helper()
	s := inventory.NewStore()
	for _, r := range []inventory.Record{
		{Kind: inventory.KindRouter, Name: "edge-1", IP: "10.0.0.1", Layer: inventory.LayerCore, Services: []inventory.Service{inventory.ServiceVPN}},
		{Kind: inventory.KindSwitch, Name: "acc-sw1", Layer: inventory.LayerAccess},
		{Kind: inventory.KindPrinter, Name: "prn-2", IP: "10.0.5.20"},
		{Kind: inventory.KindServer, Name: "srv-mail", Services: []inventory.Service{inventory.ServiceMail, inventory.ServiceDNS}},
	} {
		if _, err := s.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func collect(s *inventory.Store) []inventory.Record {
	var out []inventory.Record
	for _, r := range s.List() {
		r.LastModified = time.Time{}
		out = append(out, r)
	}
	return out
}

func TestLoadMissingFile(t *testing.T) {
	f := newTestFile(t)
	s, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newTestFile(t)
	stamp := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	f.now = func() time.Time { return stamp }

	s := sampleStore(t)
	if err := f.Save(s); err != nil {
		t.Fatal(err)
	}

	for _, r := range s.List() {
		if !r.LastModified.Equal(stamp) {
			t.Errorf("%s lastModified = %v, want %v", r.Name, r.LastModified, stamp)
		}
	}

	loaded, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(collect(loaded), collect(s)) {
		t.Errorf("loaded = %+v\nwant %+v", collect(loaded), collect(s))
	}
	r, _ := loaded.Get(0)
	if !r.LastModified.Equal(stamp) {
		t.Errorf("loaded lastModified = %v, want %v", r.LastModified, stamp)
	}

	// A second save of the loaded store produces the same bytes.
	first, _ := os.ReadFile(f.Path())
	if err := f.Save(loaded); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(f.Path())
	if string(first) != string(second) {
		t.Errorf("resave differs:\n%s\n%s", first, second)
	}
}

func TestSaveCrashKeepsPreviousFile(t *testing.T) {
	f := newTestFile(t)
	s := sampleStore(t)
	if err := f.Save(s); err != nil {
		t.Fatal(err)
	}
	before, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Add(inventory.Record{Kind: inventory.KindPC, Name: "late-pc"}); err != nil {
		t.Fatal(err)
	}
	crash := errors.New("power lost")
	f.write = func(tmp *os.File, data []byte) error {
		if _, err := tmp.Write(data[:len(data)/2]); err != nil {
			return err
		}
		return crash
	}

	err = f.Save(s)
	if !errors.Is(err, ErrIO) || !errors.Is(err, crash) {
		t.Fatalf("Save = %v, want ErrIO wrapping crash", err)
	}

	after, err := f.Load()
	if err != nil {
		t.Fatalf("load after crash: %v", err)
	}
	if !reflect.DeepEqual(collect(after), collect(before)) {
		t.Errorf("file changed by failed save:\n%+v\nwant %+v", collect(after), collect(before))
	}

	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory has %v, want only the inventory file", names)
	}
}

func TestLoadSkipsMalformedEntries(t *testing.T) {
	f := newTestFile(t)
	if err := os.MkdirAll(filepath.Dir(f.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `[
		{"TYPE": "router", "NAME": "r1", "IP": "10.0.0.1"},
		{"TYPE": "router", "NAME": 42},
		"not an object",
		{"TYPE": "toaster", "NAME": "t1"},
		{"TYPE": "pc"},
		{"TYPE": "pc", "NAME": "R1"},
		{"TIPO": "Switch", "NOMBRE": "sw1", "CAPA": "Acceso", "COLOR": "blue"}
	]`
	if err := os.WriteFile(f.Path(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	sw, _ := s.Get(1)
	if sw.Name != "sw1" || sw.Layer != inventory.LayerAccess || sw.Extra["COLOR"] != "blue" {
		t.Errorf("second record = %+v", sw)
	}
}

func TestUnmarshalWarnings(t *testing.T) {
	records, warnings, err := Unmarshal([]byte(`[{"TYPE":"pc","NAME":"a"},{"NAME":"b"},[]]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
	if warnings[0].Index != 1 || !errors.Is(warnings[0].Err, inventory.ErrMissingRequiredField) {
		t.Errorf("warning 0 = %v", warnings[0])
	}
	if warnings[1].Index != 2 || !errors.Is(warnings[1].Err, inventory.ErrParse) {
		t.Errorf("warning 1 = %v", warnings[1])
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	f := newTestFile(t)
	if err := os.MkdirAll(filepath.Dir(f.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.Path(), []byte(`{"devices": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Load(); !errors.Is(err, ErrIO) {
		t.Fatalf("Load = %v, want ErrIO", err)
	}
}
