package session

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"campus-inventory/internal/inventory"
	"campus-inventory/internal/persist"
	"campus-inventory/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSession(t *testing.T, cfg Config) (*Session, *store.BoltStore) {
	t.Helper()
	dir := t.TempDir()
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(dir, "data")
	}
	db, err := store.NewBoltStore(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	s, err := New(cfg, db, NewEventBus(logger), logger)
	if err != nil {
		t.Fatal(err)
	}
	return s, db
}

func recordEvents(s *Session) *[]Event {
	var got []Event
	s.Events().OnAll(func(e Event) { got = append(got, e) })
	return &got
}

func TestNewSeedsDefaultCampuses(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	list, err := s.Campuses()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(DefaultCampuses) {
		t.Fatalf("campuses = %d, want %d", len(list), len(DefaultCampuses))
	}
	for i, c := range list {
		if c.Name != DefaultCampuses[i] {
			t.Errorf("campus[%d] = %q, want %q", i, c.Name, DefaultCampuses[i])
		}
	}
}

func TestNewSeedsConfiguredCampuses(t *testing.T) {
	s, _ := newTestSession(t, Config{Campuses: []string{"Norte", "Sur"}})
	list, _ := s.Campuses()
	if len(list) != 2 || list[0].Name != "norte" || list[1].Name != "sur" {
		t.Errorf("campuses = %v", list)
	}
}

func TestAddCampus(t *testing.T) {
	s, _ := newTestSession(t, Config{Campuses: []string{"zona core"}})
	events := recordEvents(s)

	c, err := s.AddCampus("  Campus Norte ")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "campus norte" {
		t.Errorf("name = %q", c.Name)
	}
	if _, err := s.AddCampus("zona-core"); !errors.Is(err, store.ErrExists) {
		t.Errorf("same file name = %v, want ErrExists", err)
	}
	if _, err := s.AddCampus("!!!"); !errors.Is(err, ErrInvalidCampus) {
		t.Errorf("symbol name = %v, want ErrInvalidCampus", err)
	}
	if len(*events) != 1 || (*events)[0].Type != EventCampusAdded {
		t.Errorf("events = %+v", *events)
	}
}

func TestRemoveCampus(t *testing.T) {
	s, db := newTestSession(t, Config{})
	if err := s.Open("campus uno"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(inventory.Record{Kind: inventory.KindPC, Name: "pc-1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	events := recordEvents(s)

	if err := s.RemoveCampus("Campus Uno", nil); !errors.Is(err, inventory.ErrAborted) {
		t.Fatalf("nil confirm = %v, want ErrAborted", err)
	}
	var asked string
	decline := func(c *store.Campus) bool { asked = c.Name; return false }
	if err := s.RemoveCampus("campus uno", decline); !errors.Is(err, inventory.ErrAborted) {
		t.Fatalf("declined = %v, want ErrAborted", err)
	}
	if asked != "campus uno" {
		t.Errorf("confirm saw %q", asked)
	}
	if _, err := db.GetCampus("campus uno"); err != nil {
		t.Fatalf("declined remove dropped the campus: %v", err)
	}

	if err := s.RemoveCampus("campus uno", func(*store.Campus) bool { return true }); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetCampus("campus uno"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCampus after remove = %v, want ErrNotFound", err)
	}
	if s.Campus() != "" {
		t.Errorf("removed campus still selected: %q", s.Campus())
	}
	if _, err := s.List(); !errors.Is(err, ErrNoCampus) {
		t.Errorf("List after remove = %v, want ErrNoCampus", err)
	}
	if len(*events) != 1 || (*events)[0].Type != EventCampusRemoved {
		t.Errorf("events = %+v", *events)
	}
	if err := s.RemoveCampus("campus uno", func(*store.Campus) bool { return true }); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second remove = %v, want ErrNotFound", err)
	}

	// The file stays, so re-adding the campus restores its devices.
	if _, err := os.Stat(filepath.Join(s.cfg.DataDir, "campus-uno.json")); err != nil {
		t.Fatalf("campus file removed: %v", err)
	}
	if _, err := s.AddCampus("campus uno"); err != nil {
		t.Fatal(err)
	}
	if err := s.Open("campus uno"); err != nil {
		t.Fatal(err)
	}
	if r, err := s.Get(0); err != nil || r.Name != "pc-1" {
		t.Errorf("device after re-add = %+v, %v", r, err)
	}
}

func TestPersistLogsCarryOneComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	dir := t.TempDir()
	db, err := store.NewBoltStore(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s, err := New(Config{DataDir: dir}, db, NewEventBus(logger), logger)
	if err != nil {
		t.Fatal(err)
	}
	doc := `[{"TYPE":"pc","NAME":"a"},{"NAME":"no-type"}]`
	if err := os.WriteFile(filepath.Join(dir, "zona-core.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Open("zona core"); err != nil {
		t.Fatal(err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a warning for the skipped entry")
	}
	if n := strings.Count(line, `"component"`); n != 1 {
		t.Errorf("component appears %d times in %s", n, line)
	}
	if !strings.Contains(line, `"component":"persist"`) {
		t.Errorf("warning not tagged persist: %s", line)
	}
}

func TestOperationsNeedCampus(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	if _, err := s.Add(inventory.Record{Kind: inventory.KindPC, Name: "pc"}); !errors.Is(err, ErrNoCampus) {
		t.Errorf("Add = %v, want ErrNoCampus", err)
	}
	if err := s.Save(); !errors.Is(err, ErrNoCampus) {
		t.Errorf("Save = %v, want ErrNoCampus", err)
	}
	if _, err := s.List(); !errors.Is(err, ErrNoCampus) {
		t.Errorf("List = %v, want ErrNoCampus", err)
	}
	if err := s.Open("nowhere"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Open unknown = %v, want ErrNotFound", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, db := newTestSession(t, Config{})
	if err := s.Open("Zona Core"); err != nil {
		t.Fatal(err)
	}
	events := recordEvents(s)

	pos, err := s.Add(inventory.Record{Kind: inventory.KindRouter, Name: "edge-1", IP: "10.0.0.1", Layer: inventory.LayerCore})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(inventory.Record{Kind: inventory.KindSwitch, Name: "sw-1"}); err != nil {
		t.Fatal(err)
	}
	ip := "10.0.0.2"
	if err := s.Update(1, inventory.Mutation{IP: &ip}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	wantTypes := []EventType{EventDeviceAdded, EventDeviceAdded, EventDeviceUpdated, EventSaved}
	if len(*events) != len(wantTypes) {
		t.Fatalf("events = %+v", *events)
	}
	for i, e := range *events {
		if e.Type != wantTypes[i] || e.Campus != "zona core" {
			t.Errorf("event[%d] = %s/%s, want %s/zona core", i, e.Type, e.Campus, wantTypes[i])
		}
	}
	added := (*events)[0].Data.(DeviceData)
	if added.Position != pos || added.Device[inventory.LabelName] != "edge-1" {
		t.Errorf("added payload = %+v", added)
	}

	c, err := db.GetCampus("zona core")
	if err != nil {
		t.Fatal(err)
	}
	if c.DeviceCount != 2 || c.LastSaved.IsZero() {
		t.Errorf("campus metadata = %+v", c)
	}

	// The file name follows the campus slug.
	if _, err := os.Stat(filepath.Join(s.cfg.DataDir, "zona-core.json")); err != nil {
		t.Errorf("inventory file: %v", err)
	}

	// Unsaved changes are lost on reopen.
	if err := s.Remove(0, func(inventory.Record) bool { return true }); err != nil {
		t.Fatal(err)
	}
	if err := s.Open("zona core"); err != nil {
		t.Fatal(err)
	}
	matches, err := s.FindByName("EDGE")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("matches after reopen = %d, want 1", len(matches))
	}

	// Campuses are independent.
	if err := s.Open("campus uno"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(inventory.Record{Kind: inventory.KindRouter, Name: "edge-1", IP: "10.0.0.1"}); err != nil {
		t.Errorf("same name in another campus: %v", err)
	}
}

func TestOpenKeepsStateOnLoadFailure(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	if err := s.Open("zona core"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(inventory.Record{Kind: inventory.KindPC, Name: "pc-1"}); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(s.cfg.DataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.cfg.DataDir, "campus-uno.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Open("campus uno"); !errors.Is(err, persist.ErrIO) {
		t.Fatalf("Open = %v, want ErrIO", err)
	}
	if s.Campus() != "zona core" {
		t.Errorf("campus = %q, want zona core", s.Campus())
	}
	if _, err := s.Get(0); err != nil {
		t.Errorf("in-memory device lost: %v", err)
	}
}

func TestRemoveDeclined(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	if err := s.Open("zona core"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(inventory.Record{Kind: inventory.KindPC, Name: "pc-1"}); err != nil {
		t.Fatal(err)
	}
	events := recordEvents(s)
	if err := s.Remove(0, func(inventory.Record) bool { return false }); !errors.Is(err, inventory.ErrAborted) {
		t.Fatalf("Remove = %v, want ErrAborted", err)
	}
	if len(*events) != 0 {
		t.Errorf("declined remove emitted %+v", *events)
	}
}

func TestImportLegacy(t *testing.T) {
	s, _ := newTestSession(t, Config{})
	if err := s.Open("campus matriz"); err != nil {
		t.Fatal(err)
	}
	legacy := "\n---------------------------------\n" +
		"Router: r1\nIP: 10.1.0.1\nJerarquía: Núcleo\nServicios: Enrutamiento\n" +
		"---------------------------------\n" +
		"\n---------------------------------\n" +
		"Switch: sw1\nIP: 10.1.0.1\nJerarquía: Acceso\nServicios: Datos, VLAN\n" +
		"---------------------------------\n" +
		"\n---------------------------------\n" +
		"Desconocido: x\nIP: 10.1.0.3\n" +
		"---------------------------------\n"

	added, errs := s.ImportLegacy(legacy)
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want 2", errs)
	}
	if !errors.Is(errs[0], inventory.ErrMissingRequiredField) {
		t.Errorf("errs[0] = %v", errs[0])
	}
	if !errors.Is(errs[1], inventory.ErrDuplicateIP) {
		t.Errorf("errs[1] = %v", errs[1])
	}
	r, err := s.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "r1" || r.Layer != inventory.LayerCore {
		t.Errorf("imported = %+v", r)
	}
}
