package session

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"time"

	"campus-inventory/internal/inventory"
	"campus-inventory/internal/persist"
	"campus-inventory/internal/store"
)

var (
	// ErrNoCampus is returned by device operations before Open.
	ErrNoCampus = errors.New("no campus selected")
	// ErrInvalidCampus is returned for campus names that give no file name.
	ErrInvalidCampus = errors.New("invalid campus name")
)

// DefaultCampuses seeds an empty catalog.
var DefaultCampuses = []string{"zona core", "campus uno", "campus matriz", "sector outsourcing"}

// Config holds session settings.
type Config struct {
	DataDir  string
	Campuses []string
}

// Session is one user's working state: the campus catalog and the device
// store of the selected campus. Device changes stay in memory until Save.
type Session struct {
	cfg     Config
	catalog store.Store
	events  *EventBus
	base    *slog.Logger
	logger  *slog.Logger

	campus string
	file   *persist.File
	inv    *inventory.Store
}

// New creates a session. An empty catalog is seeded with cfg.Campuses, or
// DefaultCampuses when none are configured.
func New(cfg Config, catalog store.Store, events *EventBus, logger *slog.Logger) (*Session, error) {
	s := &Session{
		cfg:     cfg,
		catalog: catalog,
		events:  events,
		base:    logger,
		logger:  logger.With("component", "session"),
	}

	existing, err := catalog.ListCampuses()
	if err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	if len(existing) == 0 {
		seed := cfg.Campuses
		if len(seed) == 0 {
			seed = DefaultCampuses
		}
		for _, name := range seed {
			if _, err := s.AddCampus(name); err != nil && !errors.Is(err, store.ErrExists) {
				return nil, fmt.Errorf("seed campus %q: %w", name, err)
			}
		}
		s.logger.Info("campus catalog seeded", "campuses", len(seed))
	}
	return s, nil
}

// Events returns the session event bus.
func (s *Session) Events() *EventBus {
	return s.events
}

// Campuses lists the catalog in the order campuses were added.
func (s *Session) Campuses() ([]*store.Campus, error) {
	return s.catalog.ListCampuses()
}

// AddCampus registers a campus. Two names that map to the same file are
// treated as the same campus.
func (s *Session) AddCampus(name string) (*store.Campus, error) {
	name = store.NormalizeName(name)
	slug := store.Slug(name)
	if slug == "" {
		return nil, fmt.Errorf("campus %q: %w", name, ErrInvalidCampus)
	}
	campuses, err := s.catalog.ListCampuses()
	if err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	for _, c := range campuses {
		if store.Slug(c.Name) == slug {
			return nil, fmt.Errorf("campus %q: %w", name, store.ErrExists)
		}
	}
	c := &store.Campus{Name: name}
	if err := s.catalog.AddCampus(c); err != nil {
		return nil, err
	}
	s.events.Emit(Event{Type: EventCampusAdded, Campus: c.Name, Data: CampusData{File: s.pathFor(c.Name)}})
	return c, nil
}

// RemoveCampus drops a campus from the catalog once confirm approves it. A
// nil or negative confirm returns inventory.ErrAborted. The campus file is
// left on disk, so adding the campus again brings its devices back. Removing
// the selected campus deselects it.
func (s *Session) RemoveCampus(name string, confirm func(*store.Campus) bool) error {
	c, err := s.catalog.GetCampus(name)
	if err != nil {
		return err
	}
	if confirm == nil || !confirm(c) {
		return fmt.Errorf("remove campus %q: %w", c.Name, inventory.ErrAborted)
	}
	if err := s.catalog.DeleteCampus(c.Name); err != nil {
		return err
	}
	if s.campus == c.Name {
		s.campus, s.file, s.inv = "", nil, nil
	}
	path := s.pathFor(c.Name)
	s.logger.Info("campus removed", "campus", c.Name, "kept", path)
	s.events.Emit(Event{Type: EventCampusRemoved, Campus: c.Name, Data: CampusData{File: path}})
	return nil
}

// Open selects a campus and loads its inventory file, replacing the current
// store. On failure the session keeps what it had.
func (s *Session) Open(campus string) error {
	c, err := s.catalog.GetCampus(campus)
	if err != nil {
		return err
	}
	f := persist.NewFile(s.pathFor(c.Name), s.base)
	inv, err := f.Load()
	if err != nil {
		return fmt.Errorf("open campus %q: %w", c.Name, err)
	}
	s.campus, s.file, s.inv = c.Name, f, inv
	s.logger.Info("campus opened", "campus", c.Name, "devices", inv.Len())
	s.events.Emit(Event{Type: EventLoaded, Campus: c.Name, Data: SaveData{Path: f.Path(), Devices: inv.Len()}})
	return nil
}

func (s *Session) pathFor(campus string) string {
	return filepath.Join(s.cfg.DataDir, store.Slug(campus)+".json")
}

// Campus returns the selected campus name, or "" before Open.
func (s *Session) Campus() string {
	return s.campus
}

func (s *Session) ready() error {
	if s.inv == nil {
		return ErrNoCampus
	}
	return nil
}

func (s *Session) emitDevice(typ EventType, pos int, r inventory.Record) {
	s.events.Emit(Event{
		Type:   typ,
		Campus: s.campus,
		Data:   DeviceData{Position: pos, Device: inventory.ToPersisted(r)},
	})
}

// Add validates r against the selected campus and appends it.
func (s *Session) Add(r inventory.Record) (int, error) {
	if err := s.ready(); err != nil {
		return -1, err
	}
	pos, err := s.inv.Add(r)
	if err != nil {
		return -1, err
	}
	added, _ := s.inv.Get(pos)
	s.logger.Info("device added", "campus", s.campus, "name", added.Name, "position", pos)
	s.emitDevice(EventDeviceAdded, pos, added)
	return pos, nil
}

// Update applies a partial change to the device at pos.
func (s *Session) Update(pos int, m inventory.Mutation) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.inv.Update(pos, m); err != nil {
		return err
	}
	r, _ := s.inv.Get(pos)
	s.logger.Info("device updated", "campus", s.campus, "name", r.Name, "position", pos)
	s.emitDevice(EventDeviceUpdated, pos, r)
	return nil
}

// Remove deletes the device at pos once confirm approves it.
func (s *Session) Remove(pos int, confirm func(inventory.Record) bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	r, err := s.inv.Get(pos)
	if err != nil {
		return err
	}
	if err := s.inv.Remove(pos, confirm); err != nil {
		return err
	}
	s.logger.Info("device removed", "campus", s.campus, "name", r.Name)
	s.emitDevice(EventDeviceRemoved, pos, r)
	return nil
}

// Get returns the device at pos.
func (s *Session) Get(pos int) (inventory.Record, error) {
	if err := s.ready(); err != nil {
		return inventory.Record{}, err
	}
	return s.inv.Get(pos)
}

// FindByName searches the selected campus by name substring.
func (s *Session) FindByName(substr string) ([]inventory.Match, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.inv.FindByName(substr), nil
}

// List yields the devices of the selected campus in insertion order.
func (s *Session) List() (iter.Seq2[int, inventory.Record], error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.inv.List(), nil
}

// Snapshot returns every device of the selected campus, for validator
// context.
func (s *Session) Snapshot() []inventory.Record {
	if s.inv == nil {
		return nil
	}
	return s.inv.Snapshot()
}

// Save writes the selected campus to disk and records the save in the
// catalog. A catalog failure is logged; the inventory file is what counts.
func (s *Session) Save() error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.file.Save(s.inv); err != nil {
		return err
	}
	n := s.inv.Len()
	err := s.catalog.UpdateCampus(s.campus, func(c *store.Campus) error {
		c.LastSaved = time.Now()
		c.DeviceCount = n
		return nil
	})
	if err != nil {
		s.logger.Warn("update campus metadata", "campus", s.campus, "err", err)
	}
	s.logger.Info("inventory saved", "campus", s.campus, "devices", n, "path", s.file.Path())
	s.events.Emit(Event{Type: EventSaved, Campus: s.campus, Data: SaveData{Path: s.file.Path(), Devices: n}})
	return nil
}

// ImportLegacy decodes a file written in the legacy text form and adds each
// device. Blocks that do not decode or validate are reported and skipped.
func (s *Session) ImportLegacy(text string) (added int, errs []error) {
	if err := s.ready(); err != nil {
		return 0, []error{err}
	}
	records, errs := inventory.DecodeAll(text)
	for _, r := range records {
		if r.Kind == "" {
			errs = append(errs, fmt.Errorf("device %q: type: %w", r.Name, inventory.ErrMissingRequiredField))
			continue
		}
		if _, err := s.Add(r); err != nil {
			errs = append(errs, fmt.Errorf("device %q: %w", r.Name, err))
			continue
		}
		added++
	}
	return added, errs
}
