package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"campus-inventory/internal/inventory"
)

// ErrIO wraps every read or write failure of the inventory file.
var ErrIO = errors.New("inventory file i/o")

// Warning describes one entry that Load skipped.
type Warning struct {
	Index int
	Err   error
}

func (w Warning) String() string {
	return fmt.Sprintf("entry %d: %v", w.Index, w.Err)
}

// Marshal encodes records as a JSON array of persisted maps, with
// lastModified set to now on each.
func Marshal(records []inventory.Record, now time.Time) ([]byte, error) {
	entries := make([]map[string]string, 0, len(records))
	for _, r := range records {
		r.LastModified = now
		entries = append(entries, inventory.ToPersisted(r))
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode inventory: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a JSON array of persisted maps. Entries that are not
// flat string maps, or that FromPersisted rejects, are returned as warnings
// and skipped. Only a document that is not an array is an error.
func Unmarshal(data []byte) ([]inventory.Record, []Warning, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: decode inventory: %v", inventory.ErrParse, err)
	}
	var (
		records  []inventory.Record
		warnings []Warning
	)
	for i, entry := range raw {
		var m map[string]string
		if err := json.Unmarshal(entry, &m); err != nil {
			warnings = append(warnings, Warning{Index: i, Err: fmt.Errorf("%w: %v", inventory.ErrParse, err)})
			continue
		}
		r, err := inventory.FromPersisted(m)
		if err != nil {
			warnings = append(warnings, Warning{Index: i, Err: err})
			continue
		}
		records = append(records, r)
	}
	return records, warnings, nil
}

// File persists one inventory store as a JSON document.
type File struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	// write is the step that fills the temporary file; tests replace it to
	// simulate a crash part way through.
	write func(f *os.File, data []byte) error
}

// NewFile returns a File for path. The directory is created on first Save.
func NewFile(path string, logger *slog.Logger) *File {
	return &File{
		path:   path,
		logger: logger.With("component", "persist", "path", path),
		now:    time.Now,
		write: func(f *os.File, data []byte) error {
			_, err := f.Write(data)
			return err
		},
	}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Save writes every record of s to a temporary file next to the target and
// renames it into place. The previous file survives any failure. On success
// the records in s carry the new lastModified stamp.
func (f *File) Save(s *inventory.Store) error {
	now := f.now().UTC()
	data, err := Marshal(s.Snapshot(), now)
	if err != nil {
		return err
	}
	if err := f.writeAtomic(data); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	s.Stamp(now)
	f.logger.Debug("inventory saved", "devices", s.Len())
	return nil
}

func (f *File) writeAtomic(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			_ = os.Remove(tmpPath) // best-effort cleanup
		}
	}()

	if err := f.write(tmp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}

// Load reads the file into a new store. A missing file gives an empty
// store. Malformed entries and entries breaking uniqueness against earlier
// ones are skipped and logged.
func (f *File) Load() (*inventory.Store, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.logger.Debug("no inventory file, starting empty")
			return inventory.NewStore(), nil
		}
		return nil, fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	records, warnings, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	for _, w := range warnings {
		f.logger.Warn("skipping inventory entry", "index", w.Index, "err", w.Err)
	}
	s, rejected := inventory.Restore(records)
	for _, err := range rejected {
		f.logger.Warn("skipping inventory entry", "err", err)
	}
	f.logger.Debug("inventory loaded", "devices", s.Len(), "skipped", len(warnings)+len(rejected))
	return s, nil
}
