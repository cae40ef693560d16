package inventory

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the ordered, in-memory collection of one campus' devices. It
// owns the name and IP uniqueness invariants. It is not safe for
// concurrent use.
type Store struct {
	records []Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Match is a search hit with its current display position.
type Match struct {
	Position int
	Record   Record
}

// Mutation is a partial change applied by Update. Nil pointers leave the
// field alone; an empty IP clears the address.
type Mutation struct {
	Name           *string
	IP             *string
	Layer          *Layer
	AddServices    []Service
	RemoveServices []Service
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Snapshot returns a copy of every record, for use as validator context.
func (s *Store) Snapshot() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// others returns a snapshot without the record at pos.
func (s *Store) others(pos int) []Record {
	out := make([]Record, 0, len(s.records))
	for i, r := range s.records {
		if i != pos {
			out = append(out, r)
		}
	}
	return out
}

// Get returns a copy of the record at pos.
func (s *Store) Get(pos int) (Record, error) {
	if pos < 0 || pos >= len(s.records) {
		return Record{}, fmt.Errorf("position %d: %w", pos, ErrNotFound)
	}
	return s.records[pos].Clone(), nil
}

// normalize rewrites IP, services and layer into their canonical spelling.
func normalize(r *Record) {
	if addr, ok := ParseIPv4(r.IP); ok {
		r.IP = addr.String()
	}
	for i, svc := range r.Services {
		if c, ok := ParseService(string(svc)); ok {
			r.Services[i] = c
		}
	}
	if l, ok := ParseLayer(string(r.Layer)); ok {
		r.Layer = l
	}
}

// Add appends r and returns its position. The record is checked against the
// current contents even if the caller validated it earlier. A missing ID is
// assigned.
func (s *Store) Add(r Record) (int, error) {
	r = r.Clone()
	if err := ValidateRecord(r, s.records); err != nil {
		return -1, err
	}
	normalize(&r)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.records = append(s.records, r)
	return len(s.records) - 1, nil
}

// Update applies m to the record at pos. Only the validators for the fields
// m touches are run, against every other record. On error the record is
// left as it was.
func (s *Store) Update(pos int, m Mutation) error {
	cur, err := s.Get(pos)
	if err != nil {
		return err
	}
	rest := s.others(pos)
	next := cur.Clone()

	if m.Name != nil && *m.Name != cur.Name {
		if err := ValidateName(*m.Name, rest); err != nil {
			return err
		}
		next.Name = *m.Name
	}
	if m.IP != nil {
		if err := ValidateIP(*m.IP, rest); err != nil {
			return err
		}
		next.IP = *m.IP
	}
	if m.Layer != nil {
		if err := ValidateLayer(next.Kind, *m.Layer); err != nil {
			return err
		}
		next.Layer = *m.Layer
	}
	if len(m.RemoveServices) > 0 {
		next.Services = slices.DeleteFunc(next.Services, func(svc Service) bool {
			return slices.ContainsFunc(m.RemoveServices, func(rm Service) bool {
				return strings.EqualFold(string(rm), string(svc))
			})
		})
	}
	if len(m.AddServices) > 0 {
		next.Services = append(next.Services, m.AddServices...)
		if err := ValidateServices(serviceStrings(next.Services)); err != nil {
			return err
		}
	}

	normalize(&next)
	s.records[pos] = next
	return nil
}

// Remove deletes the record at pos once confirm approves it. A nil confirm
// or a negative answer returns ErrAborted and changes nothing. Records after
// pos shift down one position; their IDs are unchanged.
func (s *Store) Remove(pos int, confirm func(Record) bool) error {
	r, err := s.Get(pos)
	if err != nil {
		return err
	}
	if confirm == nil || !confirm(r) {
		return fmt.Errorf("remove %q: %w", r.Name, ErrAborted)
	}
	s.records = slices.Delete(s.records, pos, pos+1)
	return nil
}

// FindByName returns every record whose name contains substr, ignoring
// case, in store order. No match is not an error.
func (s *Store) FindByName(substr string) []Match {
	needle := strings.ToLower(substr)
	var out []Match
	for i, r := range s.records {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			out = append(out, Match{Position: i, Record: r.Clone()})
		}
	}
	return out
}

// List yields every record with its position in insertion order. Each call
// to the returned sequence starts over.
func (s *Store) List() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := 0; i < len(s.records); i++ {
			if !yield(i, s.records[i].Clone()) {
				return
			}
		}
	}
}

// Stamp sets LastModified on every record.
func (s *Store) Stamp(t time.Time) {
	for i := range s.records {
		s.records[i].LastModified = t
	}
}

// Restore rebuilds a store from persisted records in file order. Records
// that break name or IP uniqueness against earlier entries, or fail field
// validation, are returned in rejected instead of being added.
func Restore(records []Record) (s *Store, rejected []error) {
	s = NewStore()
	for _, r := range records {
		if err := ValidateRecord(r, s.records); err != nil {
			rejected = append(rejected, fmt.Errorf("record %q: %w", r.Name, err))
			continue
		}
		normalize(&r)
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.records = append(s.records, r)
	}
	return s, rejected
}
