package store

import "errors"

// ErrNotFound is returned when a requested campus does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when adding a campus whose name is already taken.
var ErrExists = errors.New("already exists")

// Store defines the campus catalog persistence interface.
type Store interface {
	// AddCampus registers a new campus at the end of the list. Returns
	// ErrExists if the name is taken.
	AddCampus(c *Campus) error
	GetCampus(name string) (*Campus, error)
	DeleteCampus(name string) error
	ListCampuses() ([]*Campus, error)

	// UpdateCampus atomically reads, modifies, and saves a campus in a single
	// transaction. Returns ErrNotFound if the campus does not exist.
	UpdateCampus(name string, fn func(c *Campus) error) error

	// Close the store
	Close() error
}
