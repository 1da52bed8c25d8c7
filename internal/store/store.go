// Package store persists leads and the lists that group them.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

var (
	// ErrDuplicateLead is returned by InsertLead when a lead with the same
	// case-insensitive (name, company) already exists.
	ErrDuplicateLead = errors.New("store: duplicate lead")
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Store defines the persistence interface for lead lists.
type Store interface {
	// Lists
	CreateList(ctx context.Context, name string) (*model.List, error)
	GetList(ctx context.Context, id string) (*model.List, error)

	// Leads
	FindLead(ctx context.Context, name, company string) (string, bool, error)
	InsertLead(ctx context.Context, lead model.Lead) (string, error)
	LinkLead(ctx context.Context, listID, leadID string) error
	ListLeads(ctx context.Context, listID string) ([]model.PersistedLead, error)
	LeadCities(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Options tunes backend construction.
type Options struct {
	MaxConns int32
}

// Open selects the backend for driver ("postgres" or "sqlite") and connects.
func Open(ctx context.Context, driver, dsn string, opts Options) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, eris.Errorf("store: no database url for driver %q", driver)
	}
	switch driver {
	case "postgres", "":
		return NewPostgres(ctx, dsn, opts)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}
