package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSQLiteStore_ListRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	l, err := s.CreateList(ctx, "Generate Run - 2026-03-14 09:26:53")
	require.NoError(t, err)

	got, err := s.GetList(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, l.Name, got.Name)

	_, err = s.GetList(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_InsertFindLink(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	l, err := s.CreateList(ctx, "run")
	require.NoError(t, err)

	lead := model.Lead{Name: "Jane Doe", Company: "Acme", City: "Toronto", SignalType: "Exit", SourceLink: "https://x", Explanation: "sold"}
	id, err := s.InsertLead(ctx, lead)
	require.NoError(t, err)
	require.NoError(t, s.LinkLead(ctx, l.ID, id))

	found, ok, err := s.FindLead(ctx, "JANE DOE", "acme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, found)

	leads, err := s.ListLeads(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Jane Doe", leads[0].Lead.Name)
	assert.Equal(t, "https://x", leads[0].Lead.SourceLink)
}

func TestSQLiteStore_InsertDuplicateCaseInsensitive(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.InsertLead(ctx, model.Lead{Name: "Jane Doe", Company: "Acme", City: "Toronto", SourceLink: "https://x"})
	require.NoError(t, err)

	_, err = s.InsertLead(ctx, model.Lead{Name: "jane doe", Company: "ACME", City: "Ottawa", SourceLink: "https://y"})
	assert.ErrorIs(t, err, ErrDuplicateLead)
}

func TestSQLiteStore_NonASCIICaseFolding(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := s.InsertLead(ctx, model.Lead{Name: "Émile Côté", Company: "Société Générale", City: "Montréal", SourceLink: "https://x"})
	require.NoError(t, err)

	_, err = s.InsertLead(ctx, model.Lead{Name: "ÉMILE CÔTÉ", Company: "SOCIÉTÉ GÉNÉRALE", City: "Montréal", SourceLink: "https://y"})
	assert.ErrorIs(t, err, ErrDuplicateLead)

	got, found, err := s.FindLead(ctx, "émile côté", "société générale")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)
}

func TestSQLiteStore_LinkIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	l, err := s.CreateList(ctx, "run")
	require.NoError(t, err)
	id, err := s.InsertLead(ctx, model.Lead{Name: "Jane", Company: "Acme", City: "Toronto", SourceLink: "https://x"})
	require.NoError(t, err)

	require.NoError(t, s.LinkLead(ctx, l.ID, id))
	require.NoError(t, s.LinkLead(ctx, l.ID, id))

	leads, err := s.ListLeads(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestSQLiteStore_LeadSharedAcrossLists(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := s.CreateList(ctx, "first")
	require.NoError(t, err)
	second, err := s.CreateList(ctx, "second")
	require.NoError(t, err)

	id, err := s.InsertLead(ctx, model.Lead{Name: "Jane", Company: "Acme", City: "Toronto", SourceLink: "https://x"})
	require.NoError(t, err)
	require.NoError(t, s.LinkLead(ctx, first.ID, id))
	require.NoError(t, s.LinkLead(ctx, second.ID, id))

	cities, err := s.LeadCities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Toronto"}, cities)

	a, err := s.ListLeads(ctx, first.ID)
	require.NoError(t, err)
	b, err := s.ListLeads(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", "  ", Options{})
	require.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"), Options{})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(context.Background()))
}
