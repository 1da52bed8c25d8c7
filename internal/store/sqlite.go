package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	company      TEXT NOT NULL,
	name_key     TEXT NOT NULL,
	company_key  TEXT NOT NULL,
	city         TEXT NOT NULL,
	signal_type  TEXT NOT NULL DEFAULT '',
	source_link  TEXT NOT NULL,
	explanation  TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_name_company ON leads (name_key, company_key);

CREATE TABLE IF NOT EXISTS lists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS list_leads (
	list_id  TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
	lead_id  TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	added_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (list_id, lead_id)
);

CREATE INDEX IF NOT EXISTS idx_list_leads_lead_id ON list_leads(lead_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateList(ctx context.Context, name string) (*model.List, error) {
	l := model.List{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lists (id, name, created_at) VALUES (?, ?, ?)`,
		l.ID, l.Name, l.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert list")
	}
	return &l, nil
}

func (s *SQLiteStore) GetList(ctx context.Context, id string) (*model.List, error) {
	var l model.List
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM lists WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get list %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get list %s", id)
	}
	return &l, nil
}

func (s *SQLiteStore) FindLead(ctx context.Context, name, company string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE name_key = ? AND company_key = ? LIMIT 1`,
		foldKey(name), foldKey(company),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: find lead")
	}
	return id, true, nil
}

func (s *SQLiteStore) InsertLead(ctx context.Context, lead model.Lead) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, company, name_key, company_key, city, signal_type, source_link, explanation, linkedin_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, lead.Name, lead.Company, foldKey(lead.Name), foldKey(lead.Company), lead.City, lead.SignalType, lead.SourceLink, lead.Explanation, lead.LinkedInURL, time.Now().UTC(),
	)
	if isSQLiteUnique(err) {
		return "", ErrDuplicateLead
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert lead")
	}
	return id, nil
}

func (s *SQLiteStore) LinkLead(ctx context.Context, listID, leadID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO list_leads (list_id, lead_id, added_at) VALUES (?, ?, ?)`,
		listID, leadID, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: link lead")
}

func (s *SQLiteStore) ListLeads(ctx context.Context, listID string) ([]model.PersistedLead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.id, l.name, l.company, l.city, l.signal_type, l.source_link, l.explanation, l.linkedin_url, l.created_at
		 FROM list_leads ll JOIN leads l ON l.id = ll.lead_id
		 WHERE ll.list_id = ?
		 ORDER BY ll.added_at, l.name`,
		listID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list leads %s", listID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PersistedLead
	for rows.Next() {
		p, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) LeadCities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT city FROM leads`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead cities")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city")
		}
		out = append(out, city)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate cities")
}

// foldKey is the stored identity for name and company. SQLite's lower() only
// folds ASCII, so keys are folded here with the same rule as in-run dedup.
func foldKey(s string) string {
	return strings.ToLower(s)
}

func isSQLiteUnique(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
