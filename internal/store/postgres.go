package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, dsn string, opts Options) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, dsn, db.PoolConfig{MaxConns: opts.MaxConns})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL,
	company      TEXT NOT NULL,
	city         TEXT NOT NULL,
	signal_type  TEXT NOT NULL DEFAULT '',
	source_link  TEXT NOT NULL,
	explanation  TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_name_company ON leads (lower(name), lower(company));

CREATE TABLE IF NOT EXISTS lists (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS list_leads (
	list_id  TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
	lead_id  TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (list_id, lead_id)
);

CREATE INDEX IF NOT EXISTS idx_list_leads_lead_id ON list_leads(lead_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateList(ctx context.Context, name string) (*model.List, error) {
	l := model.List{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lists (id, name, created_at) VALUES ($1, $2, $3)`,
		l.ID, l.Name, l.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert list")
	}
	return &l, nil
}

func (s *PostgresStore) GetList(ctx context.Context, id string) (*model.List, error) {
	var l model.List
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM lists WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get list %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get list %s", id)
	}
	return &l, nil
}

func (s *PostgresStore) FindLead(ctx context.Context, name, company string) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM leads WHERE lower(name) = lower($1) AND lower(company) = lower($2) LIMIT 1`,
		name, company,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: find lead")
	}
	return id, true, nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, lead model.Lead) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, name, company, city, signal_type, source_link, explanation, linkedin_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, lead.Name, lead.Company, lead.City, lead.SignalType, lead.SourceLink, lead.Explanation, lead.LinkedInURL, time.Now().UTC(),
	)
	if db.IsUniqueViolation(err) {
		return "", ErrDuplicateLead
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert lead")
	}
	return id, nil
}

func (s *PostgresStore) LinkLead(ctx context.Context, listID, leadID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO list_leads (list_id, lead_id, added_at) VALUES ($1, $2, $3) ON CONFLICT (list_id, lead_id) DO NOTHING`,
		listID, leadID, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: link lead")
}

func (s *PostgresStore) ListLeads(ctx context.Context, listID string) ([]model.PersistedLead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT l.id, l.name, l.company, l.city, l.signal_type, l.source_link, l.explanation, l.linkedin_url, l.created_at
		 FROM list_leads ll JOIN leads l ON l.id = ll.lead_id
		 WHERE ll.list_id = $1
		 ORDER BY ll.added_at, l.name`,
		listID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list leads %s", listID)
	}
	defer rows.Close()

	var out []model.PersistedLead
	for rows.Next() {
		p, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) LeadCities(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT city FROM leads`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead cities")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		out = append(out, city)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate cities")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.PersistedLead, error) {
	var p model.PersistedLead
	err := row.Scan(&p.ID, &p.Lead.Name, &p.Lead.Company, &p.Lead.City, &p.Lead.SignalType,
		&p.Lead.SourceLink, &p.Lead.Explanation, &p.Lead.LinkedInURL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
