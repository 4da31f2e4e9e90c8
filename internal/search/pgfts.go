package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the jobs fts column, ranked with
// ts_rank and snippeted with ts_headline.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, `
		SELECT count(*) FROM jobs j
		WHERE j.fts @@ plainto_tsquery('english', $1)
	`, q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT j.id, j.title,
			ts_headline('english', coalesce(j.description, ''),
				plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			b.name, st.label
		FROM jobs j
		JOIN buildings b ON b.id = j.building_id
		JOIN statuses st ON st.id = j.status_id
		WHERE j.fts @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(j.fts, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, limit, offset), q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Building, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every job for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]JobRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT j.id, j.title, j.description, b.name, st.label
		FROM jobs j
		JOIN buildings b ON b.id = j.building_id
		JOIN statuses st ON st.id = j.status_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]JobRecord, 0)
	for rows.Next() {
		var j JobRecord
		if err := rows.Scan(&j.ID, &j.Title, &j.Description, &j.Building, &j.Status); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
