package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS link_results (
		link         TEXT PRIMARY KEY,
		place        TEXT NOT NULL,
		latitude     DOUBLE PRECISION,
		longitude    DOUBLE PRECISION,
		ok           BOOLEAN NOT NULL,
		error        TEXT,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

const upsertResultQuery = `
	INSERT INTO link_results (link, place, latitude, longitude, ok, error, processed_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (link) DO UPDATE SET
		place = EXCLUDED.place,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		ok = EXCLUDED.ok,
		error = EXCLUDED.error,
		processed_at = EXCLUDED.processed_at;
`

const countResultsQuery = `SELECT count(*) FROM link_results;`

// EnsureSchema creates the link_results table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create link_results table: %w", err)
	}

	return nil
}

// SaveResult upserts the outcome of a link. Latitude and longitude are stored as NULL
// for failed links, and the error column as NULL for successful ones.
func (r *Repository) SaveResult(ctx context.Context, result models.Result) error {
	var lat, lon *float64
	if result.Coordinates != nil {
		lat, lon = &result.Coordinates.Latitude, &result.Coordinates.Longitude
	}

	var errMsg *string
	if result.Err != nil {
		msg := result.Err.Error()
		errMsg = &msg
	}

	_, err := r.db.Exec(ctx, upsertResultQuery, result.Link, result.Place, lat, lon, result.OK(), errMsg)
	if err != nil {
		return fmt.Errorf("failed to save link result: %w", err)
	}

	r.log.DebugContext(ctx, "Link result saved", "link", result.Link, "ok", result.OK())
	return nil
}

// CountResults returns the number of stored link results.
func (r *Repository) CountResults(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countResultsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count link results: %w", err)
	}

	return count, nil
}
