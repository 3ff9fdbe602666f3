package plantation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropi/cropi/pkg/geo"
)

// PostgresRepository is a PostgreSQL/PostGIS implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL plantation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const plantationColumns = `
	p.id::text, p.user_id::text, p.culture_id, p.station_id, COALESCE(p.alias, ''),
	ST_AsBinary(p.location::geometry), p.area, p.create_date`

// Get retrieves a plantation by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Plantation, error) {
	query := `SELECT ` + plantationColumns + ` FROM plantations p WHERE p.id = $1::uuid`

	p, err := scanPlantation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlantationNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListWithinRadius returns plantations within radiusMeters of center.
// Distance is computed on the sphere, not the spheroid.
func (r *PostgresRepository) ListWithinRadius(ctx context.Context, center geo.Point, radiusMeters float64, excludeID string) ([]*Plantation, error) {
	wkt, err := center.WKT()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + plantationColumns + `
		FROM plantations p
		WHERE p.location IS NOT NULL
		  AND ST_DWithin(
			p.location::geography,
			ST_SetSRID(ST_GeomFromText($1), 4326)::geography,
			$2,
			false
		  )
		  AND p.id::text <> $3
		ORDER BY p.id
	`

	rows, err := r.pool.Query(ctx, query, wkt, radiusMeters, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plantations []*Plantation
	for rows.Next() {
		p, err := scanPlantation(rows)
		if err != nil {
			return nil, err
		}
		plantations = append(plantations, p)
	}

	return plantations, rows.Err()
}

func scanPlantation(row pgx.Row) (*Plantation, error) {
	var (
		p        Plantation
		location []byte
	)

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.CultureID,
		&p.StationID,
		&p.Alias,
		&location,
		&p.Area,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if location != nil {
		pt, err := geo.FromWKB(location)
		if err != nil {
			return nil, fmt.Errorf("plantation %s location: %w", p.ID, err)
		}
		p.Location = &pt
	}

	return &p, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
