package station

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropi/cropi/internal/database"
	"github.com/cropi/cropi/pkg/geo"
)

// db is the subset of *pgxpool.Pool the repository uses.
type db interface {
	database.Beginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a PostgreSQL/PostGIS implementation of Repository.
type PostgresRepository struct {
	pool db
}

// NewPostgresRepository creates a new PostgreSQL station repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// lockStationCode serializes upserts of one code until the transaction ends.
const lockStationCode = `SELECT pg_advisory_xact_lock(hashtext($1))`

const stationColumns = `
	s.id, s.city, s.uf, ST_AsBinary(s.location::geometry), s.status,
	COALESCE(s.inmet_code, ''), s.create_date, s.update_date`

// GetByCode retrieves a station by its INMET code.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations s WHERE s.inmet_code = $1 LIMIT 1`

	s, err := scanStation(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListActiveByCulture returns active stations serving the culture.
func (r *PostgresRepository) ListActiveByCulture(ctx context.Context, cultureID int64) ([]*Station, error) {
	query := `
		SELECT ` + stationColumns + `
		FROM stations s
		WHERE s.status = TRUE
		  AND s.inmet_code IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM plantations p
			WHERE p.station_id = s.id AND p.culture_id = $1
		  )
		ORDER BY s.id
	`

	rows, err := r.pool.Query(ctx, query, cultureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []*Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}

	return stations, rows.Err()
}

// Upsert updates the station matching s.Code or inserts a new one. The
// transaction holds an advisory lock on the code, so concurrent syncs of the
// same code run one after the other and only the first inserts.
func (r *PostgresRepository) Upsert(ctx context.Context, s *Station) (bool, error) {
	location, err := locationWKT(s.Location)
	if err != nil {
		return false, err
	}

	update := `
		UPDATE stations
		SET city = $2,
			status = $3,
			location = COALESCE(ST_SetSRID(ST_GeomFromText($4), 4326)::geography, location),
			update_date = NOW()
		WHERE inmet_code = $1
	`
	insert := `
		INSERT INTO stations (city, uf, location, status, inmet_code)
		VALUES ($1, $2, ST_SetSRID(ST_GeomFromText($3), 4326)::geography, $4, $5)
		RETURNING id
	`

	var created bool
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockStationCode, s.Code); err != nil {
			return fmt.Errorf("lock station %s: %w", s.Code, err)
		}

		tag, err := tx.Exec(ctx, update, s.Code, s.City, s.Active, location)
		if err != nil {
			return fmt.Errorf("update station %s: %w", s.Code, err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		if err := tx.QueryRow(ctx, insert, s.City, s.Region, location, s.Active, s.Code).Scan(&s.ID); err != nil {
			return fmt.Errorf("insert station %s: %w", s.Code, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}

func scanStation(row pgx.Row) (*Station, error) {
	var (
		s        Station
		location []byte
	)

	err := row.Scan(
		&s.ID,
		&s.City,
		&s.Region,
		&location,
		&s.Active,
		&s.Code,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if location != nil {
		p, err := geo.FromWKB(location)
		if err != nil {
			return nil, fmt.Errorf("station %d location: %w", s.ID, err)
		}
		s.Location = &p
	}

	return &s, nil
}

// locationWKT returns nil for a missing location so SQL sees NULL.
func locationWKT(p *geo.Point) (*string, error) {
	if p == nil {
		return nil, nil
	}
	wkt, err := p.WKT()
	if err != nil {
		return nil, err
	}
	return &wkt, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
