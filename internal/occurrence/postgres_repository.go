package occurrence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropi/cropi/internal/risk"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL occurrence repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves an occurrence with its plantation's station.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Occurrence, error) {
	query := `
		SELECT ppo.id::text, ppo.user_id::text, ppo.plantation_id::text, ppo.pathogenic_id,
			ppo.occurrence_date, s.id, COALESCE(s.inmet_code, '')
		FROM plantation_pathogenic_occurrences ppo
		JOIN plantations p ON p.id = ppo.plantation_id
		LEFT JOIN stations s ON s.id = p.station_id
		WHERE ppo.id = $1::uuid
	`

	var o Occurrence
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.PlantationID,
		&o.PathogenicID,
		&o.OccurredAt,
		&o.StationID,
		&o.StationCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOccurrenceNotFound
		}
		return nil, err
	}

	return &o, nil
}

// HasClimateBuckets reports whether any bucket row exists for the occurrence.
func (r *PostgresRepository) HasClimateBuckets(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM plantation_pathogenic_occurrences_temperatures
			WHERE plantation_pathogenic_occurrence_id = $1::uuid
		) OR EXISTS (
			SELECT 1 FROM plantation_pathogenic_occurrences_humidities
			WHERE plantation_pathogenic_occurrence_id = $1::uuid
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// InsertTemperatureBucket stores one (day, temperature) bucket.
func (r *PostgresRepository) InsertTemperatureBucket(ctx context.Context, id string, b risk.Bucket) error {
	query := `
		INSERT INTO plantation_pathogenic_occurrences_temperatures
			(plantation_pathogenic_occurrence_id, date, temperature, quantity)
		VALUES ($1::uuid, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, id, naiveDay(b), b.Value, b.Count)
	return err
}

// InsertHumidityBucket stores one (day, humidity) bucket.
func (r *PostgresRepository) InsertHumidityBucket(ctx context.Context, id string, b risk.Bucket) error {
	query := `
		INSERT INTO plantation_pathogenic_occurrences_humidities
			(plantation_pathogenic_occurrence_id, date, humidity, quantity)
		VALUES ($1::uuid, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, id, naiveDay(b), b.Value, b.Count)
	return err
}

// naiveDay keeps the bucket's calendar day for a timestamp-without-time-zone
// column regardless of the zone the day was computed in.
func naiveDay(b risk.Bucket) time.Time {
	y, m, d := b.Day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
