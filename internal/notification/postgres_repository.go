package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL notification repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert stores a record in user_notifications.
func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO user_notifications (user_id, message)
		VALUES ($1::uuid, $2)
		RETURNING id::text, viewed, create_date
	`

	return r.pool.QueryRow(ctx, query, rec.UserID, rec.Message).Scan(&rec.ID, &rec.Viewed, &rec.CreatedAt)
}

// ListByUser returns a user's records, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	query := `
		SELECT id::text, user_id::text, message, viewed, create_date
		FROM user_notifications
		WHERE user_id = $1::uuid
		ORDER BY create_date, id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Message, &rec.Viewed, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
