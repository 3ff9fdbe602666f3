package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a user by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id::text, name, email, notification_token
		FROM users
		WHERE id = $1::uuid
	`

	var u User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.NotificationToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

// ListGrowersAtStation returns the distinct owners of plantations of
// cultureID served by stationID.
func (r *PostgresRepository) ListGrowersAtStation(ctx context.Context, stationID, cultureID int64) ([]*User, error) {
	query := `
		SELECT u.id::text, u.name, u.email, u.notification_token
		FROM stations s
		JOIN plantations p ON s.id = p.station_id
		JOIN users u ON u.id = p.user_id
		WHERE s.id = $1
		  AND p.culture_id = $2
		GROUP BY u.id
		ORDER BY u.id
	`

	rows, err := r.pool.Query(ctx, query, stationID, cultureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.NotificationToken); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
