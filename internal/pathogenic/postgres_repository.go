package pathogenic

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

// NewPostgresRepository creates a new PostgreSQL pathogenic repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetWithCulture retrieves a pathogenic and its first associated culture.
func (r *PostgresRepository) GetWithCulture(ctx context.Context, id int64) (*Pathogenic, error) {
	query := `
		SELECT p.id, p.name, p.scientific_name,
			c.id, c.name, c.scientific_name
		FROM pathogenics p
		JOIN pathogenic_cultures pc ON pc.pathogenic_id = p.id
		JOIN cultures c ON c.id = pc.culture_id
		WHERE p.id = $1
		ORDER BY c.id
		LIMIT 1
	`

	var p Pathogenic
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.ScientificName,
		&p.Culture.ID,
		&p.Culture.Name,
		&p.Culture.ScientificName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPathogenicNotFound
		}
		return nil, err
	}

	return &p, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
