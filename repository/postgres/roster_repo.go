package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/repository"
)

type rosterRepository struct {
	pool *pgxpool.Pool
}

// NewRosterRepository instantiates a Postgres-backed roster repository.
func NewRosterRepository(pool *pgxpool.Pool) repository.RosterRepository {
	return &rosterRepository{pool: pool}
}

func (r *rosterRepository) List(ctx context.Context) ([]domain.TeamMember, error) {
	const query = `
	SELECT id, username, email
	FROM team_members
	ORDER BY username ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.TeamMember
	for rows.Next() {
		var member domain.TeamMember
		if err := rows.Scan(&member.ID, &member.Username, &member.Email); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
