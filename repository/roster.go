package repository

import (
	"context"

	"github.com/taskwarden/backend/domain"
)

type RosterRepository interface {
	List(ctx context.Context) ([]domain.TeamMember, error)
}
