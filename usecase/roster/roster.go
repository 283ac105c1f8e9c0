package roster

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/repository"
)

// UseCase is the single accessor for the team roster. Reads go through an
// in-memory cache with a TTL; Invalidate forces the next read to hit the
// repository again.
type UseCase struct {
	roster repository.RosterRepository
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	cached    []domain.TeamMember
	fetchedAt time.Time
}

func New(roster repository.RosterRepository, ttl time.Duration, logger *zap.Logger) *UseCase {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		roster: roster,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the cache's time source.
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	if now != nil {
		uc.now = now
	}
	return uc
}

// Members returns the roster, reading through the cache.
func (uc *UseCase) Members(ctx context.Context) ([]domain.TeamMember, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.cached != nil && uc.now().Sub(uc.fetchedAt) < uc.ttl {
		return uc.cached, nil
	}

	members, err := uc.roster.List(ctx)
	if err != nil {
		if uc.cached != nil {
			// Serve stale entries rather than failing the caller.
			uc.logger.Warn("roster refresh failed, serving cached entries", zap.Error(err))
			return uc.cached, nil
		}
		return nil, err
	}

	uc.cached = members
	uc.fetchedAt = uc.now()
	return members, nil
}

// Invalidate drops the cached roster.
func (uc *UseCase) Invalidate() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.cached = nil
	uc.fetchedAt = time.Time{}
}
