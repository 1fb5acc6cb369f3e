package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// MembershipSweepJobName is the registered name of the membership sweep
const MembershipSweepJobName = "membership_sweep"

// Invalidator drops cached reads of an owner
type Invalidator interface {
	Invalidate(ctx context.Context, owner uuid.UUID, namespaces ...string) error
}

// MembershipSweep finds users whose membership lapsed since the previous run
// and re-applies the quota of the level they fall back to. Stores beyond the
// fallback quota are marked expired; bindings are never deleted.
type MembershipSweep struct {
	users    account.UserRepository
	levels   membership.LevelRepository
	stores   mall.StoreRepository
	cache    Invalidator
	logger   *zap.Logger
	lookback time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewMembershipSweep creates the sweep. The first run looks back lookback
// from the current time.
func NewMembershipSweep(
	users account.UserRepository,
	levels membership.LevelRepository,
	stores mall.StoreRepository,
	invalidator Invalidator,
	logger *zap.Logger,
	lookback time.Duration,
) *MembershipSweep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipSweep{
		users:    users,
		levels:   levels,
		stores:   stores,
		cache:    invalidator,
		logger:   logger,
		lookback: lookback,
		now:      time.Now,
	}
}

// Name implements Job
func (s *MembershipSweep) Name() string {
	return MembershipSweepJobName
}

// Run sweeps the memberships that expired in (last run, now]. A failed run
// keeps its window so the next run retries it.
func (s *MembershipSweep) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	since := s.last
	if since.IsZero() {
		since = now.Add(-s.lookback)
	}

	users, err := s.users.ListMembershipExpired(ctx, since, now)
	if err != nil {
		return fmt.Errorf("failed to list expired memberships: %w", err)
	}
	if len(users) == 0 {
		s.last = now
		return nil
	}

	levels, err := s.levels.List(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list membership levels: %w", err)
	}

	var result *multierror.Error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err).ErrorOrNil()
		}
		if err := s.sweepUser(ctx, u, levels, now); err != nil {
			result = multierror.Append(result, fmt.Errorf("user %s: %w", u.ID, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	s.last = now
	s.logger.Info("Membership sweep completed",
		zap.Int("users", len(users)),
		zap.Time("since", since),
		zap.Time("until", now),
	)
	return nil
}

func (s *MembershipSweep) sweepUser(ctx context.Context, u *account.User, levels []*membership.Level, now time.Time) error {
	quota, level := membership.ResolveQuota(u, levels, now)

	expired, err := s.stores.MarkOverQuota(ctx, u.ID, quota.Stores)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("user_id", u.ID.String()),
		zap.String("username", u.Username),
		zap.Int("store_quota", quota.Stores),
		zap.Int64("stores_expired", expired),
	}
	if u.MembershipExpiresAt != nil {
		fields = append(fields, zap.Time("expired_at", *u.MembershipExpiresAt))
	}
	if level != nil {
		fields = append(fields, zap.String("fallback_level", level.Code))
	}
	s.logger.Info("Membership expired", fields...)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, u.ID, cache.NamespaceStores); err != nil {
			s.logger.Warn("Failed to invalidate store cache", zap.String("user_id", u.ID.String()), zap.Error(err))
		}
	}
	return nil
}

var _ Job = (*MembershipSweep)(nil)
