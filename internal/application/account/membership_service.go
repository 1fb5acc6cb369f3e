package account

import (
	"context"
	"time"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
)

// MembershipService reports membership levels and the caller's quota usage
type MembershipService struct {
	users  account.UserRepository
	subs   account.SubAccountRepository
	levels membership.LevelRepository
	stores mall.StoreRepository
	now    func() time.Time
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(
	users account.UserRepository,
	subs account.SubAccountRepository,
	levels membership.LevelRepository,
	stores mall.StoreRepository,
) *MembershipService {
	return &MembershipService{users: users, subs: subs, levels: levels, stores: stores, now: time.Now}
}

// Info returns the membership of the caller's owner account
func (s *MembershipService) Info(ctx context.Context, p *account.Principal) (*MembershipInfo, error) {
	u, err := s.users.FindByID(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	levels, err := s.levels.List(ctx, false)
	if err != nil {
		return nil, err
	}

	now := s.now()
	quota, level := membership.ResolveQuota(u, levels, now)
	info := &MembershipInfo{
		ExpiresAt: u.MembershipExpiresAt,
		Expired:   u.MembershipLevelID != nil && u.ActiveMembershipLevel(now) == nil,
		Quota:     quota,
	}
	if level != nil {
		li := ToLevelInfo(level)
		info.Level = &li
	}

	if info.Usage.Stores, err = s.stores.CountByUser(ctx, p.OwnerID); err != nil {
		return nil, err
	}
	if info.Usage.SubAccounts, err = s.subs.CountByParent(ctx, p.OwnerID); err != nil {
		return nil, err
	}
	return info, nil
}

// Levels returns the enabled levels customers can buy
func (s *MembershipService) Levels(ctx context.Context) ([]LevelInfo, error) {
	levels, err := s.levels.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]LevelInfo, len(levels))
	for i, l := range levels {
		out[i] = ToLevelInfo(l)
	}
	return out, nil
}
