package admin

import (
	"context"

	"github.com/google/uuid"
	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	mallapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	ErrDefaultLevel = shared.NewDomainError("INVALID_STATE", "The default level cannot be deleted")
	ErrLevelInUse   = shared.NewDomainError("CONFLICT", "Level is held by users")
	ErrLevelCode    = shared.NewDomainError("ALREADY_EXISTS", "Level code already exists")
	ErrMallCode     = shared.NewDomainError("ALREADY_EXISTS", "Mall code already exists")
)

// LevelService manages membership levels
type LevelService struct {
	levels membership.LevelRepository
	logger *zap.Logger
}

// NewLevelService creates a new LevelService
func NewLevelService(levels membership.LevelRepository, logger *zap.Logger) *LevelService {
	return &LevelService{levels: levels, logger: logger}
}

// List returns every level, enabled or not
func (s *LevelService) List(ctx context.Context) ([]accountapp.LevelInfo, error) {
	levels, err := s.levels.List(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]accountapp.LevelInfo, len(levels))
	for i, l := range levels {
		out[i] = accountapp.ToLevelInfo(l)
	}
	return out, nil
}

// Create adds a level. A new default level replaces the previous one.
func (s *LevelService) Create(ctx context.Context, in membership.LevelInput) (*accountapp.LevelInfo, error) {
	l, err := membership.NewLevel(in)
	if err != nil {
		return nil, err
	}
	exists, err := s.levels.ExistsByCode(ctx, l.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrLevelCode
	}
	if err := s.levels.Create(ctx, l); err != nil {
		return nil, err
	}
	s.logger.Info("Membership level created", zap.String("code", l.Code), zap.Bool("default", l.IsDefault))
	info := accountapp.ToLevelInfo(l)
	return &info, nil
}

// Update changes a level; its code is kept
func (s *LevelService) Update(ctx context.Context, id uuid.UUID, in membership.LevelInput) (*accountapp.LevelInfo, error) {
	l, err := s.levels.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.IsDefault && !in.IsDefault {
		return nil, shared.NewDomainError("INVALID_STATE", "Make another level the default instead")
	}
	if err := l.Update(in); err != nil {
		return nil, err
	}
	if err := s.levels.Update(ctx, l); err != nil {
		return nil, err
	}
	info := accountapp.ToLevelInfo(l)
	return &info, nil
}

// Delete removes a level that is neither the default nor held by a user
func (s *LevelService) Delete(ctx context.Context, id uuid.UUID) error {
	l, err := s.levels.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if l.IsDefault {
		return ErrDefaultLevel
	}
	inUse, err := s.levels.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrLevelInUse
	}
	if err := s.levels.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Membership level deleted", zap.String("code", l.Code))
	return nil
}

// MallService manages the mall catalog
type MallService struct {
	malls  mall.MallRepository
	logger *zap.Logger
}

// NewMallService creates a new admin MallService
func NewMallService(malls mall.MallRepository, logger *zap.Logger) *MallService {
	return &MallService{malls: malls, logger: logger}
}

// List returns every mall
func (s *MallService) List(ctx context.Context) ([]mallapp.MallInfo, error) {
	malls, err := s.malls.List(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]mallapp.MallInfo, len(malls))
	for i, m := range malls {
		out[i] = mallapp.ToMallInfo(m)
	}
	return out, nil
}

// Create adds a mall, enabled unless in says otherwise
func (s *MallService) Create(ctx context.Context, in MallInput) (*mallapp.MallInfo, error) {
	m, err := mall.NewMall(in.Code, in.Name, in.Platform, in.Region, in.Currency)
	if err != nil {
		return nil, err
	}
	exists, err := s.malls.ExistsByCode(ctx, m.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMallCode
	}
	if err := m.Update(in.Name, in.Platform, in.Region, in.Currency, in.Sort); err != nil {
		return nil, err
	}
	if in.Enabled != nil {
		m.SetEnabled(*in.Enabled)
	}
	if err := s.malls.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("Mall created", zap.String("code", m.Code))
	info := mallapp.ToMallInfo(m)
	return &info, nil
}

// Update changes a mall. The code is kept; a nil Enabled keeps the state.
// Disabling a mall blocks new bindings only.
func (s *MallService) Update(ctx context.Context, id uuid.UUID, in MallInput) (*mallapp.MallInfo, error) {
	m, err := s.malls.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.Update(in.Name, in.Platform, in.Region, in.Currency, in.Sort); err != nil {
		return nil, err
	}
	if in.Enabled != nil {
		m.SetEnabled(*in.Enabled)
	}
	if err := s.malls.Update(ctx, m); err != nil {
		return nil, err
	}
	info := mallapp.ToMallInfo(m)
	return &info, nil
}
