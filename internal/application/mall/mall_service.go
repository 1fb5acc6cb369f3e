package mall

import (
	"context"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
)

// MallService serves the mall catalog to customers
type MallService struct {
	malls mall.MallRepository
}

// NewMallService creates a new MallService
func NewMallService(malls mall.MallRepository) *MallService {
	return &MallService{malls: malls}
}

// ListEnabled returns the malls open for binding
func (s *MallService) ListEnabled(ctx context.Context) ([]MallInfo, error) {
	malls, err := s.malls.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]MallInfo, len(malls))
	for i, m := range malls {
		out[i] = ToMallInfo(m)
	}
	return out, nil
}
