package handler

import (
	"testing"
	"time"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementQuery_Filter(t *testing.T) {
	t.Run("dates are inclusive days", func(t *testing.T) {
		f, err := SettlementQuery{StartDate: "2026-03-01", EndDate: "2026-03-31", Status: "arrived"}.settlementFilter()
		require.NoError(t, err)
		require.NotNil(t, f.StartDate)
		require.NotNil(t, f.EndDate)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *f.StartDate)
		assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), *f.EndDate)
		assert.EqualValues(t, "arrived", f.Status)
	})

	t.Run("no dates leave the range open", func(t *testing.T) {
		f, err := SettlementQuery{}.settlementFilter()
		require.NoError(t, err)
		assert.Nil(t, f.StartDate)
		assert.Nil(t, f.EndDate)
	})

	tests := []struct {
		name  string
		query SettlementQuery
		code  string
	}{
		{"malformed start", SettlementQuery{StartDate: "03/01/2026"}, "INVALID_DATE"},
		{"impossible end", SettlementQuery{EndDate: "2026-02-30"}, "INVALID_DATE"},
		{"end before start", SettlementQuery{StartDate: "2026-03-02", EndDate: "2026-03-01"}, "INVALID_DATE_RANGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.query.settlementFilter()
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}
