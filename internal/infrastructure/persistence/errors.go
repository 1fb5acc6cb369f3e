package persistence

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"gorm.io/gorm"
)

// translate maps driver errors onto domain errors. notFound and conflict
// replace the generic ErrNotFound and ErrAlreadyExists when not nil.
func translate(err error, notFound, conflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound != nil {
			return notFound
		}
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if conflict != nil {
			return conflict
		}
		return shared.ErrAlreadyExists
	default:
		return err
	}
}

// checkAffected turns a zero-row update or delete into ErrNotFound
func checkAffected(result *gorm.DB) error {
	if result.Error != nil {
		return translate(result.Error, nil, nil)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// parseIDs converts plucked id columns; the result is never nil
func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in database: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
