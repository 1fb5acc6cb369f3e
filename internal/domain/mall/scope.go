package mall

import (
	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// StoreFilter is the caller-supplied store narrowing of a read
type StoreFilter struct {
	StoreIDs  []uuid.UUID
	StoreName string
	MallID    *uuid.UUID
}

// Condition is the effective store scope of a read after the caller's filter
// has been intersected with what the caller may see.
//
// A nil StoreIDs means every store of OwnerID. Empty means nothing is visible
// and the query must return no rows.
type Condition struct {
	OwnerID  uuid.UUID   `json:"owner_id"`
	StoreIDs []uuid.UUID `json:"store_ids"`
	NameLike string      `json:"name_like,omitempty"`
	MallID   *uuid.UUID  `json:"mall_id,omitempty"`
	Empty    bool        `json:"empty"`
}

// BuildCondition intersects f with the store set visible to p
func BuildCondition(p *account.Principal, f StoreFilter) Condition {
	if p == nil || p.IsAdmin() || p.OwnerID == uuid.Nil {
		return Condition{Empty: true}
	}

	cond := Condition{
		OwnerID:  p.OwnerID,
		NameLike: NormalizeStoreName(f.StoreName),
		MallID:   f.MallID,
	}
	requested := shared.UniqueIDs(f.StoreIDs)

	if !p.Restricted {
		if len(requested) > 0 {
			cond.StoreIDs = requested
		}
		return cond
	}

	allowed := shared.UniqueIDs(p.AllowedStoreIDs)
	if len(requested) == 0 {
		cond.StoreIDs = allowed
	} else {
		cond.StoreIDs = intersect(requested, allowed)
	}
	if len(cond.StoreIDs) == 0 {
		cond.StoreIDs = []uuid.UUID{}
		cond.Empty = true
	}
	return cond
}

// Constrained reports whether the condition limits reads to explicit store ids
func (c Condition) Constrained() bool {
	return c.StoreIDs != nil
}

// Allows reports whether store id of owner falls inside the condition,
// ignoring the name and mall filters.
func (c Condition) Allows(owner, id uuid.UUID) bool {
	if c.Empty || owner != c.OwnerID {
		return false
	}
	if !c.Constrained() {
		return true
	}
	for _, sid := range c.StoreIDs {
		if sid == id {
			return true
		}
	}
	return false
}

func intersect(a, b []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(a))
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
