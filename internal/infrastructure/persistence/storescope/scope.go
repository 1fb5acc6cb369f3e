// Package storescope turns a mall.Condition into GORM clauses. Every scoped
// repository read goes through Apply so that a caller never reads rows of a
// store outside the condition.
package storescope

import (
	"strings"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns names the owner and store columns of the scoped table. Self
// marks the stores table itself, where name and mall filters apply directly
// instead of through a subquery. Names are always quoted as identifiers.
type Columns struct {
	Table string
	Owner string
	Store string
	Self  bool
}

var (
	// Stores scopes the stores table
	Stores = Columns{Table: "stores", Owner: "user_id", Store: "id", Self: true}
	// SettlementRecords scopes settlement_records aliased as r
	SettlementRecords = Columns{Table: "r", Owner: "user_id", Store: "store_id"}
	// CostPrices scopes the cost_prices table
	CostPrices = Columns{Table: "cost_prices", Owner: "user_id", Store: "store_id"}
)

func (c Columns) owner() clause.Column { return clause.Column{Table: c.Table, Name: c.Owner} }
func (c Columns) store() clause.Column { return clause.Column{Table: c.Table, Name: c.Store} }

// Apply restricts db to the rows visible under cond. An empty condition
// yields a query that matches nothing.
func Apply(db *gorm.DB, cond mall.Condition, cols Columns) *gorm.DB {
	if cond.Empty {
		return db.Where("1 = 0")
	}

	db = db.Where(clause.Eq{Column: cols.owner(), Value: cond.OwnerID})
	if cond.Constrained() {
		if len(cond.StoreIDs) == 0 {
			return db.Where("1 = 0")
		}
		ids := make([]any, len(cond.StoreIDs))
		for i, id := range cond.StoreIDs {
			ids[i] = id
		}
		db = db.Where(clause.IN{Column: cols.store(), Values: ids})
	}

	if cond.NameLike == "" && cond.MallID == nil {
		return db
	}

	if cols.Self {
		return filterStores(db, cols.Table, cond)
	}

	sub := db.Session(&gorm.Session{NewDB: true}).Table("stores").
		Select("id").
		Where(clause.Eq{Column: clause.Column{Table: "stores", Name: "user_id"}, Value: cond.OwnerID})
	return db.Where(clause.Expr{
		SQL:  "? IN (?)",
		Vars: []any{cols.store(), filterStores(sub, "stores", cond)},
	})
}

// Scope returns Apply as a GORM scope function
func Scope(cond mall.Condition, cols Columns) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Apply(db, cond, cols)
	}
}

func filterStores(db *gorm.DB, table string, cond mall.Condition) *gorm.DB {
	if cond.NameLike != "" {
		db = db.Where(clause.Expr{
			SQL:  "? LIKE ? ESCAPE '!'",
			Vars: []any{clause.Column{Table: table, Name: "name"}, "%" + escapeLike(cond.NameLike) + "%"},
		})
	}
	if cond.MallID != nil {
		db = db.Where(clause.Eq{Column: clause.Column{Table: table, Name: "mall_id"}, Value: *cond.MallID})
	}
	return db
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes s match literally inside a LIKE pattern escaped by '!'
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
