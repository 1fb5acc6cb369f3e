package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// MaxStatementLines bounds the lines printed on one statement
const MaxStatementLines = 2000

var (
	ErrStatementUnavailable = shared.NewDomainError("INVALID_STATE", "Statement export is not enabled")
	ErrStatementTooLarge    = shared.NewDomainError("INVALID_INPUT",
		fmt.Sprintf("Statement exceeds %d lines, narrow the date range or stores", MaxStatementLines))
)

// Statement is the printable settlement statement of a scope and period
type Statement struct {
	From        *time.Time
	To          *time.Time
	GeneratedAt time.Time
	Summary     settlement.Summary
	Lines       []LineInfo
	StoreNames  map[uuid.UUID]string
}

// StoreName returns the display name of id, or its id when unknown
func (st *Statement) StoreName(id uuid.UUID) string {
	if name, ok := st.StoreNames[id]; ok {
		return name
	}
	return id.String()
}

// StatementRenderer prints a statement as a PDF document
type StatementRenderer interface {
	Render(ctx context.Context, st *Statement) ([]byte, error)
}

// SetStatementRenderer enables statement export
func (s *Service) SetStatementRenderer(r StatementRenderer) {
	s.renderer = r
}

// BuildStatement collects every line and the summary under the caller's
// scope and filter. Statements are not cached.
func (s *Service) BuildStatement(ctx context.Context, p *account.Principal, scope mall.StoreFilter, f settlement.Filter) (*Statement, error) {
	st := &Statement{
		From:        f.StartDate,
		To:          f.EndDate,
		GeneratedAt: time.Now(),
		Summary:     settlement.SummaryFromRows(nil),
		Lines:       []LineInfo{},
		StoreNames:  map[uuid.UUID]string{},
	}
	cond := mall.BuildCondition(p, scope)
	if cond.Empty {
		return st, nil
	}

	records, err := s.allRecords(ctx, cond, f)
	if err != nil {
		return nil, err
	}
	keys := make([]settlement.CostKey, len(records))
	for i, r := range records {
		keys[i] = settlement.CostKey{StoreID: r.StoreID, SKU: r.SKU}
	}
	costs, err := s.costs.Lookup(ctx, cond.OwnerID, keys)
	if err != nil {
		return nil, err
	}
	lines := settlement.BuildLines(records, costs)
	st.Lines = make([]LineInfo, len(lines))
	for i, l := range lines {
		st.Lines[i] = ToLineInfo(l)
	}
	st.Summary = settlement.Summarize(lines)

	if err := s.storeNames(ctx, cond, st.StoreNames); err != nil {
		return nil, err
	}
	return st, nil
}

// ExportStatement renders the statement of the caller's scope as a PDF
func (s *Service) ExportStatement(ctx context.Context, p *account.Principal, scope mall.StoreFilter, f settlement.Filter) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrStatementUnavailable
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "statement",
		telemetry.SpanAttrOwnerID, p.OwnerID)
	defer span.End()

	st, err := s.BuildStatement(ctx, p, scope, f)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	pdf, err := s.renderer.Render(ctx, st)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Settlement statement exported",
		zap.String("owner_id", p.OwnerID.String()),
		zap.String("account_id", p.AccountID.String()),
		zap.Int("lines", len(st.Lines)),
		zap.Int("bytes", len(pdf)))
	return pdf, nil
}

func (s *Service) allRecords(ctx context.Context, cond mall.Condition, f settlement.Filter) ([]*settlement.Record, error) {
	var out []*settlement.Record
	for page := (shared.Pagination{Page: 1, PageSize: shared.MaxPageSize}); ; page.Page++ {
		records, total, err := s.records.List(ctx, cond, f, page)
		if err != nil {
			return nil, err
		}
		if total > MaxStatementLines {
			return nil, ErrStatementTooLarge
		}
		out = append(out, records...)
		if len(records) == 0 || int64(len(out)) >= total {
			return out, nil
		}
	}
}

func (s *Service) storeNames(ctx context.Context, cond mall.Condition, names map[uuid.UUID]string) error {
	cond.NameLike = ""
	cond.MallID = nil
	for page := (shared.Pagination{Page: 1, PageSize: shared.MaxPageSize}); ; page.Page++ {
		stores, total, err := s.stores.List(ctx, cond, page)
		if err != nil {
			return err
		}
		for _, st := range stores {
			names[st.ID] = st.Name
		}
		if len(stores) == 0 || int64(len(names)) >= total {
			return nil
		}
	}
}
