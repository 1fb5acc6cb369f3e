package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Results recorded on the application counters
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
	ResultCreated  = "created"
	ResultUpdated  = "updated"
)

// AppMetrics counts the business events of the service. A nil *AppMetrics
// records nothing.
type AppMetrics struct {
	logins      *Counter
	storeBinds  *Counter
	importRows  *Counter
	quotaDenied *Counter
}

// NewAppMetrics creates the application instruments on meter.
func NewAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	in := NewInstruments(meter)
	m := &AppMetrics{
		logins:      in.Counter("auth_login_total", "Login attempts by account type and result", "{attempt}"),
		storeBinds:  in.Counter("store_bind_total", "Store bind attempts by result", "{attempt}"),
		importRows:  in.Counter("settlement_import_rows_total", "Imported settlement rows by result", "{row}"),
		quotaDenied: in.Counter("quota_denied_total", "Writes refused by a membership quota", "{request}"),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordLogin counts one login attempt
func (m *AppMetrics) RecordLogin(ctx context.Context, accountType string, ok bool) {
	if m == nil {
		return
	}
	result := ResultFailure
	if ok {
		result = ResultSuccess
	}
	m.logins.Inc(ctx, AttrAccountType.String(accountType), AttrResult.String(result))
}

// RecordStoreBind counts one bind attempt
func (m *AppMetrics) RecordStoreBind(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.storeBinds.Inc(ctx, AttrResult.String(result))
}

// RecordImport counts the rows of one settlement import
func (m *AppMetrics) RecordImport(ctx context.Context, created, updated int) {
	if m == nil {
		return
	}
	m.importRows.Add(ctx, int64(created), AttrResult.String(ResultCreated))
	m.importRows.Add(ctx, int64(updated), AttrResult.String(ResultUpdated))
}

// RecordQuotaDenied counts a write refused by quota; kind is stores or sub_accounts
func (m *AppMetrics) RecordQuotaDenied(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.quotaDenied.Inc(ctx, AttrQuotaKind.String(kind))
}
