package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin and annotates its span. Span names
// follow "METHOD route" (e.g. "GET /api/v1/stores/:id").
func TracingWithConfig(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.ServiceName,
			otelgin.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health"
			}),
		),
		spanAttributes,
	}
}

// spanAttributes runs inside the otelgin span. The caller is read after the
// handlers so that the principal set by Authenticate is visible.
func spanAttributes(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}
	if id := c.GetString(RequestIDContextKey); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}

	c.Next()

	if p := GetPrincipal(c); p != nil {
		span.SetAttributes(
			attribute.String("account_type", string(p.AccountType)),
			attribute.String("account_id", p.AccountID.String()),
		)
		if !p.IsAdmin() {
			span.SetAttributes(attribute.String("owner_id", p.OwnerID.String()))
		}
	}
	if status := c.Writer.Status(); status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
