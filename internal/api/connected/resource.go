// Package connected serves the connection history of a developer pair over
// HTTP.
//
// The response is a JSON array in history order. registered_at is always UTC
// and carries no offset suffix (e.g. "2022-06-01T00:00:00"); clients must read
// it as UTC rather than local time.
package connected

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/connected-registry/connected-registry/internal/middleware"
	"github.com/connected-registry/connected-registry/internal/registry"
	"github.com/connected-registry/connected-registry/internal/telemetry"
)

const (
	// Route is the gin path pattern served by Resource.Handler. Its response
	// timestamps are UTC without an offset suffix.
	Route = "/connected/realtime/:" + FirstParam + "/:" + SecondParam

	FirstParam  = "firstDeveloperHandle"
	SecondParam = "secondDeveloperHandle"
)

// Resource answers connection history queries through a registry.QueryHandler.
type Resource struct {
	handler registry.QueryHandler
}

// NewResource creates a Resource backed by handler.
func NewResource(handler registry.QueryHandler) *Resource {
	return &Resource{handler: handler}
}

// OnGet runs the query for the raw handles first and second, positions
// preserved, and returns the serialized history. Handler errors are returned
// unchanged and no entries are produced.
func (r *Resource) OnGet(ctx context.Context, first, second string) ([]SerializedEntry, error) {
	result, err := r.handler.Handle(ctx, registry.NewQuery(first, second))
	if err != nil {
		telemetry.RegistryQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	outcome := "history"
	if result.IsEmpty() {
		outcome = "empty"
	}
	telemetry.RegistryQueriesTotal.WithLabelValues(outcome).Inc()
	telemetry.RegistryEntriesReturned.Observe(float64(len(result.Entries)))

	return SerializeEntries(result.Entries), nil
}

// Handler adapts OnGet to gin. The body is encoded in full before anything is
// written, so a failure never leaves a partial response.
func (r *Resource) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		entries, err := r.OnGet(ctx, c.Param(FirstParam), c.Param(SecondParam))
		if err != nil {
			slog.ErrorContext(ctx, "connected registry query failed",
				"request_id", middleware.RequestID(c),
				"error", err,
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		body, err := json.Marshal(entries)
		if err != nil {
			slog.ErrorContext(ctx, "failed to encode connected registry response",
				"request_id", middleware.RequestID(c),
				"error", fmt.Errorf("marshal entries: %w", err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}
