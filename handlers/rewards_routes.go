// handlers/rewards_routes.go
package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"survey-rewards-system/middleware"
	"survey-rewards-system/services"
)

type RewardsHandler struct {
	Ledger     *services.RewardsLedger
	Statements *services.StatementService // nil when object storage is not configured
	// StreamInterval is how often the SSE stream re-reads the snapshot.
	StreamInterval time.Duration
	// Done stops open streams on shutdown.
	Done <-chan struct{}
	Log  *zap.Logger
}

func SetupRewardsRoutes(app *fiber.App, h *RewardsHandler, secured fiber.Router, streamAuth fiber.Handler) {
	secured.Get("/rewards", h.GetSnapshot)
	secured.Post("/rewards/scp/claim", h.ClaimSCP)
	secured.Post("/rewards/commerce/claim", h.ClaimCommerceRewards)
	secured.Get("/rewards/statement", h.ExportStatement)

	if streamAuth != nil {
		app.Get("/rewards/stream", streamAuth, h.StreamSnapshot)
	}
}

func (h *RewardsHandler) GetSnapshot(c *fiber.Ctx) error {
	snap, err := h.Ledger.GetSnapshot(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(snap)
}

func (h *RewardsHandler) ClaimSCP(c *fiber.Ctx) error {
	res, err := h.Ledger.ClaimSCP(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(res)
}

func (h *RewardsHandler) ClaimCommerceRewards(c *fiber.Ctx) error {
	res, err := h.Ledger.ClaimCommerceRewards(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(res)
}

func (h *RewardsHandler) ExportStatement(c *fiber.Ctx) error {
	if h.Statements == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "statement export is not configured",
			"code":  "statements_disabled",
		})
	}
	url, err := h.Statements.Export(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// StreamSnapshot pushes a "snapshot" event whenever the respondent's
// snapshot changes, with a comment keepalive in between.
func (h *RewardsHandler) StreamSnapshot(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	// Fail fast on unknown respondents before switching to streaming.
	first, err := h.Ledger.GetSnapshot(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	interval := h.StreamInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		last, _ := json.Marshal(first)
		if !writeEvent(w, last) {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.Done:
				return
			case <-ticker.C:
			}

			snap, err := h.Ledger.GetSnapshot(ctx, userID)
			if err != nil {
				h.Log.Warn("snapshot stream read failed", zap.String("user_id", userID), zap.Error(err))
				// A failed keepalive write means the client left.
				if _, err := w.WriteString(":\n\n"); err != nil || w.Flush() != nil {
					return
				}
				continue
			}
			payload, _ := json.Marshal(snap)
			if bytes.Equal(payload, last) {
				if _, err := w.WriteString(":\n\n"); err != nil || w.Flush() != nil {
					return
				}
				continue
			}
			last = payload
			if !writeEvent(w, payload) {
				return
			}
		}
	})
	return nil
}

// writeEvent reports false once the client has gone away.
func writeEvent(w *bufio.Writer, payload []byte) bool {
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
		return false
	}
	return w.Flush() == nil
}
