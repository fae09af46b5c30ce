package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/speettolab/speetto-monitor/internal/api/respond"
	"github.com/speettolab/speetto-monitor/internal/cache"
	"github.com/speettolab/speetto-monitor/internal/monitor"
	"github.com/speettolab/speetto-monitor/internal/source"
	"github.com/speettolab/speetto-monitor/internal/speetto"
)

const (
	statusCacheKey = "status"

	logsDefaultLimit = 10
	logsMaxLimit     = 100
)

// prizeView is one prize tier in a status response.
type prizeView struct {
	Amount    string `json:"amount"`
	Remaining int    `json:"remaining"`
}

// readingView is one game's latest reading in a status response.
type readingView struct {
	Round     int       `json:"round"`
	AsOf      string    `json:"as_of"`
	StockRate int       `json:"store_instock_rate"`
	First     prizeView `json:"first"`
	Second    prizeView `json:"second"`
	Third     prizeView `json:"third"`
}

// GetStatus returns the latest persisted reading per game. When the store
// read fails the fallback reading set is served instead, flagged by the
// source field so callers can tell the difference.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if data, etag, ok := h.cache.Get(statusCacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLStatus, true)
		return
	}

	sourceName := "live"
	status, err := h.store.LatestStatus(r.Context())
	if err != nil || len(status) == 0 {
		sourceName = "fallback"
		status = make(map[speetto.Game]speetto.Reading)
		for _, reading := range source.FallbackReadings(time.Now()) {
			// Fallback carries multiple rounds per game; keep the first,
			// which is the current round.
			if _, ok := status[reading.Game]; !ok {
				status[reading.Game] = reading
			}
		}
	}

	games := make(map[string]readingView, len(status))
	for game, reading := range status {
		games[string(game)] = toView(reading)
	}
	body, err := json.Marshal(map[string]interface{}{
		"source": sourceName,
		"games":  games,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode status")
		return
	}

	etag := h.cache.Set(statusCacheKey, body, cache.TTLStatus)
	respond.WriteJSON(w, body, etag, cache.TTLStatus, false)
}

// CheckNow triggers a monitoring run and returns its summary.
func (h *Handler) CheckNow(w http.ResponseWriter, r *http.Request) {
	result := h.monitor.Run(r.Context())
	h.cache.Invalidate(statusCacheKey)

	status := http.StatusOK
	if result.Outcome == monitor.RunFatal {
		status = http.StatusInternalServerError
	}
	respond.WriteJSONObject(w, status, map[string]interface{}{
		"success": result.Outcome != monitor.RunFatal,
		"result":  result,
	})
}

// logView is one notification log entry.
type logView struct {
	Phone   string `json:"phone_number"`
	Game    string `json:"game_name"`
	Round   int    `json:"round"`
	Message string `json:"message"`
	SentAt  string `json:"sent_at"`
	Outcome string `json:"outcome"`
}

// GetNotificationLogs returns recent delivery attempts, most recent first.
func (h *Handler) GetNotificationLogs(w http.ResponseWriter, r *http.Request) {
	limit := logsDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > logsMaxLimit {
		limit = logsMaxLimit
	}

	records, err := h.store.RecentNotifications(r.Context(), limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_READ_FAILED", "Failed to read notification log")
		return
	}

	logs := make([]logView, 0, len(records))
	for _, rec := range records {
		logs = append(logs, logView{
			Phone:   rec.Phone,
			Game:    string(rec.Game),
			Round:   rec.Round,
			Message: rec.Message,
			SentAt:  rec.SentAt.UTC().Format(time.RFC3339),
			Outcome: string(rec.Outcome),
		})
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"count": len(logs),
		"logs":  logs,
	})
}

func toView(r speetto.Reading) readingView {
	return readingView{
		Round:     r.Round,
		AsOf:      r.AsOf.Format("2006-01-02"),
		StockRate: r.StockRate,
		First:     prizeView{Amount: r.First.Amount, Remaining: r.First.Remaining},
		Second:    prizeView{Amount: r.Second.Amount, Remaining: r.Second.Remaining},
		Third:     prizeView{Amount: r.Third.Amount, Remaining: r.Third.Remaining},
	}
}
