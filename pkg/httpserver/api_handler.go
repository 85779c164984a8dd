package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/trevortrinh/vigil-hypertrace/internal/storage"
	"github.com/trevortrinh/vigil-hypertrace/pkg/cache"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

const defaultListLimit = 50

// APIHandler serves the read-side API: trader profiles, the smart money
// watchlist, and per-instrument positioning signals.
type APIHandler struct {
	store    storage.Storage
	profiles *cache.ProfileCache
	logger   *zap.Logger
}

// NewAPIHandler creates an API handler. profiles may be nil to bypass
// caching.
func NewAPIHandler(store storage.Storage, profiles *cache.ProfileCache, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		store:    store,
		profiles: profiles,
		logger:   logger,
	}
}

// ProfileResponse is the JSON shape of one trader profile.
type ProfileResponse struct {
	AccountID      string  `json:"account_id"`
	FirstDay       string  `json:"first_day,omitempty"`
	LastDay        string  `json:"last_day,omitempty"`
	TotalFills     int     `json:"total_fills"`
	TotalVolume    string  `json:"total_volume"`
	NetPnl         string  `json:"net_pnl"`
	TotalFees      string  `json:"total_fees"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	TradingDays    int     `json:"trading_days"`
	MakerPct       float64 `json:"maker_pct"`
	WinRate        float64 `json:"win_rate"`
	MtmTV          float64 `json:"mtm_tv"`
	RiskRatio      float64 `json:"risk_ratio"`
	Classification string  `json:"classification"`
}

// SignalResponse is the JSON shape of one asset signal bucket.
type SignalResponse struct {
	Instrument   string  `json:"instrument"`
	BucketStart  string  `json:"bucket_start"`
	LongVolume   string  `json:"long_volume"`
	ShortVolume  string  `json:"short_volume"`
	AccountCount int     `json:"account_count"`
	NetBias      float64 `json:"net_bias"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleProfile handles GET /api/profile?account=<id> requests.
func (h *APIHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account")
	if accountID == "" {
		h.writeError(w, "missing required query parameter: account", http.StatusBadRequest)
		return
	}

	if h.profiles != nil {
		profile, ok := h.profiles.Get(accountID)
		if ok {
			h.writeJSON(w, toProfileResponse(profile))
			return
		}
	}

	profile, err := h.store.Profile(r.Context(), accountID)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, "account not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("profile-lookup-failed", zap.String("account", accountID), zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.profiles != nil {
		h.profiles.Set(profile)
	}

	h.writeJSON(w, toProfileResponse(profile))
}

// HandleWatchlist handles GET /api/watchlist?limit=<n> requests, returning
// smart directional profiles ordered by risk ratio.
func (h *APIHandler) HandleWatchlist(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultListLimit)

	profiles, err := h.store.TopProfiles(r.Context(), types.TagSmartDirectional, limit)
	if err != nil {
		h.logger.Error("watchlist-query-failed", zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]ProfileResponse, len(profiles))
	for i, p := range profiles {
		out[i] = toProfileResponse(p)
	}

	h.writeJSON(w, out)
}

// HandleSignals handles GET /api/signals?coin=<instrument>&limit=<n>
// requests.
func (h *APIHandler) HandleSignals(w http.ResponseWriter, r *http.Request) {
	instrument := r.URL.Query().Get("coin")
	if instrument == "" {
		h.writeError(w, "missing required query parameter: coin", http.StatusBadRequest)
		return
	}

	limit := queryLimit(r, defaultListLimit)

	signals, err := h.store.Signals(r.Context(), instrument, limit)
	if err != nil {
		h.logger.Error("signals-query-failed", zap.String("coin", instrument), zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]SignalResponse, len(signals))
	for i, s := range signals {
		out[i] = SignalResponse{
			Instrument:   s.Instrument,
			BucketStart:  s.BucketStart.Format("2006-01-02T15:04:05Z"),
			LongVolume:   s.LongVolume.String(),
			ShortVolume:  s.ShortVolume.String(),
			AccountCount: s.AccountCount,
			NetBias:      s.NetBias,
		}
	}

	h.writeJSON(w, out)
}

func toProfileResponse(p *types.TraderProfile) ProfileResponse {
	resp := ProfileResponse{
		AccountID:      p.AccountID,
		TotalFills:     p.TotalFills,
		TotalVolume:    p.TotalVolume.String(),
		NetPnl:         p.NetPnl.String(),
		TotalFees:      p.TotalFees.String(),
		WinningTrades:  p.WinningTrades,
		LosingTrades:   p.LosingTrades,
		TradingDays:    p.TradingDays,
		MakerPct:       p.MakerPct,
		WinRate:        p.WinRate,
		MtmTV:          p.MtmTV,
		RiskRatio:      p.RiskRatio,
		Classification: string(p.Classification),
	}

	if !p.FirstDay.IsZero() {
		resp.FirstDay = p.FirstDay.Format("2006-01-02")
		resp.LastDay = p.LastDay.Format("2006-01-02")
	}

	return resp
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}

	return limit
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *APIHandler) writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
