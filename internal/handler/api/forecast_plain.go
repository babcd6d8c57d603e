package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	icache "GapCast/internal/service/cache"
	"GapCast/internal/service/metrics"
	"GapCast/internal/service/ratelimit"
	"GapCast/internal/usecase"
	"GapCast/pkg/http/middleware"
	applogger "GapCast/pkg/logger"
	"GapCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// BotHandler is the lightweight net/http surface the chat orchestrator
// calls. Responses are byte-cached so a burst of identical chat queries for
// one symbol hits the pipeline once.
type BotHandler struct {
	uc    *usecase.ForecastUseCase
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewBotHandler(uc *usecase.ForecastUseCase) *BotHandler {
	metrics.Register()
	return &BotHandler{uc: uc, rl: ratelimit.New()}
}

func (h *BotHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *BotHandler) SetLogger(l *applogger.Logger) { h.l = l }

// RegisterRoutes mounts the bot endpoints on the shared Echo server.
func (h *BotHandler) RegisterRoutes(e *echo.Echo) {
	mw := middleware.Metrics(h.l, 2*time.Second)
	e.GET("/bot/next-price", echo.WrapHandler(mw(h.NextPrice())))
	e.GET("/bot/smart", echo.WrapHandler(mw(h.Smart())))
}

func (h *BotHandler) NextPrice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "next_price"
		defer func() { metrics.ForecastAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("bot.next_price missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		alpha := util.ParseFloatDefault(r.URL.Query().Get("alpha"), 0.10)
		if !h.rl.Allow(r.RemoteAddr+":next_price", 5, 2) {
			if h.l != nil {
				h.l.Warn("bot.next_price rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "bot:next_price:" + symbol
		if b, ok := h.cacheGet(endpoint, cacheKey); ok {
			writeJSON(w, b, h.l, endpoint)
			return
		}
		res, err := h.uc.Gap(r.Context(), symbol, alpha)
		if err != nil {
			metrics.ForecastAPIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("bot.next_price error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		b, err := json.Marshal(res)
		if err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		h.cacheSet(endpoint, cacheKey, b, 60*time.Second)
		writeJSON(w, b, h.l, endpoint)
	}
}

func (h *BotHandler) Smart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "smart"
		defer func() { metrics.ForecastAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("bot.smart missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		alpha := util.ParseFloatDefault(r.URL.Query().Get("alpha"), 0.10)
		source := r.URL.Query().Get("source")
		if source == "" {
			source = "VCI"
		}
		if !h.rl.Allow(r.RemoteAddr+":smart", 5, 2) {
			if h.l != nil {
				h.l.Warn("bot.smart rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "bot:smart:" + symbol + ":" + source
		if b, ok := h.cacheGet(endpoint, cacheKey); ok {
			writeJSON(w, b, h.l, endpoint)
			return
		}
		res, err := h.uc.Smart(r.Context(), symbol, alpha, source)
		if err != nil {
			metrics.ForecastAPIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("bot.smart error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		b, err := json.Marshal(res)
		if err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		h.cacheSet(endpoint, cacheKey, b, 15*time.Second)
		writeJSON(w, b, h.l, endpoint)
	}
}

func (h *BotHandler) cacheGet(endpoint, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		if h.l != nil {
			h.l.Warn("bot."+endpoint+" cache_get_error", applogger.Error(err))
		}
		return nil, false
	}
	if ok && h.l != nil {
		h.l.Debug("bot."+endpoint+" cache_hit", applogger.String("key", key))
	}
	return b, ok
}

func (h *BotHandler) cacheSet(endpoint, key string, b []byte, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil && h.l != nil {
		h.l.Warn("bot."+endpoint+" cache_set_error", applogger.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, b []byte, l *applogger.Logger, endpoint string) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil && l != nil {
		l.Warn("bot."+endpoint+" write_error", applogger.Error(err))
	}
}

