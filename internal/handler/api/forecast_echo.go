package api

import (
	"errors"

	models "GapCast/internal/domain/models"
	domrepo "GapCast/internal/domain/repository"
	"GapCast/internal/forecast"
	"GapCast/internal/usecase"
	xhttp "GapCast/pkg/http"
	xlogger "GapCast/pkg/logger"
	"GapCast/pkg/queue"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler serves the forecast API over Echo.
type ForecastEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ForecastUseCase
	jobs   queue.QueueService
}

func NewForecastEchoHandler(logger *xlogger.Logger, uc *usecase.ForecastUseCase, jobs queue.QueueService) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, uc: uc, jobs: jobs}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast/gap", h.Gap)
	g.GET("/forecast/smart", h.Smart)
	g.GET("/forecast/next-session", h.NextSession)
	g.POST("/train", h.Train)
	g.POST("/backfill", h.Backfill)
}

// Gap returns the chained full-day forecast for the next trading day.
func (h *ForecastEchoHandler) Gap(c echo.Context) error {
	req := &models.GapRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Gap(c.Request().Context(), req.Symbol, req.Alpha)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			return xhttp.UnprocessableResponse(c, err)
		}
		h.logger.Error("gap usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

// Smart routes between the in-session step forecast and the next-session
// forecast based on the current HOSE session.
func (h *ForecastEchoHandler) Smart(c echo.Context) error {
	req := &models.SmartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Smart(c.Request().Context(), req.Symbol, req.Alpha, req.Source)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			return xhttp.UnprocessableResponse(c, err)
		}
		h.logger.Error("smart usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) NextSession(c echo.Context) error {
	req := &models.NextSessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.NextSession(c.Request().Context(), req.Symbol, req.Alpha, req.Source, domrepo.NormalizeInterval(req.Interval))
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			return xhttp.UnprocessableResponse(c, err)
		}
		h.logger.Error("next-session usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Train retrains synchronously by default; with async=true the request is
// queued and the response only acknowledges enqueueing.
func (h *ForecastEchoHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Async && h.jobs != nil {
		payload := usecase.TrainJobPayload{
			Symbol:       req.Symbol,
			LookbackDays: req.LookbackDays,
			AddIndex:     req.AddIndex,
		}
		if err := h.jobs.PublishMessage(c.Request().Context(), usecase.TrainJobType, payload); err != nil {
			h.logger.Error("train enqueue error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.SuccessResponse(c, map[string]any{"queued": true, "symbol": req.Symbol})
	}

	meta, eval, err := h.uc.Train(c.Request().Context(), req.Symbol, req.LookbackDays, req.AddIndex)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			return xhttp.UnprocessableResponse(c, err)
		}
		h.logger.Error("train usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]any{"meta": meta, "eval": eval})
}

// Backfill enqueues a daily-history pull from the provider REST API. Always
// asynchronous; history pulls are too slow to hold a request open.
func (h *ForecastEchoHandler) Backfill(c echo.Context) error {
	req := &models.BackfillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, errors.New("job queue disabled"))
	}

	payload := usecase.BackfillJobPayload{Symbol: req.Symbol, Days: req.Days}
	if err := h.jobs.PublishMessage(c.Request().Context(), usecase.BackfillJobType, payload); err != nil {
		h.logger.Error("backfill enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]any{"queued": true, "symbol": req.Symbol})
}
