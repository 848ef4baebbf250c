package api

import (
	"errors"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
	apimetrics "StockCast/internal/service/metrics"
	"StockCast/internal/service/ratelimit"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RateLimit is the per-client token bucket applied to every forecast route.
type RateLimit struct {
	Burst     float64
	PerSecond float64
}

// ForecastEchoHandler serves forecast queries over Echo.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	query   service.ForecastQuery
	limiter *ratelimit.Limiter
	limit   RateLimit
}

func NewForecastEchoHandler(logger *xlogger.Logger, query service.ForecastQuery, limiter *ratelimit.Limiter, limit RateLimit) *ForecastEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	apimetrics.Register()
	return &ForecastEchoHandler{
		logger:  logger.With(xlogger.String("component", "forecast_api")),
		query:   query,
		limiter: limiter,
		limit:   limit,
	}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.rateLimit)
	g.GET("/forecast", h.Forecast)
	g.GET("/forecasts/top", h.Top)
	g.GET("/forecasts/history", h.History)
	g.GET("/outlook", h.Outlook)
}

func (h *ForecastEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter == nil || h.limit.PerSecond <= 0 {
			return next(c)
		}
		ok, wait := h.limiter.Try("client:"+c.RealIP(), h.limit.Burst, h.limit.PerSecond)
		if !ok {
			apimetrics.APIErrors.WithLabelValues(c.Path(), "ERR_RATE_LIMITED").Inc()
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded").WithRetryAfter(wait))
		}
		return next(c)
	}
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	defer observe("forecast", time.Now())
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "forecast", verr)
	}

	rec, err := h.query.Forecast(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "forecast", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, rec.Document())
}

func (h *ForecastEchoHandler) Top(c echo.Context) error {
	defer observe("top", time.Now())
	req := &models.TopForecastsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "top", verr)
	}

	records, err := h.query.Top(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "top", "", err)
	}
	return xhttp.ListResponse(c, documents(records), int64(len(records)))
}

func (h *ForecastEchoHandler) Outlook(c echo.Context) error {
	defer observe("outlook", time.Now())
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "outlook", verr)
	}

	out, err := h.query.Outlook(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "outlook", req.Symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, out)
}

func (h *ForecastEchoHandler) History(c echo.Context) error {
	defer observe("history", time.Now())
	req := &models.ForecastHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "history", verr)
	}

	records, err := h.query.History(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "history", req.Symbol, err)
	}
	return xhttp.ListResponse(c, documents(records), int64(len(records)))
}

func (h *ForecastEchoHandler) badRequest(c echo.Context, endpoint string, verr interface{}) error {
	apimetrics.APIErrors.WithLabelValues(endpoint, "ERR_BAD_REQUEST").Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func (h *ForecastEchoHandler) fail(c echo.Context, endpoint, symbol string, err error) error {
	var appErr *xhttp.AppError
	if errors.Is(err, service.ErrNoData) {
		appErr = xhttp.NoDataError(strings.ToUpper(strings.TrimSpace(symbol))).WithError(err)
	} else {
		h.logger.Error("forecast query failed", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.InternalError("forecast query failed").WithError(err)
	}
	apimetrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	return xhttp.AppErrorResponse(c, appErr)
}

func observe(endpoint string, start time.Time) {
	apimetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func documents(records []models.ForecastRecord) []map[string]interface{} {
	docs := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		docs = append(docs, r.Document())
	}
	return docs
}
