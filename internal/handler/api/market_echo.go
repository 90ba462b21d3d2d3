package api

import (
	"context"
	"net/http"
	"time"

	models "CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	"CoinMentor/internal/usecase"
	xhttp "CoinMentor/pkg/http"
	xlogger "CoinMentor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler serves market snapshot, candle, and health endpoints.
type MarketEchoHandler struct {
	logger  *xlogger.Logger
	snap    *usecase.SnapshotUseCase
	candles *usecase.CandlesUseCase
	storage domrepo.Storage
}

func NewMarketEchoHandler(logger *xlogger.Logger, snap *usecase.SnapshotUseCase, candles *usecase.CandlesUseCase, storage domrepo.Storage) *MarketEchoHandler {
	return &MarketEchoHandler{logger: logger, snap: snap, candles: candles, storage: storage}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/candles", h.Candles)
	g.GET("/candles/range", h.CandlesRange)
	e.GET("/health", h.Health)
}

func (h *MarketEchoHandler) Snapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	mctx, err := h.snap.Snapshot(c.Request().Context(), req.Symbol, domrepo.NormalizeTimeframe(req.TF))
	if err != nil {
		h.logger.Error("snapshot failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, mctx)
}

func (h *MarketEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	candles, err := h.candles.GetLatest(c.Request().Context(), req.Symbol, req.N, domrepo.NormalizeTimeframe(req.TF))
	if err != nil {
		h.logger.Error("candles failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":  req.Symbol,
		"tf":      req.TF,
		"candles": candles,
	})
}

// CandlesRange serves candles for an explicit time window. from/to accept
// RFC3339 or unix seconds and default to the last six hours.
func (h *MarketEchoHandler) CandlesRange(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	tf := domrepo.NormalizeTimeframe(c.QueryParam("tf"))

	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-6*time.Hour))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	from, to = xhttp.AlignFromTo(from, to, string(tf))
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 10000)

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    symbol,
		From:      from,
		To:        to,
		Timeframe: tf,
		Limit:     limit,
	})
	if err != nil {
		h.logger.Error("candles range failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if h.storage != nil {
		if err := h.storage.Health(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			h.logger.Warn("storage health check failed", xlogger.Error(err))
		}
	}
	return c.JSON(code, map[string]string{"status": status})
}
