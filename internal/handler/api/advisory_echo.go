package api

import (
	"errors"
	"net/http"

	models "CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	"CoinMentor/internal/service/ratelimit"
	"CoinMentor/internal/usecase"
	xhttp "CoinMentor/pkg/http"
	xlogger "CoinMentor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// An ask round fans out to every provider, so requests per symbol are
// throttled: a small burst, then one round every ten seconds.
const (
	askBurst      = 3.0
	askRefillRate = 0.1
)

// AdvisoryEchoHandler exposes the advisor orchestration endpoints.
type AdvisoryEchoHandler struct {
	logger  *xlogger.Logger
	orch    *usecase.Orchestrator
	snap    *usecase.SnapshotUseCase
	limiter *ratelimit.Limiter
}

func NewAdvisoryEchoHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, snap *usecase.SnapshotUseCase) *AdvisoryEchoHandler {
	return &AdvisoryEchoHandler{logger: logger, orch: orch, snap: snap, limiter: ratelimit.New()}
}

func (h *AdvisoryEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/advisors")
	g.GET("", h.List)
	g.POST("/ask", h.AskAll)
	g.POST("/reset", h.ResetAll)
	g.POST("/:name/ask", h.AskOne)
	g.GET("/:name/history", h.History)
	g.POST("/:name/reset", h.Reset)
}

func (h *AdvisoryEchoHandler) List(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.orch.Advisors())
}

func (h *AdvisoryEchoHandler) AskAll(c echo.Context) error {
	req := &models.AskAllRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow("ask_all:"+req.Symbol, askBurst, askRefillRate) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many rounds for symbol"})
	}

	ctx := c.Request().Context()
	mctx, err := h.snap.Snapshot(ctx, req.Symbol, domrepo.NormalizeTimeframe(req.TF))
	if err != nil {
		h.logger.Error("snapshot for ask_all failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	mctx.Question = req.Question

	res, err := h.orch.AskAll(ctx, mctx)
	if err != nil {
		if errors.Is(err, usecase.ErrNoAdvisors) {
			return xhttp.BadRequestResponse(c, map[string]string{"error": err.Error()})
		}
		h.logger.Error("ask_all failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AdvisoryEchoHandler) AskOne(c echo.Context) error {
	name := c.Param("name")
	req := &models.AskOneRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow("ask_one:"+name+":"+req.Symbol, askBurst, askRefillRate) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many rounds for advisor"})
	}

	ctx := c.Request().Context()
	mctx, err := h.snap.Snapshot(ctx, req.Symbol, domrepo.NormalizeTimeframe(req.TF))
	if err != nil {
		h.logger.Error("snapshot for ask_one failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	mctx.Question = req.Question

	out, err := h.orch.AskOne(ctx, name, mctx)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownAdvisor) {
			return xhttp.NotFoundResponse(c, map[string]string{"error": err.Error()})
		}
		h.logger.Error("ask_one failed", xlogger.String("advisor", name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *AdvisoryEchoHandler) History(c echo.Context) error {
	name := c.Param("name")
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	msgs, err := h.orch.History(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownAdvisor) {
			return xhttp.NotFoundResponse(c, map[string]string{"error": err.Error()})
		}
		return xhttp.AppErrorResponse(c, err)
	}
	if req.Limit > 0 && len(msgs) > req.Limit {
		msgs = msgs[len(msgs)-req.Limit:]
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"advisor":  name,
		"messages": msgs,
	})
}

func (h *AdvisoryEchoHandler) Reset(c echo.Context) error {
	name := c.Param("name")
	if err := h.orch.Reset(c.Request().Context(), name); err != nil {
		if errors.Is(err, usecase.ErrUnknownAdvisor) {
			return xhttp.NotFoundResponse(c, map[string]string{"error": err.Error()})
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *AdvisoryEchoHandler) ResetAll(c echo.Context) error {
	if err := h.orch.ResetAll(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}
