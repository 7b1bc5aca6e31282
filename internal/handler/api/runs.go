package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/report"
	"PQAnalyzer/internal/service/ratelimit"
	"PQAnalyzer/internal/usecase"
	xhttp "PQAnalyzer/pkg/http"
	xlogger "PQAnalyzer/pkg/logger"
)

// RunsHandler serves stored runs, their analyses and ad-hoc analysis.
type RunsHandler struct {
	logger   *xlogger.Logger
	runs     *usecase.Runs
	analyzer *usecase.Analyzer
	rl       *ratelimit.Limiter
}

// NewRunsHandler serves the run routes. A nil limiter disables rate limiting
// of the analysis and export endpoints.
func NewRunsHandler(logger *xlogger.Logger, runs *usecase.Runs, analyzer *usecase.Analyzer, rl *ratelimit.Limiter) *RunsHandler {
	return &RunsHandler{logger: logger, runs: runs, analyzer: analyzer, rl: rl}
}

func (h *RunsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/runs", h.List)
	g.GET("/runs/:id", h.Get)
	g.DELETE("/runs/:id", h.Delete)
	g.GET("/runs/:id/analysis", h.Analysis)
	g.GET("/runs/:id/playback", h.Playback)
	g.GET("/runs/:id/export", h.Export, h.limit)
	g.POST("/analyze", h.Analyze, h.limit)
}

// limit throttles the CPU-heavy routes per client address.
func (h *RunsHandler) limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()+":"+c.Path()) {
			h.logger.Warn("rate limited", xlogger.String("remote", c.RealIP()), xlogger.String("route", c.Path()))
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests).
				WithParam("route", c.Path()))
		}
		return next(c)
	}
}

func (h *RunsHandler) List(c echo.Context) error {
	rows, err := h.runs.List(c.Request().Context(), models.RunQuery{
		Limit: xhttp.QueryInt(c, "limit", 0),
		Since: xhttp.QueryTime(c, "since", time.Time{}),
	})
	if err != nil {
		h.logger.Error("list runs error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *RunsHandler) Get(c echo.Context) error {
	sum, err := h.runs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *RunsHandler) Delete(c echo.Context) error {
	if err := h.runs.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *RunsHandler) Analysis(c echo.Context) error {
	p, appErr := queryParams(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	an, err := h.analyzer.AnalyzeRun(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		h.logger.Error("run analysis error", xlogger.String("run_id", c.Param("id")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, an)
}

func (h *RunsHandler) Playback(c echo.Context) error {
	p, appErr := queryParams(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	frame := xhttp.QueryFloat(c, "frame", 0)
	width := xhttp.QueryFloat(c, "width", h.analyzer.WindowWidth())
	view, err := h.analyzer.Playback(c.Request().Context(), c.Param("id"), frame, width, p)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *RunsHandler) Export(c echo.Context) error {
	format, err := report.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	p, appErr := queryParams(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	id := c.Param("id")
	b, err := h.runs.Export(c.Request().Context(), id, format, p)
	if err != nil {
		h.logger.Error("export error", xlogger.String("run_id", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", format.Filename(id)))
	return c.Blob(http.StatusOK, format.ContentType(), b)
}

// Analyze runs detection over a series posted in the body.
func (h *RunsHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ps, appErr := parsePhenomena(req.Phenomena)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	samples, skipped := req.Series()
	an, err := h.analyzer.Analyze(c.Request().Context(), samples, usecase.AnalyzeParams{
		Phenomena: ps,
		Exclusive: req.Exclusive,
		Nominal:   req.Nominal,
	})
	if err != nil {
		h.logger.Error("ad-hoc analysis error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	an.Skipped = skipped
	return xhttp.SuccessResponse(c, an)
}
