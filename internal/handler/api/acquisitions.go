package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/services/samplelog"
	"PQAnalyzer/internal/usecase"
	xhttp "PQAnalyzer/pkg/http"
	xlogger "PQAnalyzer/pkg/logger"
)

type AcquisitionHandler struct {
	logger      *xlogger.Logger
	acq         *usecase.Acquisition
	analyzer    *usecase.Analyzer
	liveWindow  float64
	streamEvery time.Duration
	upgrader    websocket.Upgrader
}

func NewAcquisitionHandler(logger *xlogger.Logger, acq *usecase.Acquisition, analyzer *usecase.Analyzer, liveWindow float64, streamEvery time.Duration) *AcquisitionHandler {
	if streamEvery <= 0 {
		streamEvery = 500 * time.Millisecond
	}
	return &AcquisitionHandler{
		logger:      logger,
		acq:         acq,
		analyzer:    analyzer,
		liveWindow:  liveWindow,
		streamEvery: streamEvery,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *AcquisitionHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/acquisitions")
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.GET("/status", h.Status)
	g.GET("/live", h.Live)
	g.GET("/stream", h.Stream)
}

func (h *AcquisitionHandler) Start(c echo.Context) error {
	req := &models.StartAcquisitionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.acq.Start(c.Request().Context(), req.Source)
	if err != nil {
		h.logger.Warn("acquisition start rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CreatedResponse(c, st)
}

func (h *AcquisitionHandler) Stop(c echo.Context) error {
	sum, err := h.acq.Stop(c.Request().Context())
	if err != nil {
		h.logger.Error("acquisition stop error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *AcquisitionHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.acq.Status())
}

// Live analyzes the last live_window seconds of the running acquisition.
func (h *AcquisitionHandler) Live(c echo.Context) error {
	p, appErr := queryParams(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	width := xhttp.QueryFloat(c, "width", h.liveWindow)
	view, err := h.analyzer.Live(c.Request().Context(), h.acq.Status(), h.acq.Live(width), p)
	if err != nil {
		h.logger.Error("live analysis error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, view)
}

type streamFrame struct {
	Status  models.AcquisitionStatus `json:"status"`
	Samples models.Series            `json:"samples"`
}

// Stream pushes calibrated samples appended since the previous frame.
func (h *AcquisitionHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// The client never sends data; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.streamEvery)
	defer ticker.Stop()
	var cp samplelog.Checkpoint
	for {
		samples, next := h.acq.Since(cp)
		cp = next
		frame := streamFrame{Status: h.acq.Status(), Samples: samples}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug("websocket write ended", xlogger.Error(err))
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
