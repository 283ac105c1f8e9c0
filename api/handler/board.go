package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskwarden/backend/pkg/httpcontext"
	trackerUC "github.com/taskwarden/backend/usecase/tracker"
)

type BoardHandler struct {
	baseHandler
	tracker *trackerUC.Controller
}

func NewBoardHandler(tracker *trackerUC.Controller, adapter *httpcontext.Adapter, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		tracker:     tracker,
	}
}

// @Summary Viewer board
// @Tags board
// @Router /api/v1/board [get]
//
// Runs one refresh cycle for the calling principal and returns the render
// model: the visible task set with classifications, plus any aggregate
// deadline alert produced this cycle.
func (h *BoardHandler) GetBoard(ctx *fasthttp.RequestCtx) {
	viewer, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	model := h.tracker.Refresh(stdCtx, viewer)
	h.respondSuccess(ctx, http.StatusOK, model)
}
