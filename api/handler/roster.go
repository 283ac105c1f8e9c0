package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskwarden/backend/api/transport"
	"github.com/taskwarden/backend/domain"
	"github.com/taskwarden/backend/pkg/httpcontext"
	rosterUC "github.com/taskwarden/backend/usecase/roster"
)

type RosterHandler struct {
	baseHandler
	roster *rosterUC.UseCase
}

func NewRosterHandler(roster *rosterUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *RosterHandler {
	return &RosterHandler{
		baseHandler: newBaseHandler(adapter, logger),
		roster:      roster,
	}
}

// @Summary List team members
// @Tags roster
// @Router /api/v1/users [get]
func (h *RosterHandler) GetMembers(ctx *fasthttp.RequestCtx) {
	viewer, ok := h.principal(ctx)
	if !ok {
		return
	}
	// Only admins populate assignment choices.
	if !viewer.IsAdmin() {
		h.respondJSON(ctx, http.StatusForbidden, transport.NewError(string(domain.ErrCodeForbidden), "admin access required", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	members, err := h.roster.Members(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"users": members,
		"count": len(members),
	})
}

// @Summary Invalidate roster cache
// @Tags roster
// @Router /api/v1/users/refresh [post]
func (h *RosterHandler) RefreshMembers(ctx *fasthttp.RequestCtx) {
	viewer, ok := h.principal(ctx)
	if !ok {
		return
	}
	if !viewer.IsAdmin() {
		h.respondJSON(ctx, http.StatusForbidden, transport.NewError(string(domain.ErrCodeForbidden), "admin access required", nil))
		return
	}

	h.roster.Invalidate()
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}
