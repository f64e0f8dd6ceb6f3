package http

import (
	"log/slog"
	"net/http"

	"github.com/paycrow/paycrow-backend-go/internal/domain/upkeep"
	"github.com/paycrow/paycrow-backend-go/internal/handler/http/response"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/jwt"
)

type UpkeepHandler interface {
	Check(w http.ResponseWriter, r *http.Request)
	Trigger(w http.ResponseWriter, r *http.Request)
}

type UpkeepHandlerImpl struct {
	upkeepService upkeep.UpkeepService
}

func NewUpkeepHandler(upkeepService upkeep.UpkeepService) UpkeepHandler {
	return &UpkeepHandlerImpl{upkeepService: upkeepService}
}

// Check implements UpkeepHandler.
func (h *UpkeepHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	due, err := h.upkeepService.CheckDue(r.Context())
	if err != nil {
		slog.Error("CheckDue service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, upkeep.CheckDueResponse{Due: due})
}

// Trigger implements UpkeepHandler. Any authenticated account may trigger;
// the caller collects the flat fee for every payment the sweep lands.
func (h *UpkeepHandlerImpl) Trigger(w http.ResponseWriter, r *http.Request) {
	callerID, err := jwt.AccountIDFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	report, err := h.upkeepService.TriggerDue(r.Context(), callerID)
	if err != nil {
		slog.Error("TriggerDue service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, report)
}
