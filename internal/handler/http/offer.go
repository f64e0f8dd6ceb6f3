package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paycrow/paycrow-backend-go/internal/domain/account"
	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/handler/http/response"
)

type OfferHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	Sign(w http.ResponseWriter, r *http.Request)
	Close(w http.ResponseWriter, r *http.Request)
	PayMonthly(w http.ResponseWriter, r *http.Request)
	AddWorkedHours(w http.ResponseWriter, r *http.Request)
	PayWorkedHours(w http.ResponseWriter, r *http.Request)
	Fund(w http.ResponseWriter, r *http.Request)
	Withdraw(w http.ResponseWriter, r *http.Request)
	Payments(w http.ResponseWriter, r *http.Request)
}

type OfferHandlerImpl struct {
	ledgerService account.LedgerService
	offerService  offer.OfferService
}

func NewOfferHandler(ledgerService account.LedgerService, offerService offer.OfferService) OfferHandler {
	return &OfferHandlerImpl{
		ledgerService: ledgerService,
		offerService:  offerService,
	}
}

// Create implements OfferHandler.
func (h *OfferHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var createReq offer.CreateOfferRequest

	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	created, err := h.ledgerService.CreateJobOffer(r.Context(), createReq)
	if err != nil {
		slog.Error("CreateJobOffer service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Offer created", created)
}

// Get implements OfferHandler.
func (h *OfferHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	found, err := h.offerService.Get(r.Context(), offerID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, found)
}

// Payments implements OfferHandler.
func (h *OfferHandlerImpl) Payments(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	entries, err := h.offerService.Payments(r.Context(), offerID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, entries)
}

// ListMine implements OfferHandler.
func (h *OfferHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offerService.ListMine(r.Context())
	if err != nil {
		slog.Error("ListMine service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, offers)
}

// Sign implements OfferHandler.
func (h *OfferHandlerImpl) Sign(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	signed, err := h.offerService.Sign(r.Context(), offerID)
	if err != nil {
		slog.Error("Sign service error", "error", err, "offer_id", offerID)
		response.HandleError(w, err)
		return
	}

	response.Success(w, signed)
}

// Close implements OfferHandler.
func (h *OfferHandlerImpl) Close(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	closed, err := h.offerService.Close(r.Context(), offerID)
	if err != nil {
		slog.Error("Close service error", "error", err, "offer_id", offerID)
		response.HandleError(w, err)
		return
	}

	response.Success(w, closed)
}

// PayMonthly implements OfferHandler.
func (h *OfferHandlerImpl) PayMonthly(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	paid, err := h.offerService.PayMonthly(r.Context(), offerID)
	if err != nil {
		slog.Error("PayMonthly service error", "error", err, "offer_id", offerID)
		response.HandleError(w, err)
		return
	}

	response.Success(w, paid)
}

// AddWorkedHours implements OfferHandler.
func (h *OfferHandlerImpl) AddWorkedHours(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	var hoursReq offer.AddHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&hoursReq); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	updated, err := h.offerService.AddWorkedHours(r.Context(), offerID, hoursReq)
	if err != nil {
		slog.Error("AddWorkedHours service error", "error", err, "offer_id", offerID)
		response.HandleError(w, err)
		return
	}

	response.Success(w, updated)
}

// PayWorkedHours implements OfferHandler.
func (h *OfferHandlerImpl) PayWorkedHours(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	paid, err := h.offerService.PayWorkedHours(r.Context(), offerID)
	if err != nil {
		slog.Error("PayWorkedHours service error", "error", err, "offer_id", offerID)
		response.HandleError(w, err)
		return
	}

	response.Success(w, paid)
}

// Fund implements OfferHandler.
func (h *OfferHandlerImpl) Fund(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	var fundReq offer.FundOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&fundReq); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	funded, err := h.ledgerService.FundJobOffer(r.Context(), offerID, fundReq)
	if err != nil {
		slog.Error("FundJobOffer service error", "error", err, "offer_id", offerID)
		response.HandleError(w, err)
		return
	}

	response.Success(w, funded)
}

// Withdraw implements OfferHandler.
func (h *OfferHandlerImpl) Withdraw(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	drained, err := h.offerService.Withdraw(r.Context(), offerID)
	if err != nil {
		slog.Error("Offer withdraw service error", "error", err, "offer_id", offerID)
		response.HandleError(w, err)
		return
	}

	response.Success(w, drained)
}
