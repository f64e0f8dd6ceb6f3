package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/paycrow/paycrow-backend-go/internal/domain/account"
	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/handler/http/response"
)

type LedgerHandler interface {
	Deposit(w http.ResponseWriter, r *http.Request)
	Balance(w http.ResponseWriter, r *http.Request)
	RequiredFund(w http.ResponseWriter, r *http.Request)
	Withdraw(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
}

type LedgerHandlerImpl struct {
	ledgerService account.LedgerService
}

func NewLedgerHandler(ledgerService account.LedgerService) LedgerHandler {
	return &LedgerHandlerImpl{ledgerService: ledgerService}
}

// Deposit implements LedgerHandler.
func (h *LedgerHandlerImpl) Deposit(w http.ResponseWriter, r *http.Request) {
	var depositReq account.DepositRequest

	if err := json.NewDecoder(r.Body).Decode(&depositReq); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	balance, err := h.ledgerService.Deposit(r.Context(), depositReq)
	if err != nil {
		slog.Error("Deposit service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, balance)
}

// Balance implements LedgerHandler.
func (h *LedgerHandlerImpl) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledgerService.Balance(r.Context())
	if err != nil {
		slog.Error("Balance service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, balance)
}

// RequiredFund implements LedgerHandler.
func (h *LedgerHandlerImpl) RequiredFund(w http.ResponseWriter, r *http.Request) {
	var fundReq offer.RequiredFundRequest

	if err := json.NewDecoder(r.Body).Decode(&fundReq); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	quote, err := h.ledgerService.CountRequiredFund(r.Context(), fundReq)
	if err != nil {
		slog.Error("RequiredFund service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, quote)
}

// Withdraw implements LedgerHandler.
func (h *LedgerHandlerImpl) Withdraw(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := h.ledgerService.Withdraw(r.Context())
	if err != nil {
		slog.Error("Withdraw service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, withdrawal)
}

// History implements LedgerHandler.
func (h *LedgerHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.ledgerService.History(r.Context(), limit)
	if err != nil {
		slog.Error("History service error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Success(w, entries)
}
