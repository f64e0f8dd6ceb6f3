package offer

import (
	"time"

	"github.com/paycrow/paycrow-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateOfferRequest struct {
	Type            string          `json:"type"` // "salary" or "hourly"
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"` // "ETH", "USD" or "EUR"
	EmployeeID      string          `json:"employee_id"`
	DurationSeconds int64           `json:"duration_seconds"`
	AutoFundEnabled bool            `json:"auto_fund_enabled"`
}

func (r *CreateOfferRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, err := ParseOfferType(r.Type); err != nil {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be 'salary' or 'hourly'"})
	}
	if _, err := ParseCurrency(r.Currency); err != nil {
		errs = append(errs, validator.ValidationError{Field: "currency", Message: "must be 'ETH', 'USD' or 'EUR'"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive"})
	}
	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "must be a valid account id"})
	}
	if r.DurationSeconds <= 0 {
		errs = append(errs, validator.ValidationError{Field: "duration_seconds", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RequiredFundRequest struct {
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	AutoFundEnabled bool            `json:"auto_fund_enabled"`
}

func (r *RequiredFundRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, err := ParseOfferType(r.Type); err != nil {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be 'salary' or 'hourly'"})
	}
	if _, err := ParseCurrency(r.Currency); err != nil {
		errs = append(errs, validator.ValidationError{Field: "currency", Message: "must be 'ETH', 'USD' or 'EUR'"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RequiredFundResponse struct {
	RequiredFund decimal.Decimal `json:"required_fund"`
	PerPeriod    decimal.Decimal `json:"per_period"`
}

type FundOfferRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r *FundOfferRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive"})
	}
	if !r.Amount.Equal(r.Amount.Truncate(0)) {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be an integer amount of settlement units"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AddHoursRequest struct {
	Hours int64 `json:"hours"`
}

func (r *AddHoursRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Hours <= 0 {
		errs = append(errs, validator.ValidationError{Field: "hours", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type OfferResponse struct {
	ID              string          `json:"id"`
	EmployerID      string          `json:"employer_id"`
	EmployeeID      string          `json:"employee_id"`
	Type            string          `json:"type"`
	State           string          `json:"state"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	EthAmount       decimal.Decimal `json:"eth_amount"`
	DurationSeconds int64           `json:"duration_seconds"`
	AutoFundEnabled bool            `json:"auto_fund_enabled"`
	LastPaymentAt   *time.Time      `json:"last_payment_at,omitempty"`
	WorkedHours     int64           `json:"worked_hours"`
	EscrowedBalance decimal.Decimal `json:"escrowed_balance"`
	CreatedAt       time.Time       `json:"created_at"`
}

func ToResponse(o Offer) OfferResponse {
	return OfferResponse{
		ID:              o.ID,
		EmployerID:      o.EmployerID,
		EmployeeID:      o.EmployeeID,
		Type:            string(o.Type),
		State:           string(o.State),
		Amount:          o.Amount,
		Currency:        string(o.Currency),
		EthAmount:       o.EthAmount,
		DurationSeconds: o.DurationSeconds,
		AutoFundEnabled: o.AutoFundEnabled,
		LastPaymentAt:   o.LastPaymentAt,
		WorkedHours:     o.WorkedHours,
		EscrowedBalance: o.EscrowedBalance,
		CreatedAt:       o.CreatedAt,
	}
}

// PaymentResponse reports one disbursement.
type PaymentResponse struct {
	OfferID    string          `json:"offer_id"`
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	PaidHours  int64           `json:"paid_hours,omitempty"`
}
