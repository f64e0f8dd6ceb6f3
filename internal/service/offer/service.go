package offer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paycrow/paycrow-backend-go/internal/domain/account"
	"github.com/paycrow/paycrow-backend-go/internal/domain/notification"
	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/domain/payment"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/database"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/jwt"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/sse"
	"github.com/paycrow/paycrow-backend-go/internal/repository/postgresql"
	"github.com/paycrow/paycrow-backend-go/internal/service/converter"
	"github.com/shopspring/decimal"
)

// OfferServiceImpl drives the per-offer state machine and disbursements.
// Every mutation locks the offer row first and the participating account
// rows after, in ascending id order, so concurrent triggers on the same
// offer serialize and pay at most once per due window.
type OfferServiceImpl struct {
	db        *database.DB
	converter *converter.Converter
	hub       *sse.Hub
	account.AccountRepository
	offer.OfferRepository
	payment.PaymentRepository
	notificationRepo notification.Repository
}

func NewOfferService(
	db *database.DB,
	conv *converter.Converter,
	hub *sse.Hub,
	accountRepo account.AccountRepository,
	offerRepo offer.OfferRepository,
	paymentRepo payment.PaymentRepository,
	notificationRepo notification.Repository,
) offer.OfferService {
	return &OfferServiceImpl{
		db:                db,
		converter:         conv,
		hub:               hub,
		AccountRepository: accountRepo,
		OfferRepository:   offerRepo,
		PaymentRepository: paymentRepo,
		notificationRepo:  notificationRepo,
	}
}

// Get implements offer.OfferService.
func (s *OfferServiceImpl) Get(ctx context.Context, offerID string) (offer.OfferResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	o, err := s.OfferRepository.GetByID(ctx, offerID)
	if err != nil {
		return offer.OfferResponse{}, err
	}
	if o.EmployerID != accountID && o.EmployeeID != accountID {
		return offer.OfferResponse{}, offer.ErrInvalidOffer
	}

	return offer.ToResponse(o), nil
}

// ListMine implements offer.OfferService.
func (s *OfferServiceImpl) ListMine(ctx context.Context) ([]offer.OfferResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	asEmployer, err := s.OfferRepository.ListByEmployer(ctx, accountID)
	if err != nil {
		return nil, err
	}
	asEmployee, err := s.OfferRepository.ListByEmployee(ctx, accountID)
	if err != nil {
		return nil, err
	}

	responses := make([]offer.OfferResponse, 0, len(asEmployer)+len(asEmployee))
	for _, o := range asEmployer {
		responses = append(responses, offer.ToResponse(o))
	}
	for _, o := range asEmployee {
		// The same account on both sides would duplicate the offer.
		if o.EmployerID == o.EmployeeID {
			continue
		}
		responses = append(responses, offer.ToResponse(o))
	}
	return responses, nil
}

// Payments implements offer.OfferService.
func (s *OfferServiceImpl) Payments(ctx context.Context, offerID string) ([]payment.EntryResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	o, err := s.OfferRepository.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.EmployerID != accountID && o.EmployeeID != accountID {
		return nil, offer.ErrInvalidOffer
	}

	entries, err := s.PaymentRepository.ListByOffer(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return payment.ToResponseList(entries), nil
}

// Sign implements offer.OfferService.
func (s *OfferServiceImpl) Sign(ctx context.Context, offerID string) (offer.OfferResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	var (
		signed offer.Offer
		notice *notification.Notification
	)
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		o, err := s.OfferRepository.GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if o.EmployerID != accountID && o.EmployeeID != accountID {
			return offer.ErrInvalidOffer
		}
		if o.EmployeeID != accountID {
			return offer.ErrUnauthorized
		}
		if !o.CanTransitionTo(offer.StateActive) {
			return offer.ErrInvalidState
		}

		now := time.Now()
		if err := s.OfferRepository.Activate(ctx, o.ID, now); err != nil {
			return err
		}
		o.State = offer.StateActive
		o.LastPaymentAt = &now
		signed = o

		notice = s.buildNotification(o.EmployerID, o.ID, notification.TypeContractSigned,
			"Contract signed",
			fmt.Sprintf("Your %s offer was signed by the employee", o.Type),
			map[string]interface{}{"offer_id": o.ID, "employee_id": o.EmployeeID})
		return s.notificationRepo.Create(ctx, notice)
	})
	if err != nil {
		return offer.OfferResponse{}, err
	}

	s.publish(notice)
	return offer.ToResponse(signed), nil
}

// Close implements offer.OfferService. Either party may close; the state
// change is permanent and stops salary accrual, while residual worked hours
// stay payable.
func (s *OfferServiceImpl) Close(ctx context.Context, offerID string) (offer.OfferResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	var (
		closed offer.Offer
		notice *notification.Notification
	)
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		o, err := s.OfferRepository.GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if o.EmployerID != accountID && o.EmployeeID != accountID {
			return offer.ErrInvalidOffer
		}
		if !o.CanTransitionTo(offer.StateClosed) {
			return offer.ErrInvalidState
		}

		if err := s.OfferRepository.UpdateState(ctx, o.ID, offer.StateClosed); err != nil {
			return err
		}
		o.State = offer.StateClosed
		closed = o

		recipient := o.EmployeeID
		if accountID == o.EmployeeID {
			recipient = o.EmployerID
		}
		notice = s.buildNotification(recipient, o.ID, notification.TypeContractClosed,
			"Contract closed",
			fmt.Sprintf("Your %s contract was closed", o.Type),
			map[string]interface{}{"offer_id": o.ID, "closed_by": accountID})
		return s.notificationRepo.Create(ctx, notice)
	})
	if err != nil {
		return offer.OfferResponse{}, err
	}

	s.publish(notice)
	return offer.ToResponse(closed), nil
}

// AddWorkedHours implements offer.OfferService.
func (s *OfferServiceImpl) AddWorkedHours(ctx context.Context, offerID string, req offer.AddHoursRequest) (offer.OfferResponse, error) {
	if err := req.Validate(); err != nil {
		return offer.OfferResponse{}, err
	}

	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	var updated offer.Offer
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		o, err := s.OfferRepository.GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if o.EmployerID != accountID && o.EmployeeID != accountID {
			return offer.ErrInvalidOffer
		}
		if o.EmployeeID != accountID {
			return offer.ErrUnauthorized
		}
		if o.Type != offer.TypeHourly {
			return offer.ErrInvalidOfferType
		}
		if o.State != offer.StateActive {
			return offer.ErrInvalidState
		}

		o.WorkedHours += req.Hours
		if err := s.OfferRepository.UpdateWorkedHours(ctx, o.ID, o.WorkedHours); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return offer.OfferResponse{}, err
	}

	return offer.ToResponse(updated), nil
}

// PayMonthly implements offer.OfferService.
func (s *OfferServiceImpl) PayMonthly(ctx context.Context, offerID string) (offer.PaymentResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.PaymentResponse{}, err
	}
	return s.paySalary(ctx, offerID, disbursement{caller: accountID})
}

// PayMonthlyAsOperator implements offer.OfferService.
func (s *OfferServiceImpl) PayMonthlyAsOperator(ctx context.Context, offerID, operatorID string) (offer.PaymentResponse, error) {
	return s.paySalary(ctx, offerID, disbursement{operator: operatorID, requireDue: true})
}

// PayWorkedHours implements offer.OfferService.
func (s *OfferServiceImpl) PayWorkedHours(ctx context.Context, offerID string) (offer.PaymentResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.PaymentResponse{}, err
	}
	return s.payHours(ctx, offerID, disbursement{caller: accountID})
}

// PayWorkedHoursAsOperator implements offer.OfferService.
func (s *OfferServiceImpl) PayWorkedHoursAsOperator(ctx context.Context, offerID, operatorID string) (offer.PaymentResponse, error) {
	return s.payHours(ctx, offerID, disbursement{operator: operatorID, requireDue: true})
}

// Withdraw implements offer.OfferService.
func (s *OfferServiceImpl) Withdraw(ctx context.Context, offerID string) (offer.OfferResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	var drained offer.Offer
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		o, err := s.OfferRepository.GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if o.EmployerID != accountID && o.EmployeeID != accountID {
			return offer.ErrInvalidOffer
		}
		if o.EmployerID != accountID {
			return offer.ErrUnauthorized
		}
		if o.State != offer.StateClosed {
			return offer.ErrInvalidState
		}
		if o.Type == offer.TypeHourly && o.WorkedHours > 0 {
			return offer.ErrOutstandingHours
		}
		if !o.EscrowedBalance.IsPositive() {
			return account.ErrNothingToWithdraw
		}

		employer, err := s.AccountRepository.GetForUpdate(ctx, o.EmployerID)
		if err != nil {
			return err
		}
		if err := s.AccountRepository.UpdateBalance(ctx, employer.ID, employer.Balance.Add(o.EscrowedBalance)); err != nil {
			return fmt.Errorf("failed to refund escrow: %w", err)
		}

		if _, err := s.PaymentRepository.Record(ctx, payment.Entry{
			OfferID:   &o.ID,
			ToAccount: &employer.ID,
			Kind:      payment.KindEscrowRefund,
			Amount:    o.EscrowedBalance,
		}); err != nil {
			return err
		}

		o.EscrowedBalance = decimal.Zero
		if err := s.OfferRepository.UpdateEscrow(ctx, o.ID, o.EscrowedBalance); err != nil {
			return err
		}
		drained = o
		return nil
	})
	if err != nil {
		return offer.OfferResponse{}, err
	}

	return offer.ToResponse(drained), nil
}

// disbursement describes who initiates a payment. Exactly one of caller and
// operator is set: callers must be the offer's employer, operators collect
// the flat fee and only pay inside the due window.
type disbursement struct {
	caller     string
	operator   string
	requireDue bool
}

func (s *OfferServiceImpl) paySalary(ctx context.Context, offerID string, d disbursement) (offer.PaymentResponse, error) {
	var (
		result    offer.PaymentResponse
		notice    *notification.Notification
		shortfall decimal.Decimal
		employer  string
	)
	err := postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		o, err := s.OfferRepository.GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		employer = o.EmployerID

		if d.caller != "" {
			if o.EmployerID != d.caller && o.EmployeeID != d.caller {
				return offer.ErrInvalidOffer
			}
			if o.EmployerID != d.caller {
				return offer.ErrUnauthorized
			}
		}
		if o.Type != offer.TypeSalary {
			return offer.ErrInvalidOfferType
		}
		if o.State != offer.StateActive {
			return offer.ErrInvalidState
		}
		// Re-checked under the row lock: a concurrent trigger that already
		// paid this period advanced the payment clock, so this one skips.
		if d.requireDue && !o.SalaryDue(time.Now()) {
			return offer.ErrNotDue
		}

		amount := o.EthAmount
		result, notice, shortfall, err = s.disburse(ctx, &o, d, amount, payment.KindSalary, 0)
		return err
	})
	if err != nil {
		s.notifyNeedsFunding(ctx, offerID, employer, shortfall, err)
		return offer.PaymentResponse{}, err
	}

	s.publish(notice)
	return result, nil
}

func (s *OfferServiceImpl) payHours(ctx context.Context, offerID string, d disbursement) (offer.PaymentResponse, error) {
	var (
		result    offer.PaymentResponse
		notice    *notification.Notification
		shortfall decimal.Decimal
		employer  string
	)
	err := postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		o, err := s.OfferRepository.GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		employer = o.EmployerID

		if d.caller != "" {
			if o.EmployerID != d.caller && o.EmployeeID != d.caller {
				return offer.ErrInvalidOffer
			}
			if o.EmployerID != d.caller {
				return offer.ErrUnauthorized
			}
		}
		if o.Type != offer.TypeHourly {
			return offer.ErrInvalidOfferType
		}
		// Closed offers keep settling residual hours; only unsigned ones
		// cannot pay.
		if o.State == offer.StateUnsigned {
			return offer.ErrInvalidState
		}
		if d.requireDue && !o.HoursDue() {
			return offer.ErrNotDue
		}

		// No accrued hours is a successful no-op: nothing moves, no fee.
		if o.WorkedHours == 0 {
			result = offer.PaymentResponse{
				OfferID:    o.ID,
				EmployeeID: o.EmployeeID,
				Amount:     decimal.Zero,
				Fee:        decimal.Zero,
			}
			return nil
		}

		amount := o.EthAmount.Mul(decimal.NewFromInt(o.WorkedHours))
		result, notice, shortfall, err = s.disburse(ctx, &o, d, amount, payment.KindHourly, o.WorkedHours)
		return err
	})
	if err != nil {
		s.notifyNeedsFunding(ctx, offerID, employer, shortfall, err)
		return offer.PaymentResponse{}, err
	}

	s.publish(notice)
	return result, nil
}

// disburse moves one payment out of a locked offer's escrow. When escrow
// cannot cover the amount and auto funding is enabled, the gap is topped up
// from the employer's ledger balance inside the same transaction. Operator
// triggers additionally draw the flat fee from the employer's balance. A
// funding failure reports the total shortfall so the employer can be told
// how much to add.
func (s *OfferServiceImpl) disburse(
	ctx context.Context,
	o *offer.Offer,
	d disbursement,
	amount decimal.Decimal,
	kind payment.Kind,
	paidHours int64,
) (offer.PaymentResponse, *notification.Notification, decimal.Decimal, error) {
	fee := decimal.Zero
	if d.operator != "" {
		fee = s.converter.OperatorFee()
	}

	balances, err := s.lockAccounts(ctx, o.EmployerID, o.EmployeeID, d.operator)
	if err != nil {
		return offer.PaymentResponse{}, nil, decimal.Zero, err
	}

	// How much must come out of the employer's unlocked balance.
	fromBalance := fee
	gap := decimal.Zero
	if o.EscrowedBalance.LessThan(amount) {
		gap = amount.Sub(o.EscrowedBalance)
		if !o.AutoFundEnabled {
			return offer.PaymentResponse{}, nil, gap, offer.ErrInsufficientEscrow
		}
		fromBalance = fromBalance.Add(gap)
	}
	if balances[o.EmployerID].LessThan(fromBalance) {
		return offer.PaymentResponse{}, nil, fromBalance.Sub(balances[o.EmployerID]), offer.ErrInsufficientEscrow
	}

	if fromBalance.IsPositive() {
		balances[o.EmployerID] = balances[o.EmployerID].Sub(fromBalance)
		if err := s.AccountRepository.UpdateBalance(ctx, o.EmployerID, balances[o.EmployerID]); err != nil {
			return offer.PaymentResponse{}, nil, decimal.Zero, fmt.Errorf("failed to debit employer balance: %w", err)
		}
	}
	if gap.IsPositive() {
		o.EscrowedBalance = o.EscrowedBalance.Add(gap)
		if _, err := s.PaymentRepository.Record(ctx, payment.Entry{
			OfferID:     &o.ID,
			FromAccount: &o.EmployerID,
			Kind:        payment.KindEscrowTopUp,
			Amount:      gap,
		}); err != nil {
			return offer.PaymentResponse{}, nil, decimal.Zero, err
		}
	}

	balances[o.EmployeeID] = balances[o.EmployeeID].Add(amount)
	if err := s.AccountRepository.UpdateBalance(ctx, o.EmployeeID, balances[o.EmployeeID]); err != nil {
		return offer.PaymentResponse{}, nil, decimal.Zero, fmt.Errorf("failed to credit employee: %w", err)
	}

	if fee.IsPositive() {
		balances[d.operator] = balances[d.operator].Add(fee)
		if err := s.AccountRepository.UpdateBalance(ctx, d.operator, balances[d.operator]); err != nil {
			return offer.PaymentResponse{}, nil, decimal.Zero, fmt.Errorf("failed to credit trigger fee: %w", err)
		}
		if _, err := s.PaymentRepository.Record(ctx, payment.Entry{
			OfferID:     &o.ID,
			FromAccount: &o.EmployerID,
			ToAccount:   &d.operator,
			Kind:        payment.KindOperatorFee,
			Amount:      fee,
		}); err != nil {
			return offer.PaymentResponse{}, nil, decimal.Zero, err
		}
	}

	if _, err := s.PaymentRepository.Record(ctx, payment.Entry{
		OfferID:     &o.ID,
		FromAccount: &o.EmployerID,
		ToAccount:   &o.EmployeeID,
		Kind:        kind,
		Amount:      amount,
	}); err != nil {
		return offer.PaymentResponse{}, nil, decimal.Zero, err
	}

	o.EscrowedBalance = o.EscrowedBalance.Sub(amount)
	if err := s.OfferRepository.RecordPayment(ctx, o.ID, o.EscrowedBalance, 0, time.Now()); err != nil {
		return offer.PaymentResponse{}, nil, decimal.Zero, err
	}

	notice := s.buildNotification(o.EmployeeID, o.ID, notification.TypeSalaryPaid,
		"Payment received",
		fmt.Sprintf("You received a payment of %s settlement units", amount),
		map[string]interface{}{"offer_id": o.ID, "amount": amount.String(), "kind": string(kind)})
	if err := s.notificationRepo.Create(ctx, notice); err != nil {
		return offer.PaymentResponse{}, nil, decimal.Zero, err
	}

	return offer.PaymentResponse{
		OfferID:    o.ID,
		EmployeeID: o.EmployeeID,
		Amount:     amount,
		Fee:        fee,
		PaidHours:  paidHours,
	}, notice, decimal.Zero, nil
}

// lockAccounts locks the participating account rows in ascending id order
// so payments that touch the same accounts from different offers cannot
// deadlock on each other. Returns the current balance per account id.
func (s *OfferServiceImpl) lockAccounts(ctx context.Context, ids ...string) (map[string]decimal.Decimal, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	balances := make(map[string]decimal.Decimal, len(uniq))
	for _, id := range uniq {
		acc, err := s.AccountRepository.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		balances[id] = acc.Balance
	}
	return balances, nil
}

// notifyNeedsFunding records a funding alert for the employer after a payment
// transaction rolled back. The alert is written in its own transaction so it
// survives the rollback.
func (s *OfferServiceImpl) notifyNeedsFunding(ctx context.Context, offerID, employerID string, shortfall decimal.Decimal, cause error) {
	if employerID == "" || !shortfall.IsPositive() {
		return
	}

	notice := s.buildNotification(employerID, offerID, notification.TypeContractNeedsFunding,
		"Contract needs funding",
		fmt.Sprintf("A payment could not be made; add at least %s settlement units", shortfall),
		map[string]interface{}{
			"offer_id":  offerID,
			"shortfall": shortfall.String(),
			"reason":    cause.Error(),
		})
	if err := s.notificationRepo.Create(ctx, notice); err != nil {
		return
	}
	s.publish(notice)
}

func (s *OfferServiceImpl) buildNotification(recipientID, offerID string, typ notification.NotificationType, title, message string, data map[string]interface{}) *notification.Notification {
	return &notification.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		OfferID:     &offerID,
		Type:        typ,
		Title:       title,
		Message:     message,
		Data:        data,
		CreatedAt:   time.Now(),
	}
}

func (s *OfferServiceImpl) publish(n *notification.Notification) {
	if n == nil {
		return
	}
	s.hub.Publish(n.RecipientID, sse.Event{
		AccountID: n.RecipientID,
		Event:     string(n.Type),
		Data:      notification.ToResponse(n),
	})
}
