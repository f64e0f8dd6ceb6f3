package ledger

import (
	"context"
	"fmt"
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

// LedgerServiceImpl moves funds between the pooled ledger and offer escrows.
// Every mutating operation runs in one transaction over FOR UPDATE rows;
// lock order is offer row first, then account rows, so that concurrent
// operations serialize instead of deadlocking.
type LedgerServiceImpl struct {
	db         *database.DB
	converter  *converter.Converter
	hub        *sse.Hub
	operatorID string
	account.AccountRepository
	offer.OfferRepository
	payment.PaymentRepository
	notificationRepo notification.Repository
}

func NewLedgerService(
	db *database.DB,
	conv *converter.Converter,
	hub *sse.Hub,
	operatorID string,
	accountRepo account.AccountRepository,
	offerRepo offer.OfferRepository,
	paymentRepo payment.PaymentRepository,
	notificationRepo notification.Repository,
) account.LedgerService {
	return &LedgerServiceImpl{
		db:                db,
		converter:         conv,
		hub:               hub,
		operatorID:        operatorID,
		AccountRepository: accountRepo,
		OfferRepository:   offerRepo,
		PaymentRepository: paymentRepo,
		notificationRepo:  notificationRepo,
	}
}

// Deposit implements account.LedgerService.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req account.DepositRequest) (account.BalanceResponse, error) {
	if err := req.Validate(); err != nil {
		return account.BalanceResponse{}, err
	}

	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return account.BalanceResponse{}, err
	}

	var balance decimal.Decimal
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		acc, err := s.AccountRepository.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		balance = acc.Balance.Add(req.Amount)
		if err := s.AccountRepository.UpdateBalance(ctx, accountID, balance); err != nil {
			return fmt.Errorf("failed to credit deposit: %w", err)
		}

		_, err = s.PaymentRepository.Record(ctx, payment.Entry{
			ToAccount: &acc.ID,
			Kind:      payment.KindDeposit,
			Amount:    req.Amount,
		})
		return err
	})
	if err != nil {
		return account.BalanceResponse{}, err
	}

	return account.BalanceResponse{AccountID: accountID, Balance: balance}, nil
}

// Balance implements account.LedgerService.
func (s *LedgerServiceImpl) Balance(ctx context.Context) (account.BalanceResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return account.BalanceResponse{}, err
	}

	acc, err := s.AccountRepository.GetByID(ctx, accountID)
	if err != nil {
		return account.BalanceResponse{}, err
	}

	return account.BalanceResponse{AccountID: acc.ID, Balance: acc.Balance}, nil
}

// CountRequiredFund implements account.LedgerService.
func (s *LedgerServiceImpl) CountRequiredFund(ctx context.Context, req offer.RequiredFundRequest) (offer.RequiredFundResponse, error) {
	if err := req.Validate(); err != nil {
		return offer.RequiredFundResponse{}, err
	}

	offerType, _ := offer.ParseOfferType(req.Type)
	currency, _ := offer.ParseCurrency(req.Currency)

	quote, err := s.converter.Quote(ctx, req.Amount, currency, offerType, req.AutoFundEnabled)
	if err != nil {
		return offer.RequiredFundResponse{}, err
	}

	return offer.RequiredFundResponse{
		RequiredFund: quote.Required,
		PerPeriod:    quote.PerPeriod,
	}, nil
}

// CreateJobOffer implements account.LedgerService. The required funding is
// moved out of the employer's balance in the same transaction that inserts
// the offer; for auto-funded offers the flat operator fee is paid to the
// operator immediately and only the remainder lands in escrow.
func (s *LedgerServiceImpl) CreateJobOffer(ctx context.Context, req offer.CreateOfferRequest) (offer.OfferResponse, error) {
	if err := req.Validate(); err != nil {
		return offer.OfferResponse{}, err
	}

	employerID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	offerType, _ := offer.ParseOfferType(req.Type)
	currency, _ := offer.ParseCurrency(req.Currency)

	// Oracle round trips stay outside the transaction.
	quote, err := s.converter.Quote(ctx, req.Amount, currency, offerType, req.AutoFundEnabled)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	var (
		created offer.Offer
		notice  *notification.Notification
	)
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		employee, err := s.AccountRepository.GetByID(ctx, req.EmployeeID)
		if err != nil {
			return err
		}

		employer, err := s.AccountRepository.GetForUpdate(ctx, employerID)
		if err != nil {
			return err
		}
		if employer.Balance.LessThan(quote.Required) {
			return account.ErrInsufficientFunds
		}

		if err := s.AccountRepository.UpdateBalance(ctx, employer.ID, employer.Balance.Sub(quote.Required)); err != nil {
			return fmt.Errorf("failed to reserve offer funding: %w", err)
		}

		escrow := quote.Required
		if req.AutoFundEnabled {
			fee := s.converter.OperatorFee()
			escrow = escrow.Sub(fee)

			operator, err := s.AccountRepository.GetForUpdate(ctx, s.operatorID)
			if err != nil {
				return fmt.Errorf("failed to lock operator account: %w", err)
			}
			if err := s.AccountRepository.UpdateBalance(ctx, operator.ID, operator.Balance.Add(fee)); err != nil {
				return fmt.Errorf("failed to credit creation fee: %w", err)
			}
		}

		created, err = s.OfferRepository.Create(ctx, offer.Offer{
			EmployerID:      employer.ID,
			EmployeeID:      employee.ID,
			Type:            offerType,
			State:           offer.StateUnsigned,
			Amount:          req.Amount,
			Currency:        currency,
			EthAmount:       quote.PerPeriod,
			DurationSeconds: req.DurationSeconds,
			AutoFundEnabled: req.AutoFundEnabled,
			EscrowedBalance: escrow,
		})
		if err != nil {
			return err
		}

		if _, err := s.PaymentRepository.Record(ctx, payment.Entry{
			OfferID:     &created.ID,
			FromAccount: &employer.ID,
			Kind:        payment.KindEscrowReserve,
			Amount:      escrow,
		}); err != nil {
			return err
		}
		if req.AutoFundEnabled {
			if _, err := s.PaymentRepository.Record(ctx, payment.Entry{
				OfferID:     &created.ID,
				FromAccount: &employer.ID,
				ToAccount:   &s.operatorID,
				Kind:        payment.KindOperatorFee,
				Amount:      s.converter.OperatorFee(),
			}); err != nil {
				return err
			}
		}

		notice = &notification.Notification{
			ID:          uuid.New().String(),
			RecipientID: employee.ID,
			OfferID:     &created.ID,
			Type:        notification.TypeOfferCreated,
			Title:       "New job offer",
			Message:     fmt.Sprintf("You received a %s offer of %s %s", offerType, req.Amount, currency),
			Data: map[string]interface{}{
				"offer_id":    created.ID,
				"employer_id": employer.ID,
				"type":        string(offerType),
				"amount":      req.Amount.String(),
				"currency":    string(currency),
			},
			CreatedAt: time.Now(),
		}
		return s.notificationRepo.Create(ctx, notice)
	})
	if err != nil {
		return offer.OfferResponse{}, err
	}

	s.publish(notice)
	return offer.ToResponse(created), nil
}

// FundJobOffer implements account.LedgerService.
func (s *LedgerServiceImpl) FundJobOffer(ctx context.Context, offerID string, req offer.FundOfferRequest) (offer.OfferResponse, error) {
	if err := req.Validate(); err != nil {
		return offer.OfferResponse{}, err
	}

	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return offer.OfferResponse{}, err
	}

	var topped offer.Offer
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		o, err := s.OfferRepository.GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if o.EmployerID != accountID && o.EmployeeID != accountID {
			return offer.ErrInvalidOffer
		}
		if o.State == offer.StateClosed {
			return offer.ErrInvalidState
		}

		funder, err := s.AccountRepository.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if funder.Balance.LessThan(req.Amount) {
			return account.ErrInsufficientFunds
		}

		if err := s.AccountRepository.UpdateBalance(ctx, funder.ID, funder.Balance.Sub(req.Amount)); err != nil {
			return fmt.Errorf("failed to debit escrow top up: %w", err)
		}

		o.EscrowedBalance = o.EscrowedBalance.Add(req.Amount)
		if err := s.OfferRepository.UpdateEscrow(ctx, o.ID, o.EscrowedBalance); err != nil {
			return err
		}

		_, err = s.PaymentRepository.Record(ctx, payment.Entry{
			OfferID:     &o.ID,
			FromAccount: &funder.ID,
			Kind:        payment.KindEscrowTopUp,
			Amount:      req.Amount,
		})
		if err != nil {
			return err
		}

		topped = o
		return nil
	})
	if err != nil {
		return offer.OfferResponse{}, err
	}

	return offer.ToResponse(topped), nil
}

// Withdraw implements account.LedgerService. The whole unlocked balance
// leaves the ledger; an employer with any offer still open cannot withdraw.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context) (account.WithdrawResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return account.WithdrawResponse{}, err
	}

	var amount decimal.Decimal
	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		// Lock the account row before counting so a concurrent offer
		// creation (which locks the same row) cannot slip an open offer
		// in between the check and the debit.
		acc, err := s.AccountRepository.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		open, err := s.OfferRepository.CountNonClosedByEmployer(ctx, accountID)
		if err != nil {
			return err
		}
		if open > 0 {
			return account.ErrWithdrawalBlocked
		}
		if !acc.Balance.IsPositive() {
			return account.ErrNothingToWithdraw
		}

		amount = acc.Balance
		if err := s.AccountRepository.UpdateBalance(ctx, acc.ID, decimal.Zero); err != nil {
			return fmt.Errorf("failed to withdraw balance: %w", err)
		}

		_, err = s.PaymentRepository.Record(ctx, payment.Entry{
			FromAccount: &acc.ID,
			Kind:        payment.KindWithdrawal,
			Amount:      amount,
		})
		return err
	})
	if err != nil {
		return account.WithdrawResponse{}, err
	}

	return account.WithdrawResponse{AccountID: accountID, Amount: amount}, nil
}

// History implements account.LedgerService.
func (s *LedgerServiceImpl) History(ctx context.Context, limit int) ([]payment.EntryResponse, error) {
	accountID, err := jwt.AccountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.PaymentRepository.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	return payment.ToResponseList(entries), nil
}

// publish pushes a committed notification to the recipient's open streams.
func (s *LedgerServiceImpl) publish(n *notification.Notification) {
	if n == nil {
		return
	}
	s.hub.Publish(n.RecipientID, sse.Event{
		AccountID: n.RecipientID,
		Event:     string(n.Type),
		Data:      notification.ToResponse(n),
	})
}
