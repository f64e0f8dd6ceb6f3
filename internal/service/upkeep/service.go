package upkeep

import (
	"context"
	"errors"
	"time"

	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/domain/upkeep"
)

// UpkeepServiceImpl sweeps the offer set for due payments. The sweep itself
// holds no locks: each candidate is re-evaluated inside its own payment
// transaction, so a stale candidate list only produces skips, never double
// payments.
type UpkeepServiceImpl struct {
	offerRepo    offer.OfferRepository
	offerService offer.OfferService
}

func NewUpkeepService(offerRepo offer.OfferRepository, offerService offer.OfferService) upkeep.UpkeepService {
	return &UpkeepServiceImpl{
		offerRepo:    offerRepo,
		offerService: offerService,
	}
}

// CheckDue implements upkeep.UpkeepService.
func (s *UpkeepServiceImpl) CheckDue(ctx context.Context) (bool, error) {
	due, err := s.offerRepo.ListDue(ctx, time.Now())
	if err != nil {
		return false, err
	}
	return len(due) > 0, nil
}

// TriggerDue implements upkeep.UpkeepService.
func (s *UpkeepServiceImpl) TriggerDue(ctx context.Context, operatorID string) (upkeep.SweepReport, error) {
	candidates, err := s.offerRepo.ListDue(ctx, time.Now())
	if err != nil {
		return upkeep.SweepReport{}, err
	}

	report := upkeep.SweepReport{Results: make([]upkeep.SweepResult, 0, len(candidates))}
	for _, o := range candidates {
		var (
			paid offer.PaymentResponse
			err  error
		)
		switch o.Type {
		case offer.TypeSalary:
			paid, err = s.offerService.PayMonthlyAsOperator(ctx, o.ID, operatorID)
		case offer.TypeHourly:
			paid, err = s.offerService.PayWorkedHoursAsOperator(ctx, o.ID, operatorID)
		}

		result := upkeep.SweepResult{OfferID: o.ID}
		switch {
		case err == nil:
			result.Outcome = upkeep.OutcomePaid
			result.Amount = paid.Amount
			report.Paid++
		case errors.Is(err, offer.ErrNotDue):
			// Another trigger already paid this window.
			result.Outcome = upkeep.OutcomeSkipped
			report.Skipped++
		default:
			result.Outcome = upkeep.OutcomeFailed
			result.Error = err.Error()
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	return report, nil
}
