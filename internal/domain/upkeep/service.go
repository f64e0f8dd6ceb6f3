package upkeep

import "context"

// UpkeepService is the trigger sweep over all registered offers. Any caller
// may invoke it; the operator account passed to TriggerDue collects the flat
// fee for every payment it successfully triggers.
type UpkeepService interface {
	// CheckDue is a read-only scan: true when at least one offer has a
	// payment due right now.
	CheckDue(ctx context.Context) (bool, error)

	// TriggerDue pays every due offer. Offers are processed independently:
	// a failure on one offer is reported in the sweep result and never
	// aborts the rest. Offers already paid within the current due window
	// are skipped, so back-to-back sweeps disburse at most once per offer.
	TriggerDue(ctx context.Context, operatorID string) (SweepReport, error)
}
