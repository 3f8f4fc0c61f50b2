package booking

import (
	"context"
	"fmt"
	"time"

	"meetsync/models"
	"meetsync/services/availability"
	"meetsync/services/calendar"
	"meetsync/utils"

	"go.uber.org/zap"
)

// Between 3 and 5 slots are presented; fewer than 3 are still shown
// rather than hidden, more than 5 are cut.
const maxProposedSlots = 5

// buildProposal queries the gateway for busy time over the window, runs
// the availability computation, and packages the leading slots as a
// fresh proposal. Returns EmptyAvailabilityError when nothing fits.
func (e *Engine) buildProposal(ctx context.Context, window models.SlotWindow, now time.Time) (*models.SlotProposal, error) {
	logger := utils.GetLogger()

	busy, err := e.queryBusyWithRetry(ctx, window)
	if err != nil {
		return nil, err
	}

	slots := availability.FreeSlots(window, busy, e.slotDuration)

	// Drop slots that have already started.
	fresh := slots[:0]
	for _, s := range slots {
		if s.Start.After(now) {
			fresh = append(fresh, s)
		}
	}
	slots = fresh

	if len(slots) == 0 {
		return nil, &EmptyAvailabilityError{
			Window: fmt.Sprintf("%s - %s", window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339)),
		}
	}

	if len(slots) > maxProposedSlots {
		slots = slots[:maxProposedSlots]
	}

	logger.Debug("slot proposal built",
		zap.Int("busyIntervals", len(busy)),
		zap.Int("proposedSlots", len(slots)))

	return &models.SlotProposal{
		Slots:       slots,
		Window:      window,
		GeneratedAt: now,
	}, nil
}

// queryBusyWithRetry retries the availability query on transient gateway
// failures within the fixed retry budget.
func (e *Engine) queryBusyWithRetry(ctx context.Context, window models.SlotWindow) ([]models.BusyInterval, error) {
	logger := utils.GetLogger()

	var lastErr error
	for attempt := 0; attempt <= transientRetryBudget; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		busy, err := e.gateway.QueryBusy(ctx, window)
		if err == nil {
			return busy, nil
		}
		lastErr = err
		if !calendar.IsTransient(err) {
			return nil, err
		}
		logger.Warn("transient availability query failure, retrying",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}
