package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"meetsync/models"
	"meetsync/services/calendar"
	"meetsync/utils"

	"go.uber.org/zap"
)

// transientRetryBudget bounds retries of the availability re-check and of
// transient event-creation failures. Only the idempotency token guards
// against duplicate creates, never retry suppression alone.
const transientRetryBudget = 2

func retryBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 500 * time.Millisecond
}

// ConfirmationToken fingerprints one confirmed booking intent. Computed
// once at confirmation time; two commits with the same token are the
// same booking.
func ConfirmationToken(email string, slot models.BookingSlot) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", email, slot.Start.Unix(), slot.End.Unix())))
	return hex.EncodeToString(sum[:])
}

// Transaction performs the at-most-once booking commit: fresh
// availability re-check, event creation, outcome classification.
type Transaction struct {
	gateway calendar.Gateway

	mu        sync.Mutex
	committed map[string]*models.BookingResult
}

func NewTransaction(gateway calendar.Gateway) *Transaction {
	return &Transaction{
		gateway:   gateway,
		committed: make(map[string]*models.BookingResult),
	}
}

// Commit books the requested slot. The slot is perishable: the original
// proposal may be stale, so availability is re-validated against fresh
// busy data covering exactly the slot's window before the create call.
// A duplicate token returns the cached first result without a second
// create.
func (tx *Transaction) Commit(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error) {
	logger := utils.GetLogger()

	tx.mu.Lock()
	if cached, ok := tx.committed[req.Token]; ok {
		tx.mu.Unlock()
		logger.Info("duplicate booking commit suppressed", zap.String("token", req.Token))
		return cached, nil
	}
	tx.mu.Unlock()

	window := models.SlotWindow{Start: req.Slot.Start, End: req.Slot.End, Timezone: req.Slot.Timezone}
	busy, err := tx.queryBusyWithRetry(ctx, window)
	if err != nil {
		return nil, err
	}

	for _, b := range busy {
		// Strict overlap only; touching intervals do not conflict.
		if req.Slot.Start.Before(b.End) && b.Start.Before(req.Slot.End) {
			return nil, &SlotConflictError{Slot: req.Slot.String()}
		}
	}

	event, err := tx.createWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &models.BookingResult{
		EventID: event.EventID,
		Link:    event.Link,
		Status:  models.BookingStatusConfirmed,
	}

	tx.mu.Lock()
	tx.committed[req.Token] = result
	tx.mu.Unlock()

	logger.Info("booking committed",
		zap.String("eventID", result.EventID),
		zap.String("attendee", req.User.Email))
	return result, nil
}

func (tx *Transaction) queryBusyWithRetry(ctx context.Context, window models.SlotWindow) ([]models.BusyInterval, error) {
	var lastErr error
	for attempt := 0; attempt <= transientRetryBudget; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		busy, err := tx.gateway.QueryBusy(ctx, window)
		if err == nil {
			return busy, nil
		}
		lastErr = err
		if !calendar.IsTransient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (tx *Transaction) createWithRetry(ctx context.Context, req models.BookingRequest) (*models.CalendarEvent, error) {
	logger := utils.GetLogger()
	summary := fmt.Sprintf("Meeting with %s", req.User.Name)

	var lastErr error
	for attempt := 0; attempt <= transientRetryBudget; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		event, err := tx.gateway.CreateEvent(ctx, req.Slot, summary, req.User.Email)
		if err == nil {
			return event, nil
		}
		lastErr = err
		if !calendar.IsTransient(err) {
			return nil, err
		}
		logger.Warn("transient event creation failure, retrying",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}
