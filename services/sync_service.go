package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"payment-sync-service/models"
	"payment-sync-service/repository"

	"go.uber.org/zap"
)

// Outcome classifies what processing one event did. Only OutcomeApplied
// mutates a payment; the others are logged anomalies that skip the event
// but still move the cursor past it.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeUnknownTransfer
	OutcomeUnknownEventType
	OutcomeUnrecognizedStatus
	OutcomeIllegalTransition
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeUnknownTransfer:
		return "unknown_transfer"
	case OutcomeUnknownEventType:
		return "unknown_event_type"
	case OutcomeUnrecognizedStatus:
		return "unrecognized_current_status"
	case OutcomeIllegalTransition:
		return "illegal_transition"
	default:
		return "unknown"
	}
}

// ErrSyncInProgress is returned when a sync pass is already running.
// Callers triggered by webhooks treat it as benign: the in-flight pass
// will pick up the new events.
var ErrSyncInProgress = errors.New("payment sync already in progress")

const (
	defaultBatchSize = 20
	// Guard against a rail that never clears has_more.
	maxBatchesPerPass = 500
)

// StatusEventProducer publishes applied transitions for downstream
// services. Failures are logged, never propagated into the sync.
type StatusEventProducer interface {
	SendStatusEvent(event models.PaymentStatusEvent) error
}

// SyncService pulls transfer events from the rail and applies them to
// local payments in strict event-id order, advancing a durable cursor.
type SyncService struct {
	repo         repository.PaymentRepository
	rail         TransferRail
	producer     StatusEventProducer
	logger       *zap.Logger
	startSyncNum int64
	batchSize    int

	// Serializes overlapping sync passes; overlapping triggers (webhook +
	// manual) must not race on the cursor.
	mu sync.Mutex
}

// NewSyncService wires the engine. producer may be nil when no Kafka
// fan-out is configured.
func NewSyncService(repo repository.PaymentRepository, rail TransferRail, producer StatusEventProducer, startSyncNum int64, logger *zap.Logger) *SyncService {
	return &SyncService{
		repo:         repo,
		rail:         rail,
		producer:     producer,
		logger:       logger,
		startSyncNum: startSyncNum,
		batchSize:    defaultBatchSize,
	}
}

// SyncPaymentData pulls all outstanding transfer events from the rail and
// applies them, returning the cursor position reached. Rail or store
// failures abort the pass without persisting a cursor past the last event
// actually handled; the next invocation resumes from the previous durable
// cursor and re-processing is idempotent.
func (s *SyncService) SyncPaymentData(ctx context.Context) (int64, error) {
	if !s.mu.TryLock() {
		return 0, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	lastSyncNum, found, err := s.repo.GetLastSyncNum(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load sync cursor: %w", err)
	}
	if !found {
		lastSyncNum = s.startSyncNum
		s.logger.Info("No stored sync cursor, starting from configured value",
			zap.Int64("start_sync_num", lastSyncNum),
		)
	}
	s.logger.Info("Starting payment event sync", zap.Int64("last_sync_num", lastSyncNum))

	fetchMore := true
	for batches := 0; fetchMore; batches++ {
		if batches >= maxBatchesPerPass {
			s.logger.Error("Batch cap reached, rail keeps reporting more events; ending pass early",
				zap.Int("batches", batches),
				zap.Int64("last_sync_num", lastSyncNum),
			)
			break
		}

		page, err := s.rail.SyncEvents(ctx, lastSyncNum, s.batchSize)
		if err != nil {
			return lastSyncNum, fmt.Errorf("failed to fetch transfer events: %w", err)
		}

		// The rail does not guarantee order within a page.
		events := make([]models.TransferEvent, len(page.TransferEvents))
		copy(events, page.TransferEvents)
		sort.Slice(events, func(i, j int) bool {
			return events[i].EventID < events[j].EventID
		})

		for _, event := range events {
			outcome, err := s.processEvent(ctx, event)
			if err != nil {
				// Store connectivity failure; leave the cursor before this
				// event so it is redelivered next pass.
				return lastSyncNum, err
			}
			if outcome != OutcomeApplied {
				s.logger.Info("Event skipped",
					zap.Int64("event_id", event.EventID),
					zap.String("outcome", outcome.String()),
				)
			}
			// The lower bound is exclusive, but a misbehaving rail must
			// not regress the cursor.
			if event.EventID > lastSyncNum {
				lastSyncNum = event.EventID
			}
		}

		fetchMore = page.HasMore
	}

	if err := s.repo.SetLastSyncNum(ctx, lastSyncNum); err != nil {
		return lastSyncNum, fmt.Errorf("failed to persist sync cursor: %w", err)
	}
	s.logger.Info("Payment event sync complete", zap.Int64("last_sync_num", lastSyncNum))
	return lastSyncNum, nil
}

// processEvent applies one rail event to one payment. Anomalies are
// handled locally and reported as an Outcome; only store connectivity
// failures return an error.
func (s *SyncService) processEvent(ctx context.Context, event models.TransferEvent) (Outcome, error) {
	payment, err := s.repo.GetPaymentByTransferID(ctx, event.TransferID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up payment for transfer %s: %w", event.TransferID, err)
	}
	if payment == nil {
		// The rail account may be shared with another application.
		s.logger.Warn("No payment found for transfer, it may belong to another application",
			zap.Int64("event_id", event.EventID),
			zap.String("transfer_id", event.TransferID),
		)
		return OutcomeUnknownTransfer, nil
	}

	if !models.KnownStatus(event.EventType) {
		s.logger.Error("Unknown event type",
			zap.Int64("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
		)
		return OutcomeUnknownEventType, nil
	}

	allowed, ok := models.AllowedNext(payment.Status)
	if !ok {
		// Local data integrity problem, distinct from a normal reject.
		s.logger.Error("Payment has a status missing from the transition table",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return OutcomeUnrecognizedStatus, nil
	}

	if !containsStatus(allowed, event.EventType) {
		// Normally only seen when a batch of events is re-processed after
		// a crash or retry.
		s.logger.Error("Illegal status transition, skipping event",
			zap.Int64("event_id", event.EventID),
			zap.String("payment_id", payment.ID.String()),
			zap.String("from", string(payment.Status)),
			zap.String("to", string(event.EventType)),
		)
		return OutcomeIllegalTransition, nil
	}

	errorMessage := ""
	if event.FailureReason != nil {
		errorMessage = event.FailureReason.Description
	}

	oldStatus := payment.Status
	s.logger.Info("Updating payment status",
		zap.String("payment_id", payment.ID.String()),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(event.EventType)),
	)
	if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, event.EventType, payment.BillID, errorMessage); err != nil {
		return 0, fmt.Errorf("failed to update payment %s: %w", payment.ID, err)
	}

	s.publishStatusEvent(payment, oldStatus, event, errorMessage)
	return OutcomeApplied, nil
}

func (s *SyncService) publishStatusEvent(payment *models.Payment, oldStatus models.Status, event models.TransferEvent, errorMessage string) {
	if s.producer == nil {
		return
	}
	statusEvent := models.PaymentStatusEvent{
		Type:         "payment_" + strings.ToLower(string(event.EventType)),
		PaymentID:    payment.ID.String(),
		BillID:       payment.BillID.String(),
		TransferID:   payment.TransferID,
		OldStatus:    string(oldStatus),
		NewStatus:    string(event.EventType),
		ErrorMessage: errorMessage,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.producer.SendStatusEvent(statusEvent); err != nil {
		s.logger.Error("Failed to publish payment status event",
			zap.String("payment_id", payment.ID.String()),
			zap.String("type", statusEvent.Type),
			zap.Error(err),
		)
	}
}

func containsStatus(set []models.Status, s models.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
