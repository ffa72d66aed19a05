package interfaces

import (
	"context"
	"errors"
	"log"

	"recon-cloud/internal/notify"
	"recon-cloud/internal/reconciliation/application"
	recon "recon-cloud/internal/reconciliation/domain"
)

// ResultWriter archives confirmed results.
type ResultWriter interface {
	Save(ctx context.Context, result recon.ReconciliationResult) error
}

// ArchiveConsumer persists every confirmed reconciliation. The event carries
// the full result so the consumer never reads the superseded session.
type ArchiveConsumer struct {
	store  ResultWriter
	logger *log.Logger
}

// NewArchiveConsumer constructs the consumer.
func NewArchiveConsumer(store ResultWriter, logger *log.Logger) (*ArchiveConsumer, error) {
	if store == nil {
		return nil, errors.New("archive consumer: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ArchiveConsumer{store: store, logger: logger}, nil
}

// HandleReconciliationConfirmed archives the result.
func (c *ArchiveConsumer) HandleReconciliationConfirmed(ctx context.Context, event any) error {
	evt, ok := asConfirmed(event)
	if !ok {
		return nil
	}
	c.logger.Printf("archiving result id=%s session=%s", evt.ResultID, evt.SessionID)
	return c.store.Save(ctx, evt.Result)
}

// NotifyConsumer pushes a webhook notification for confirmed sessions.
// Notification failures are logged, never retried against the archive.
type NotifyConsumer struct {
	notifier notify.Notifier
	logger   *log.Logger
}

// NewNotifyConsumer constructs the consumer.
func NewNotifyConsumer(notifier notify.Notifier, logger *log.Logger) (*NotifyConsumer, error) {
	if notifier == nil {
		return nil, errors.New("notify consumer: nil notifier")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &NotifyConsumer{notifier: notifier, logger: logger}, nil
}

// HandleReconciliationConfirmed sends the notification.
func (c *NotifyConsumer) HandleReconciliationConfirmed(ctx context.Context, event any) error {
	evt, ok := asConfirmed(event)
	if !ok {
		return nil
	}
	level := notify.LevelInfo
	if !evt.Result.Summary.BalanceGap.IsZero() {
		level = notify.LevelWarning
	}
	msg := notify.AlertMessage{
		Level:          level,
		TenantID:       evt.TenantID,
		SessionID:      evt.SessionID,
		ResultID:       evt.ResultID,
		AccountLabel:   evt.Result.Statement.AccountLabel,
		OperationCount: evt.Result.Summary.OperationCount,
		MatchRate:      evt.Result.Summary.MatchRate,
		BalanceGap:     evt.Result.Summary.BalanceGap.StringFixed(2),
		Comments:       evt.Result.Comments,
	}
	if err := c.notifier.Notify(ctx, msg); err != nil {
		c.logger.Printf("confirmation notify failed session=%s: %v", evt.SessionID, err)
	}
	return nil
}

func asConfirmed(event any) (application.ReconciliationConfirmed, bool) {
	switch e := event.(type) {
	case application.ReconciliationConfirmed:
		return e, true
	case *application.ReconciliationConfirmed:
		if e == nil {
			return application.ReconciliationConfirmed{}, false
		}
		return *e, true
	default:
		return application.ReconciliationConfirmed{}, false
	}
}
