// Package adapters bridges external clients onto application interfaces.
package adapters

import (
	"context"

	"recon-cloud/internal/ledgeradapter"
	"recon-cloud/internal/reconciliation/application"
	recon "recon-cloud/internal/reconciliation/domain"
)

// LedgerAdapter adapts the ledger REST client to the workflow's LedgerClient.
type LedgerAdapter struct {
	client *ledgeradapter.Client
}

// NewLedgerAdapter constructs the adapter.
func NewLedgerAdapter(client *ledgeradapter.Client) *LedgerAdapter {
	return &LedgerAdapter{client: client}
}

func (a *LedgerAdapter) ParseStatement(ctx context.Context, upload recon.StatementUpload) (*recon.Statement, error) {
	return a.client.ParseStatement(ctx, upload)
}

func (a *LedgerAdapter) MatchOperations(ctx context.Context, statement recon.Statement) (recon.MatchOutcome, error) {
	return a.client.MatchOperations(ctx, statement)
}

func (a *LedgerAdapter) ConfirmReconciliation(ctx context.Context, payload []byte) (application.Receipt, error) {
	receipt, err := a.client.ConfirmReconciliation(ctx, payload)
	if err != nil {
		return application.Receipt{}, err
	}
	return application.Receipt{ReceiptID: receipt.ReceiptID, RecordedAt: receipt.RecordedAt}, nil
}
