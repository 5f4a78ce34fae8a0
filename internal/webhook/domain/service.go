package domain

import (
	"context"

	"github.com/smallbiznis/blastwave/internal/whatsapp"
)

type Service interface {
	// Reconcile applies every status entry of a webhook payload
	// idempotently. Per-entry failures are logged and skipped; the provider
	// is never handed a processing error.
	Reconcile(ctx context.Context, payload *whatsapp.WebhookPayload)
}
