package domain

import (
	"strings"

	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
)

// MapProviderStatus translates the provider's status vocabulary into the
// internal message status. Unknown strings map to QUEUED.
func MapProviderStatus(provider string) campaigndomain.MessageStatus {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "sent":
		return campaigndomain.MessageStatusSent
	case "delivered":
		return campaigndomain.MessageStatusDelivered
	case "read":
		return campaigndomain.MessageStatusRead
	case "failed":
		return campaigndomain.MessageStatusFailed
	default:
		return campaigndomain.MessageStatusQueued
	}
}
