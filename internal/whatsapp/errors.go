package whatsapp

import (
	"errors"
	"fmt"
)

// SendError is a structured Graph API failure.
type SendError struct {
	Code    int
	Subcode int
	Message string
	Status  int
}

func (e *SendError) Error() string {
	return fmt.Sprintf("whatsapp send failed: code=%d subcode=%d %s", e.Code, e.Subcode, e.Message)
}

// throttleCodes are the Graph API error codes that demand back-off rather
// than a plain retry.
var throttleCodes = map[int]struct{}{
	4:      {}, // API too many calls
	80007:  {}, // WABA rate limit
	130429: {}, // cloud API throughput reached
	131048: {}, // spam rate limit
	131056: {}, // pair rate limit
	133016: {}, // account register rate limit
}

// IsThrottleError reports whether err is a provider throttling failure.
func IsThrottleError(err error) bool {
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		return false
	}
	_, ok := throttleCodes[sendErr.Code]
	return ok
}

var (
	ErrChannelNotConfigured = errors.New("whatsapp_channel_not_configured")
	ErrEmptyRecipient       = errors.New("whatsapp_empty_recipient")
)
