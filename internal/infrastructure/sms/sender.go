package sms

import (
	"context"
	"errors"
)

// ErrSMSDisabled is returned when the gateway is not enabled in configuration.
var ErrSMSDisabled = errors.New("sms gateway is disabled")

// Sender delivers a text message to a single recipient and returns the
// gateway-assigned message ID when available.
type Sender interface {
	Send(ctx context.Context, to, message string) (string, error)
	Enabled() bool
}
