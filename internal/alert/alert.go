// Package alert delivers rendered signal messages to external channels.
package alert

import "context"

// Channel accepts a rendered message. Delivery failure is the caller's to
// log; channels do not retry indefinitely.
type Channel interface {
	Send(ctx context.Context, message string) error
}
