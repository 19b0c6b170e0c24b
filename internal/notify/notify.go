// Package notify delivers transition events to outside channels.
// Delivery is at-least-once; consumers that care use the event's
// DedupKey to drop replays.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mhemmati/statuswatch/internal/domain"
)

type Notifier interface {
	Send(ctx context.Context, ev domain.TransitionEvent) error
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, ev domain.TransitionEvent) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// render produces the human-facing title and body shared by the text
// channels.
func render(ev domain.TransitionEvent) (title, body string) {
	when := ev.Timestamp.UTC().Format("2006-01-02 15:04 UTC")
	switch ev.Kind {
	case domain.TransitionRecovered:
		title = "Service Recovered"
		body = fmt.Sprintf("All components are operational again as of %s.", when)
	default:
		title = "Service Incident"
		body = fmt.Sprintf("A service disruption was detected at %s.", when)
	}
	if len(ev.AffectedChecks) > 0 {
		body += "\nAffected: " + strings.Join(ev.AffectedChecks, ", ")
	}
	return title, body
}
