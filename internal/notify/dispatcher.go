package notify

import (
	"context"
	"log/slog"
	"strings"

	"gitrelay/internal/log"
)

// DeliveryResult is the outcome of one dispatch.
type DeliveryResult struct {
	Succeeded bool

	// Attempted lists every session address tried, in order.
	Attempted []string

	// Session is the address that accepted the message, if any.
	Session string

	// LastErr is the error from the final failed attempt.
	LastErr error
}

// Dispatcher resolves destination tokens to session addresses and sends.
type Dispatcher struct {
	transport Transport
	adapters  []string
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. adapters are platform adapter names
// in candidate priority order; empty defaults to aiocqhttp.
func NewDispatcher(transport Transport, adapters []string) *Dispatcher {
	if len(adapters) == 0 {
		adapters = []string{"aiocqhttp"}
	}
	return &Dispatcher{
		transport: transport,
		adapters:  adapters,
		logger:    log.WithComponent("notify"),
	}
}

// Send tries each candidate address for destination until one succeeds.
func (d *Dispatcher) Send(ctx context.Context, destination, message string) DeliveryResult {
	var result DeliveryResult

	for _, session := range d.Candidates(destination) {
		result.Attempted = append(result.Attempted, session)

		err := d.transport.Send(ctx, session, message)
		if err == nil {
			result.Succeeded = true
			result.Session = session
			d.logger.Info("notification delivered", "session", session)
			return result
		}

		result.LastErr = err
		d.logger.Warn("delivery attempt failed", "session", session, "error", err)
	}

	d.logger.Error("all delivery attempts failed",
		"destination", destination,
		"attempted", strings.Join(result.Attempted, ", "),
		"error", result.LastErr,
	)
	return result
}

// Candidates derives the ordered session addresses for a destination.
//
// A token containing ':' is a fully-formed session origin and is used
// verbatim. A token containing '_' may be a legacy composite, so it is
// tried verbatim before any derived forms. Otherwise the token is treated
// as a bare group ID and combined with each adapter name, current scheme
// before the legacy one.
func (d *Dispatcher) Candidates(destination string) []string {
	if strings.Contains(destination, ":") {
		return []string{destination}
	}

	var out []string
	if strings.Contains(destination, "_") {
		out = append(out, destination)
	}
	for _, adapter := range d.adapters {
		out = append(out, adapter+":GroupMessage:"+destination)
	}
	for _, adapter := range d.adapters {
		out = append(out, adapter+"_group_"+destination)
	}
	return out
}
