package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"gitrelay/internal/event"
	"gitrelay/internal/format"
	"gitrelay/internal/history"
	"gitrelay/internal/log"
	"gitrelay/internal/metrics"
	"gitrelay/internal/notify"
	"gitrelay/internal/registry"
)

// Status tags a terminal processing outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusIgnored Status = "ignored"
	StatusError   Status = "error"
)

// Outcome is the terminal result of processing one webhook request.
type Outcome struct {
	Status     Status
	Code       int
	Message    string
	DeliveryID string
}

// RegistrationLookup is the slice of the registration store the processor
// needs.
type RegistrationLookup interface {
	Lookup(repoURL string) (registry.Registration, bool)
}

// Notifier dispatches a formatted message to a destination token.
type Notifier interface {
	Send(ctx context.Context, destination, message string) notify.DeliveryResult
}

// Processor drives one webhook request through lookup, verification,
// parsing, formatting and dispatch.
type Processor struct {
	registrations RegistrationLookup
	notifier      Notifier
	ledger        *history.Store
	logger        *slog.Logger
}

// NewProcessor creates a processor. ledger may be nil to disable the
// delivery history.
func NewProcessor(regs RegistrationLookup, notifier Notifier, ledger *history.Store) *Processor {
	return &Processor{
		registrations: regs,
		notifier:      notifier,
		ledger:        ledger,
		logger:        log.WithComponent("webhook"),
	}
}

// Process handles one request. eventKind and signature come from the
// request headers; body is the raw payload bytes the signature covers.
//
// Lookup deliberately precedes signature verification: the secret is
// per-repository, so there is nothing to verify against until the
// registration is known. Unmonitored repositories are expected traffic
// and terminate as ignored, without touching the verifier.
func (p *Processor) Process(ctx context.Context, eventKind, signature string, body []byte) Outcome {
	deliveryID := uuid.NewString()
	logger := log.WithDelivery(deliveryID).With("component", "webhook", "event", eventKind)

	if eventKind == "" {
		logger.Warn("missing event kind header")
		return p.finish(ctx, Outcome{
			Status: StatusError, Code: http.StatusBadRequest,
			Message: "missing event kind header", DeliveryID: deliveryID,
		}, "", eventKind)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Warn("invalid JSON payload", "error", err)
		return p.finish(ctx, Outcome{
			Status: StatusError, Code: http.StatusBadRequest,
			Message: "invalid JSON payload", DeliveryID: deliveryID,
		}, "", eventKind)
	}

	repoURL := event.RepositoryURL(payload)
	if repoURL == "" {
		logger.Warn("payload missing repository URL")
		return p.finish(ctx, Outcome{
			Status: StatusError, Code: http.StatusBadRequest,
			Message: "missing repository URL", DeliveryID: deliveryID,
		}, "", eventKind)
	}
	logger = logger.With("repo", repoURL)

	reg, ok := p.registrations.Lookup(repoURL)
	if !ok {
		logger.Info("repository not monitored")
		return p.finish(ctx, Outcome{
			Status: StatusIgnored, Code: http.StatusOK,
			Message: "repository not monitored", DeliveryID: deliveryID,
		}, repoURL, eventKind)
	}

	if err := VerifySignature(body, signature, reg.Secret); err != nil {
		metrics.SignatureFailures.Inc()
		logger.Warn("signature verification failed",
			"secret_fp", registry.SecretFingerprint(reg.Secret),
		)
		return p.finish(ctx, Outcome{
			Status: StatusError, Code: http.StatusUnauthorized,
			Message: "invalid signature", DeliveryID: deliveryID,
		}, repoURL, eventKind)
	}

	ev, err := event.Parse(eventKind, payload)
	if err != nil {
		logger.Warn("event not parsed", "error", err)
		return p.finish(ctx, Outcome{
			Status: StatusIgnored, Code: http.StatusOK,
			Message: "unsupported event", DeliveryID: deliveryID,
		}, repoURL, eventKind)
	}

	message := format.Format(ev)

	result := p.notifier.Send(ctx, reg.Destination, message)
	metrics.DeliveryAttempts.Add(float64(len(result.Attempted)))
	if !result.Succeeded {
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		logger.Error("notification delivery failed",
			"destination", reg.Destination,
			"attempted", result.Attempted,
			"error", result.LastErr,
		)
		return p.finish(ctx, Outcome{
			Status: StatusError, Code: http.StatusBadRequest,
			Message: "notification delivery failed", DeliveryID: deliveryID,
		}, repoURL, eventKind)
	}

	metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
	logger.Info("notification sent", "session", result.Session)
	return p.finish(ctx, Outcome{
		Status: StatusSuccess, Code: http.StatusOK,
		Message: "notification sent", DeliveryID: deliveryID,
	}, repoURL, eventKind)
}

// finish records the outcome in metrics and the ledger. Ledger failures
// are logged and swallowed; they never change the response.
func (p *Processor) finish(ctx context.Context, out Outcome, repoURL, eventKind string) Outcome {
	metrics.WebhooksTotal.WithLabelValues(string(out.Status)).Inc()

	if err := p.ledger.Append(ctx, history.Record{
		ID:     out.DeliveryID,
		Repo:   repoURL,
		Event:  eventKind,
		Status: string(out.Status),
		Detail: out.Message,
	}); err != nil {
		p.logger.Warn("history append failed", "error", err)
	}
	return out
}
