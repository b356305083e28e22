// Package relay decides whether a chat message warrants translation,
// performs it, and builds the view to send back.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"transbot/internal/domain"
	"transbot/internal/metrics"
	"transbot/internal/presentation"
	"transbot/internal/sanitize"
	"transbot/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

// ConfidenceThreshold is the minimum detector confidence that triggers an
// auto-relay. The bound is inclusive.
const ConfidenceThreshold = 0.7

// Controller runs the relay pipeline. It holds no per-message state and is
// safe for concurrent use.
type Controller struct {
	detector   domain.Detector
	translator domain.Translator
	allowed    map[string]bool
	target     domain.LanguageCode
	logger     *slog.Logger
}

// ControllerConfig holds the controller's collaborators.
type ControllerConfig struct {
	Detector   domain.Detector
	Translator domain.Translator
	// AllowedScopes restricts auto-relay to these scope IDs. Empty means
	// no restriction.
	AllowedScopes []string
	Target        domain.LanguageCode
	Logger        *slog.Logger
}

// NewController wires a controller. Target defaults to English.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Target == "" {
		cfg.Target = domain.English
	}
	allowed := make(map[string]bool, len(cfg.AllowedScopes))
	for _, id := range cfg.AllowedScopes {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = true
		}
	}
	return &Controller{
		detector:   cfg.Detector,
		translator: cfg.Translator,
		allowed:    allowed,
		target:     cfg.Target,
		logger:     cfg.Logger,
	}
}

// Relay evaluates an inbound chat message. A nil presentation with a nil
// error means the message was suppressed; the Decision says why.
func (c *Controller) Relay(ctx context.Context, msg domain.InboundMessage) (Decision, *domain.Presentation, error) {
	logger := telemetry.Logger(ctx, c.logger)

	if d, ok := c.admit(msg); !ok {
		return d, nil, nil
	}

	sanitized := sanitize.Strip(msg.Content)

	detection, err := c.detector.Detect(ctx, sanitized.Text)
	if err != nil {
		logger.Warn("language detection failed", "detector", c.detector.Name(), "err", err)
		return DecisionDetectionDeclined, nil, nil
	}
	if d, ok := c.gate(detection); !ok {
		return d, nil, nil
	}

	result, err := c.translate(ctx, "auto", sanitized.Text, c.target, "")
	if err != nil {
		return DecisionFailed, nil, err
	}

	if isNoOp(result, sanitized.Text) {
		logger.Debug("translation was a no-op",
			"src", result.SourceLanguage,
			"dest", result.DestLanguage,
		)
		return DecisionNoOp, nil, nil
	}

	result.Text = sanitize.Restore(result.Text, sanitized.Tokens)

	p, err := presentation.Build(result, domain.MessageContext{
		Author:    msg.Author,
		SourceURL: msg.SourceURL,
	})
	if err != nil {
		return DecisionFailed, nil, err
	}
	return DecisionRelayed, p, nil
}

// CommandRequest is a manual translate invocation.
type CommandRequest struct {
	Author domain.Author
	Text   string
	To     domain.LanguageCode
	From   domain.LanguageCode // empty or "auto" = provider detection
}

// Translate runs the manual command path: no gate, no idempotence check.
func (c *Controller) Translate(ctx context.Context, req CommandRequest) (*domain.Presentation, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInputContract)
	}
	to := req.To
	if to.IsAuto() {
		to = c.target
	}
	from := req.From
	if from.IsAuto() {
		from = ""
	}

	sanitized := sanitize.Strip(req.Text)
	result, err := c.translate(ctx, "command", sanitized.Text, to, from)
	if err != nil {
		return nil, err
	}
	result.Text = sanitize.Restore(result.Text, sanitized.Tokens)

	return presentation.Build(result, domain.CommandContext{Author: req.Author})
}

// Inspect sanitizes and detects text, then applies the confidence gate
// without translating. Detector errors are returned as is.
func (c *Controller) Inspect(ctx context.Context, text string) (*domain.Detection, Decision, error) {
	sanitized := sanitize.Strip(text)
	d, err := c.detector.Detect(ctx, sanitized.Text)
	if err != nil {
		return nil, DecisionFailed, err
	}
	decision, _ := c.gate(d)
	return d, decision, nil
}

// admit is the predicate chain evaluated before any detection work.
func (c *Controller) admit(msg domain.InboundMessage) (Decision, bool) {
	if msg.FromSelf {
		return DecisionSelf, false
	}
	if len(c.allowed) > 0 && msg.Scope.Scoped && !c.allowed[msg.Scope.ID] {
		return DecisionOutOfScope, false
	}
	return DecisionRelayed, true
}

func (c *Controller) gate(d *domain.Detection) (Decision, bool) {
	switch {
	case d == nil:
		return DecisionDetectionDeclined, false
	case d.Language.Equal(c.target):
		return DecisionAlreadyTarget, false
	case d.Confidence < ConfidenceThreshold:
		return DecisionBelowThreshold, false
	}
	return DecisionRelayed, true
}

func (c *Controller) translate(ctx context.Context, path, text string, dest, src domain.LanguageCode) (*domain.TranslationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "relay.translate",
		attribute.String("provider", c.translator.Name()),
		attribute.String("path", path),
		attribute.String("dest", string(dest)),
	)
	defer span.End()

	start := time.Now()
	result, err := c.translator.Translate(ctx, text, dest, src)
	metrics.ObserveTranslation(c.translator.Name(), time.Since(start))
	if err != nil {
		metrics.TranslationsTotal.WithLabelValues(path, "error").Inc()
		telemetry.RecordError(span, err)
		var pe *domain.TranslationProviderError
		if !errors.As(err, &pe) {
			err = &domain.TranslationProviderError{Provider: c.translator.Name(), Err: err}
		}
		return nil, err
	}
	metrics.TranslationsTotal.WithLabelValues(path, "ok").Inc()
	if result.DestLanguage == "" {
		result.DestLanguage = dest
	}
	return result, nil
}

// isNoOp reports whether the provider found nothing to translate.
func isNoOp(result *domain.TranslationResult, source string) bool {
	return strings.EqualFold(result.Text, source) ||
		result.SourceLanguage.Equal(result.DestLanguage)
}
