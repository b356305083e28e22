package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"transbot/internal/domain"
	"transbot/internal/metrics"
	"transbot/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

const defaultConcurrency = 8

// Loop consumes inbound messages from the bus and hands each one to the
// controller in its own goroutine.
type Loop struct {
	controller  *Controller
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
	wg          sync.WaitGroup
}

// LoopConfig holds the loop's dependencies.
type LoopConfig struct {
	Controller  *Controller
	Bus         domain.MessageBus
	Logger      *slog.Logger
	Concurrency int // max messages handled at once (default 8)
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Loop{
		controller:  cfg.Controller,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run blocks until ctx is cancelled or the bus is closed, then waits for
// in-flight handlers to finish.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("relay loop started", "concurrency", l.concurrency)
	defer l.wg.Wait()

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("relay loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, relay loop stopping")
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			l.wg.Add(1)
			go func(m domain.InboundMessage) {
				defer l.wg.Done()
				defer func() { <-sem }()
				l.Handle(ctx, m)
			}(msg)
		}
	}
}

// Handle processes one inbound message synchronously.
func (l *Loop) Handle(ctx context.Context, msg domain.InboundMessage) {
	metrics.InflightMessages.Inc()
	defer metrics.InflightMessages.Dec()
	metrics.MessagesTotal.WithLabelValues(msg.Channel, string(msg.Kind)).Inc()

	ctx, _ = telemetry.WithCorrelation(ctx, "")
	ctx, span := telemetry.StartSpan(ctx, "relay.handle",
		attribute.String("channel", msg.Channel),
		attribute.String("kind", string(msg.Kind)),
	)
	defer span.End()

	logger := telemetry.Logger(ctx, l.logger).With("channel", msg.Channel, "chat_id", msg.ChatID)

	switch msg.Kind {
	case domain.KindCommand:
		l.handleCommand(ctx, logger, msg)
	default:
		l.handleMessage(ctx, logger, msg)
	}
}

func (l *Loop) handleMessage(ctx context.Context, logger *slog.Logger, msg domain.InboundMessage) {
	decision, p, err := l.controller.Relay(ctx, msg)
	metrics.RelayDecisions.WithLabelValues(decision.String()).Inc()
	if err != nil {
		// Auto-relay failures stay silent in chat.
		var pe *domain.TranslationProviderError
		if errors.As(err, &pe) {
			logger.Warn("translation provider failed, dropping message", "provider", pe.Provider, "err", pe.Err)
		} else {
			logger.Error("relay failed", "err", err)
		}
		return
	}
	if p == nil {
		logger.Debug("message suppressed", "decision", decision.String())
		return
	}

	logger.Info("relaying translation", "message_id", msg.MessageID, "footer", p.Footer)
	l.bus.SendOutbound(domain.OutboundMessage{
		Channel:      msg.Channel,
		ChatID:       msg.ChatID,
		ReplyTo:      msg.MessageID,
		Presentation: p,
	})
}

func (l *Loop) handleCommand(ctx context.Context, logger *slog.Logger, msg domain.InboundMessage) {
	out := domain.OutboundMessage{
		Channel:          msg.Channel,
		ChatID:           msg.ChatID,
		ReplyTo:          msg.MessageID,
		InteractionToken: msg.InteractionToken,
	}

	if msg.Command == nil {
		logger.Error("command message without arguments")
		out.Error = "Missing command arguments."
		l.bus.SendOutbound(out)
		return
	}

	p, err := l.controller.Translate(ctx, CommandRequest{
		Author: msg.Author,
		Text:   msg.Command.Text,
		To:     msg.Command.To,
		From:   msg.Command.From,
	})
	if err != nil {
		logger.Warn("translate command failed", "to", msg.Command.To, "from", msg.Command.From, "err", err)
		out.Error = commandErrorText(err)
	} else {
		out.Presentation = p
	}
	l.bus.SendOutbound(out)
}

func commandErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrInputContract):
		return "Nothing to translate."
	default:
		var pe *domain.TranslationProviderError
		if errors.As(err, &pe) {
			return "Translation failed. Check the language codes and try again."
		}
		return "Translation failed."
	}
}
