package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"transbot/internal/bus"
	"transbot/internal/domain"
)

type outboundRecorder struct {
	mu  sync.Mutex
	got []domain.OutboundMessage
}

func (r *outboundRecorder) record(m domain.OutboundMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
}

func (r *outboundRecorder) messages() []domain.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.OutboundMessage(nil), r.got...)
}

func newTestLoop(det *fakeDetector, tr *fakeTranslator) (*Loop, *bus.InMemoryBus, *outboundRecorder) {
	b := bus.New(10, testLogger())
	rec := &outboundRecorder{}
	b.OnOutbound("discord", rec.record)
	l := NewLoop(LoopConfig{
		Controller: newTestController(det, tr),
		Bus:        b,
		Logger:     testLogger(),
	})
	return l, b, rec
}

func TestHandle_RelayedMessageRepliesToSource(t *testing.T) {
	det := &fakeDetector{detection: &domain.Detection{Language: "es", Confidence: 0.9}}
	tr := &fakeTranslator{text: "hello friend", src: "es"}
	l, _, rec := newTestLoop(det, tr)

	l.Handle(context.Background(), chatMessage("hola amigo"))

	got := rec.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(got))
	}
	if got[0].ReplyTo != "msg-1" || got[0].ChatID != "chan-1" {
		t.Fatalf("reply not threaded to source: %+v", got[0])
	}
	if got[0].Presentation == nil || got[0].Presentation.Body != "hello friend" {
		t.Fatalf("unexpected presentation %+v", got[0].Presentation)
	}
}

func TestHandle_SuppressedMessageSendsNothing(t *testing.T) {
	det := &fakeDetector{detection: &domain.Detection{Language: "es", Confidence: 0.5}}
	l, _, rec := newTestLoop(det, &fakeTranslator{text: "x"})

	l.Handle(context.Background(), chatMessage("hola"))

	if n := len(rec.messages()); n != 0 {
		t.Fatalf("expected no outbound messages, got %d", n)
	}
}

func TestHandle_AutoRelayProviderErrorIsSilent(t *testing.T) {
	det := &fakeDetector{detection: &domain.Detection{Language: "es", Confidence: 0.9}}
	l, _, rec := newTestLoop(det, &fakeTranslator{err: errNetwork})

	l.Handle(context.Background(), chatMessage("hola"))

	if n := len(rec.messages()); n != 0 {
		t.Fatalf("auto-relay failures must not reach chat, got %d messages", n)
	}
}

func TestHandle_CommandResponds(t *testing.T) {
	l, _, rec := newTestLoop(&fakeDetector{}, &fakeTranslator{text: "hello", src: "es"})

	l.Handle(context.Background(), domain.InboundMessage{
		Channel:          "discord",
		Kind:             domain.KindCommand,
		ChatID:           "chan-1",
		InteractionToken: "tok",
		Author:           domain.Author{DisplayName: "Ana"},
		Command:          &domain.CommandArgs{Text: "hola", To: "en"},
	})

	got := rec.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 response, got %d", len(got))
	}
	if got[0].InteractionToken != "tok" || got[0].Presentation == nil || got[0].Error != "" {
		t.Fatalf("unexpected command response %+v", got[0])
	}
}

func TestHandle_CommandProviderErrorIsVisible(t *testing.T) {
	l, _, rec := newTestLoop(&fakeDetector{}, &fakeTranslator{err: errNetwork})

	l.Handle(context.Background(), domain.InboundMessage{
		Channel: "discord",
		Kind:    domain.KindCommand,
		Command: &domain.CommandArgs{Text: "hola", To: "en"},
	})

	got := rec.messages()
	if len(got) != 1 || got[0].Error == "" || got[0].Presentation != nil {
		t.Fatalf("expected a user-visible error response, got %+v", got)
	}
}

func TestHandle_CommandWithoutArgs(t *testing.T) {
	l, _, rec := newTestLoop(&fakeDetector{}, &fakeTranslator{})

	l.Handle(context.Background(), domain.InboundMessage{Channel: "discord", Kind: domain.KindCommand})

	got := rec.messages()
	if len(got) != 1 || got[0].Error == "" {
		t.Fatalf("expected error response, got %+v", got)
	}
}

func TestRun_ProcessesUntilBusClosed(t *testing.T) {
	det := &fakeDetector{detection: &domain.Detection{Language: "fr", Confidence: 0.9}}
	l, b, rec := newTestLoop(det, &fakeTranslator{text: "hello", src: "fr"})

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	for i := 0; i < 5; i++ {
		b.Publish(chatMessage("bonjour"))
	}
	b.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after bus close")
	}
	if n := len(rec.messages()); n != 5 {
		t.Fatalf("expected 5 replies, got %d", n)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	l, _, _ := newTestLoop(&fakeDetector{}, &fakeTranslator{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func TestDecision_String(t *testing.T) {
	if DecisionBelowThreshold.String() != "below_threshold" {
		t.Fatalf("unexpected %q", DecisionBelowThreshold.String())
	}
	if Decision(99).String() != "unknown" {
		t.Fatal("expected unknown for out-of-range decision")
	}
}
