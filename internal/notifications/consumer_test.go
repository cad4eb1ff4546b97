package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spotixhq/spotix-backend/pkg/enums"
	"github.com/spotixhq/spotix-backend/pkg/logger"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
	"github.com/spotixhq/spotix-backend/pkg/outbox/payloads"
)

type fakeMailer struct {
	sent []Email
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, email Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

type fakeGuard struct {
	processed map[uuid.UUID]bool
	deleted   []uuid.UUID
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{processed: map[uuid.UUID]bool{}}
}

func (f *fakeGuard) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if f.processed[eventID] {
		return true, nil
	}
	f.processed[eventID] = true
	return false, nil
}

func (f *fakeGuard) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	f.deleted = append(f.deleted, eventID)
	delete(f.processed, eventID)
	return nil
}

func testConsumer(mailer Mailer, guard idempotencyGuard) *Consumer {
	return &Consumer{
		mailer:      mailer,
		idempotency: guard,
		logg:        logger.New(logger.Options{ServiceName: "notifications-test", Level: zerolog.Disabled}),
	}
}

func onboardedEnvelope(t *testing.T, email string) []byte {
	t.Helper()
	data, err := json.Marshal(payloads.AgentOnboardedEvent{
		UserID:  uuid.New(),
		AgentID: "SPTA12345678AB",
		Email:   email,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return envelope
}

func TestProcessSendsOnboardingEmail(t *testing.T) {
	mailer := &fakeMailer{}
	consumer := testConsumer(mailer, newFakeGuard())

	result := consumer.process(context.Background(), string(enums.EventAgentOnboarded), "m1", onboardedEnvelope(t, "agent@spotix.test"))
	if !result.ack {
		t.Fatal("expected ack")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "agent@spotix.test" {
		t.Fatalf("unexpected mail: %+v", mailer.sent)
	}
}

func TestProcessSkipsOtherEventTypes(t *testing.T) {
	mailer := &fakeMailer{}
	consumer := testConsumer(mailer, newFakeGuard())

	result := consumer.process(context.Background(), string(enums.EventTicketPurchased), "m1", []byte(`{}`))
	if !result.ack || len(mailer.sent) != 0 {
		t.Fatalf("non-agent events must ack without mail, got %+v", result)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	mailer := &fakeMailer{}
	guard := newFakeGuard()
	consumer := testConsumer(mailer, guard)
	envelope := onboardedEnvelope(t, "agent@spotix.test")

	consumer.process(context.Background(), string(enums.EventAgentOnboarded), "m1", envelope)
	result := consumer.process(context.Background(), string(enums.EventAgentOnboarded), "m1-redelivery", envelope)
	if !result.ack {
		t.Fatal("redelivery must ack")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected exactly one mail, got %d", len(mailer.sent))
	}
}

func TestProcessNacksOnMailFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	guard := newFakeGuard()
	consumer := testConsumer(mailer, guard)

	result := consumer.process(context.Background(), string(enums.EventAgentOnboarded), "m1", onboardedEnvelope(t, "agent@spotix.test"))
	if !result.nack {
		t.Fatal("expected nack on mail failure")
	}
	if len(guard.deleted) != 1 {
		t.Fatal("idempotency mark must be released for retry")
	}
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	mailer := &fakeMailer{}
	consumer := testConsumer(mailer, newFakeGuard())

	result := consumer.process(context.Background(), string(enums.EventAgentOnboarded), "m1", []byte(`not-json`))
	if !result.ack {
		t.Fatal("poison messages must ack, not loop")
	}
}
