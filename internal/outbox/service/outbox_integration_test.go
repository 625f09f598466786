//go:build integration

package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"sportsfest/internal/outbox/publisher"
	"sportsfest/internal/outbox/service"
	eventstore "sportsfest/internal/outbox/store/event"
	"sportsfest/pkg/platform/tx"
	"sportsfest/pkg/testutil/containers"
)

// dbTx opens a real transaction per call; the relay claims each batch
// through it.
type dbTx struct {
	db *sql.DB
}

func (t dbTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type envelope struct {
	ID          string          `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type OutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *eventstore.PostgresStore
	recorder *service.Recorder
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.store = eventstore.NewPostgres(s.postgres.DB)
	s.recorder = service.NewRecorder(s.store)
}

func (s *OutboxSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "outbox_events")
	s.Require().NoError(err)
}

// newTopic provisions a fresh topic so each test consumes only what it
// produced.
func (s *OutboxSuite) newTopic() string {
	topic := fmt.Sprintf("outbox-it-%s", uuid.NewString()[:8])
	err := s.redpanda.CreateTopic(context.Background(), topic)
	s.Require().NoError(err)
	return topic
}

func (s *OutboxSuite) consume(topic string, want int) []envelope {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	deadline := time.Now().Add(15 * time.Second)
	var got []envelope
	for len(got) < want && time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		fetches := client.PollFetches(ctx)
		cancel()
		fetches.EachRecord(func(record *kgo.Record) {
			var e envelope
			s.Require().NoError(json.Unmarshal(record.Value, &e))
			s.Equal(e.AggregateID, string(record.Key), "records are keyed by aggregate id")
			got = append(got, e)
		})
	}
	s.Require().Len(got, want)
	return got
}

// TestDrainDeliversCommittedEvents records events through the write side,
// drains, and reads them back off the broker.
func (s *OutboxSuite) TestDrainDeliversCommittedEvents() {
	ctx := context.Background()
	topic := s.newTopic()

	kafka, err := publisher.NewKafka([]string{s.redpanda.Broker}, topic)
	s.Require().NoError(err)
	defer kafka.Close()

	relay := service.NewRelay(s.store, dbTx{db: s.postgres.DB}, kafka)

	registrationID := uuid.NewString()
	s.Require().NoError(s.recorder.Record(ctx, "registration.confirmed", registrationID, map[string]string{"status": "confirmed"}))
	s.Require().NoError(s.recorder.Record(ctx, "registration.paid", registrationID, map[string]string{"status": "paid"}))
	s.Require().NoError(s.recorder.Record(ctx, "payment.succeeded", uuid.NewString(), nil))

	backlog, err := s.store.CountUnpublished(ctx)
	s.Require().NoError(err)
	s.Equal(3, backlog)

	s.Require().NoError(relay.Drain(ctx))

	backlog, err = s.store.CountUnpublished(ctx)
	s.Require().NoError(err)
	s.Equal(0, backlog, "drain should stamp everything it delivered")

	got := s.consume(topic, 3)
	types := make([]string, len(got))
	for i, e := range got {
		types[i] = e.EventType
	}
	s.ElementsMatch([]string{"registration.confirmed", "registration.paid", "payment.succeeded"}, types)
	s.Equal(registrationID, got[0].AggregateID)
	s.JSONEq(`{"status":"confirmed"}`, string(got[0].Payload))
}

// TestDrainDeliversEachEventOnce drains twice and verifies the second pass
// publishes nothing.
func (s *OutboxSuite) TestDrainDeliversEachEventOnce() {
	ctx := context.Background()
	topic := s.newTopic()

	kafka, err := publisher.NewKafka([]string{s.redpanda.Broker}, topic)
	s.Require().NoError(err)
	defer kafka.Close()

	relay := service.NewRelay(s.store, dbTx{db: s.postgres.DB}, kafka)

	s.Require().NoError(s.recorder.Record(ctx, "sponsorship.approved", uuid.NewString(), nil))
	s.Require().NoError(relay.Drain(ctx))
	s.Require().NoError(relay.Drain(ctx))

	s.consume(topic, 1)
}

// TestListenerWakesOnInsert verifies the insert trigger reaches a LISTEN
// subscriber, which is what lets the relay react ahead of its poll timer.
func (s *OutboxSuite) TestListenerWakesOnInsert() {
	listener, err := service.NewListener(s.postgres.URL)
	s.Require().NoError(err)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		_ = listener.Run(runCtx)
	}()

	s.Require().NoError(s.recorder.Record(context.Background(), "registration.created", uuid.NewString(), nil))

	select {
	case <-listener.Wake():
	case <-time.After(5 * time.Second):
		s.Fail("expected a wake signal after the outbox insert")
	}
}
