package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sportsfest/internal/outbox/models"
	eventstore "sportsfest/internal/outbox/store/event"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/tx"
	"sportsfest/pkg/requestcontext"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]*models.Event
	err     error
}

func (p *capturePublisher) Publish(_ context.Context, events []*models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	batch := make([]*models.Event, len(events))
	copy(batch, events)
	p.batches = append(p.batches, batch)
	return nil
}

func (p *capturePublisher) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *capturePublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, batch := range p.batches {
		n += len(batch)
	}
	return n
}

func (p *capturePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, batch := range p.batches {
		for _, event := range batch {
			out = append(out, event.EventType)
		}
	}
	return out
}

type OutboxServiceSuite struct {
	suite.Suite

	store     *eventstore.InMemory
	recorder  *Recorder
	publisher *capturePublisher
	relay     *Relay

	now time.Time
	ctx context.Context
}

func TestOutboxServiceSuite(t *testing.T) {
	suite.Run(t, new(OutboxServiceSuite))
}

func (s *OutboxServiceSuite) SetupTest() {
	s.store = eventstore.NewInMemory()
	s.recorder = NewRecorder(s.store)
	s.publisher = &capturePublisher{}
	s.relay = NewRelay(s.store, tx.Nop{}, s.publisher, WithBatchSize(2))
	s.now = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *OutboxServiceSuite) record(offset time.Duration, eventType, aggregateID string, payload any) {
	ctx := requestcontext.WithTime(context.Background(), s.now.Add(offset))
	s.Require().NoError(s.recorder.Record(ctx, eventType, aggregateID, payload))
}

func (s *OutboxServiceSuite) unpublished() int {
	count, err := s.store.CountUnpublished(s.ctx)
	s.Require().NoError(err)
	return count
}

func (s *OutboxServiceSuite) TestRecord() {
	s.Run("records event with payload", func() {
		s.record(0, "registration.confirmed", "reg-1", map[string]string{"student_id": "stu-1"})

		events, err := s.store.ListUnpublished(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal("registration.confirmed", events[0].EventType)
		s.Equal("reg-1", events[0].AggregateID)
		s.JSONEq(`{"student_id":"stu-1"}`, string(events[0].Payload))
		s.Equal(s.now, events[0].CreatedAt)
		s.False(events[0].Published())
	})

	s.Run("nil payload records event without body", func() {
		s.record(time.Second, "registration.cancelled", "reg-2", nil)

		events, err := s.store.ListUnpublished(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Empty(events[1].Payload)
	})

	s.Run("empty event type is rejected", func() {
		err := s.recorder.Record(s.ctx, "", "reg-3", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *OutboxServiceSuite) TestDrainDeliversOldestFirstInBatches() {
	for i := 0; i < 5; i++ {
		s.record(time.Duration(i)*time.Second, "payment.settled", "pay-1", nil)
	}

	s.Require().NoError(s.relay.Drain(s.ctx))

	s.Equal(0, s.unpublished())
	s.Equal(5, s.publisher.total())

	s.publisher.mu.Lock()
	batchSizes := make([]int, 0, len(s.publisher.batches))
	for _, batch := range s.publisher.batches {
		batchSizes = append(batchSizes, len(batch))
	}
	s.publisher.mu.Unlock()
	s.Equal([]int{2, 2, 1}, batchSizes)
}

func (s *OutboxServiceSuite) TestDrainEmptyOutboxPublishesNothing() {
	s.Require().NoError(s.relay.Drain(s.ctx))
	s.Equal(0, s.publisher.total())
}

func (s *OutboxServiceSuite) TestDrainKeepsEventsOnPublishFailure() {
	s.record(0, "sponsorship.approved", "spn-1", nil)
	s.record(time.Second, "sponsorship.rejected", "spn-2", nil)

	s.publisher.fail(errors.New("broker down"))
	err := s.relay.Drain(s.ctx)
	s.Require().Error(err)
	s.Equal(2, s.unpublished())

	// Once the broker recovers the same events go out.
	s.publisher.fail(nil)
	s.Require().NoError(s.relay.Drain(s.ctx))
	s.Equal(0, s.unpublished())
	s.Equal([]string{"sponsorship.approved", "sponsorship.rejected"}, s.publisher.eventTypes())
}

func (s *OutboxServiceSuite) TestRunDrainsOnWake() {
	wake := make(chan struct{}, 1)
	relay := NewRelay(s.store, tx.Nop{}, s.publisher,
		WithBatchSize(10),
		WithPollInterval(time.Hour),
		WithWake(wake),
	)
	s.record(0, "payment.settled", "pay-9", nil)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() {
		done <- relay.Run(ctx)
	}()

	wake <- struct{}{}
	s.Require().Eventually(func() bool {
		return s.publisher.total() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Require().ErrorIs(<-done, context.Canceled)
}
