package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/distributed-ledger/internal/broker/mocks"
	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

type fakeChannel struct {
	confirms  chan amqp.Confirmation
	published []amqp.Publishing
	keys      []string
	ack       bool
	closed    bool
}

func (c *fakeChannel) Confirm(bool) error { return nil }

func (c *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	c.confirms = confirm
	return confirm
}

func (c *fakeChannel) PublishWithContext(
	_ context.Context,
	_, key string,
	_, _ bool,
	msg amqp.Publishing,
) error {
	c.published = append(c.published, msg)
	c.keys = append(c.keys, key)
	c.confirms <- amqp.Confirmation{DeliveryTag: uint64(len(c.published)), Ack: c.ack}
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type BrokerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerTestSuite))
}

func (s *BrokerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
}

func (s *BrokerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *BrokerTestSuite) TestKafkaPublish() {
	w := new(recordingWriter)
	pub := newKafkaPublisherWithWriter(w)

	s.Require().NoError(pub.Publish(s.T().Context(), "transaction-events", "agg-1", []byte(`{"a":1}`)))
	s.Require().Len(w.messages, 1)
	s.Equal("transaction-events", w.messages[0].Topic)
	s.Equal([]byte("agg-1"), w.messages[0].Key)
	s.JSONEq(`{"a":1}`, string(w.messages[0].Value))

	s.Require().NoError(pub.Close())
	s.True(w.closed)
}

func (s *BrokerTestSuite) TestKafkaPublish_Failure() {
	writeErr := errors.New("leader not available")
	pub := newKafkaPublisherWithWriter(&recordingWriter{err: writeErr})

	err := pub.Publish(s.T().Context(), "t", "k", nil)
	s.Require().ErrorIs(err, domain.ErrPublishFailure)
	s.Require().ErrorIs(err, writeErr)
	s.Equal(domain.KindPublishFailure, domain.KindOf(err))
}

func (s *BrokerTestSuite) TestRabbitMQPublish() {
	ch := &fakeChannel{ack: true}
	pub, err := newRabbitMQPublisher(ch, "ledger.events")
	s.Require().NoError(err)

	s.Require().NoError(pub.Publish(s.T().Context(), "transaction-events", "agg-1", []byte(`{}`)))
	s.Require().Len(ch.published, 1)
	s.Equal("transaction-events", ch.keys[0])
	s.Equal("agg-1", ch.published[0].Headers["aggregate-id"])
	s.Equal(amqp.Persistent, ch.published[0].DeliveryMode)

	s.Require().NoError(pub.Close())
	s.True(ch.closed)
}

func (s *BrokerTestSuite) TestRabbitMQPublish_Nack() {
	pub, err := newRabbitMQPublisher(&fakeChannel{ack: false}, "ledger.events")
	s.Require().NoError(err)

	err = pub.Publish(s.T().Context(), "transaction-events", "agg-1", []byte(`{}`))
	s.Require().ErrorIs(err, ErrPublishNacked)
	s.Require().ErrorIs(err, domain.ErrPublishFailure)
	s.Require().NotErrorIs(err, domain.ErrPublisherUnavailable)
}

func (s *BrokerTestSuite) TestBreakerOpensAfterConsecutiveFailures() {
	next := mocks.NewMockPublisher(s.ctrl)
	pubErr := errors.New("broker down")
	next.EXPECT().Publish(gomock.Any(), "t", "k", gomock.Any()).Return(pubErr).Times(2)

	pub := NewBreakerPublisher(next, BreakerSettings{
		Name:                "test",
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	}, logrus.New())

	ctx := s.T().Context()
	s.Require().ErrorIs(pub.Publish(ctx, "t", "k", nil), pubErr)
	s.Require().ErrorIs(pub.Publish(ctx, "t", "k", nil), pubErr)
	s.Equal(gobreaker.StateOpen, pub.State())

	// цепь разомкнута: следующий вызов не доходит до брокера.
	err := pub.Publish(ctx, "t", "k", nil)
	s.Require().ErrorIs(err, ErrCircuitOpen)
	s.Require().ErrorIs(err, domain.ErrPublishFailure)
	s.Require().ErrorIs(err, domain.ErrPublisherUnavailable)
}

func (s *BrokerTestSuite) TestNew_UnknownKind() {
	_, err := New(Config{Kind: "nats"}, logrus.New())
	s.Require().ErrorIs(err, ErrUnknownKind)
}

func (s *BrokerTestSuite) TestNew_Kafka() {
	pub, err := New(Config{Kind: KindKafka, KafkaBrokers: []string{"localhost:9092"}}, logrus.New())
	s.Require().NoError(err)
	s.IsType(&BreakerPublisher{}, pub)
}
