//go:build integration

package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/outbox"
	"acadmin/internal/platform/config"
	"acadmin/internal/platform/kafka"
	"acadmin/pkg/testutil/containers"
)

type RelayKafkaSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	brokers  []string
	store    *outbox.PostgresStore
	producer *kafka.Producer
	topic    string
	ctx      context.Context
}

func TestRelayKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelayKafkaSuite))
}

func (s *RelayKafkaSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.brokers = containers.GetManager().GetKafka(s.T()).Brokers
	s.store = outbox.NewPostgres(s.postgres.DB)
	s.topic = "approval-events-test"

	p, err := kafka.NewProducer(s.ctx, config.KafkaConfig{Brokers: s.brokers, Topic: s.topic, ClientID: "acadmin-test"})
	s.Require().NoError(err)
	s.Require().NoError(p.EnsureTopic(s.ctx, 1, 1))
	s.producer = p
}

func (s *RelayKafkaSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close(s.ctx)
	}
}

func (s *RelayKafkaSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "approval_outbox"))
}

func (s *RelayKafkaSuite) TestRelayDeliversAndMarks() {
	req := &models.ApprovalRequest{ID: 42, ObjectType: "program", Action: "delete", ObjectID: "CS101", Status: models.StatusApproved}
	for _, et := range []outbox.EventType{outbox.EventCreated, outbox.EventApproved} {
		e, err := outbox.NewEntry(et, req, "p@x.com", "approve", "", "req-9", time.Now().UTC())
		s.Require().NoError(err)
		s.Require().NoError(s.store.Append(s.ctx, e))
	}

	relay := outbox.NewRelay(s.store, s.producer)
	n, err := relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	pending, err := s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Second)
	defer cancel()
	var got []*kgo.Record
	for len(got) < 2 && ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) == "42" {
				got = append(got, r)
			}
		})
	}
	s.Require().Len(got, 2)

	headers := map[string]string{}
	for _, h := range got[1].Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(outbox.EventApproved), headers["event_type"])
	s.Equal("approval", headers["aggregate_type"])
}
