//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"kycflow/internal/platform/config"
	platformkafka "kycflow/internal/platform/kafka"
	audit "kycflow/pkg/platform/audit"
	"kycflow/pkg/testutil/containers"
)

func TestAppendToRedpanda(t *testing.T) {
	broker := containers.GetManager().GetRedpanda(t).Broker
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "kyc.audit." + uuid.NewString()[:8]
	producer, err := platformkafka.New(ctx, config.KafkaConfig{
		Brokers:    []string{broker},
		ClientID:   "kycflow-test",
		AuditTopic: topic,
		Partitions: 3,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NotNil(t, producer)
	defer producer.Close()

	// a second ensure on an existing topic is a no-op
	require.NoError(t, platformkafka.EnsureTopic(ctx, producer, topic, 3))

	store := New(producer, topic)
	appID := uuid.NewString()
	actions := []audit.AuditEvent{
		audit.EventApplicationStarted,
		audit.EventStepCompleted,
		audit.EventApplicationSubmitted,
	}
	for _, action := range actions {
		require.NoError(t, store.Append(ctx, audit.Event{
			ApplicationID: appID,
			Action:        string(action),
			Category:      action.Category(),
			Timestamp:     time.Now(),
		}))
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []audit.Event
	for len(got) < len(actions) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err(), "timed out waiting for audit records")
		fetches.EachRecord(func(r *kgo.Record) {
			assert.Equal(t, appID, string(r.Key))
			var event audit.Event
			require.NoError(t, json.Unmarshal(r.Value, &event))
			got = append(got, event)
		})
	}

	// one key means one partition, so the trail keeps its order
	for i, action := range actions {
		assert.Equal(t, string(action), got[i].Action)
	}
}
