package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "kycflow/pkg/platform/audit"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestAppendProducesKeyedRecord(t *testing.T) {
	producer := &recordingProducer{}
	store := New(producer, "kyc.audit")

	event := audit.Event{
		Category:      audit.CategoryCompliance,
		ApplicationID: "app-1",
		Action:        string(audit.EventApplicationSubmitted),
	}
	require.NoError(t, store.Append(context.Background(), event))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "kyc.audit", rec.Topic)
	assert.Equal(t, []byte("app-1"), rec.Key)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, event.Action, decoded.Action)
	assert.Contains(t, rec.Headers, kgo.RecordHeader{Key: "category", Value: []byte("compliance")})
}

func TestAppendReturnsProduceError(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	store := New(producer, "kyc.audit")

	err := store.Append(context.Background(), audit.Event{ApplicationID: "app-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
