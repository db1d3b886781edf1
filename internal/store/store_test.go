package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/harvester/internal/extract"
	"github.com/ppiankov/harvester/internal/model"
)

func decoder() Decoder {
	return extract.NewRecordExtractor(model.FieldPaths{ID: "meta.URI", Owner: "owner", Timestamp: "status.timestamp"})
}

func sample() []model.Record {
	return []model.Record{
		{
			ID:        "/owner/b",
			OwnerCode: "producer",
			UpdatedAt: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
			Payload:   json.RawMessage(`{"owner":"producer","meta":{"URI":"/owner/b"},"status":{"timestamp":"2016-01-01T00:00:00"},"approval":{"status":"OK"}}`),
			Approval:  json.RawMessage(`{"status":"OK"}`),
		},
		{
			ID:        "/owner/a",
			OwnerCode: "other",
			UpdatedAt: time.Date(2013, 11, 8, 0, 0, 0, 1000, time.UTC),
			Payload:   json.RawMessage(`{"owner":"other", "meta":{"URI":"/owner/a"},"status":{"timestamp":"2013-11-08T00:00:00.000001"}}`),
		},
	}
}

// assertSameRecords compares what a sink returned with what was saved.
func assertSameRecords(t *testing.T, want, got []model.Record) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].OwnerCode, got[i].OwnerCode)
		assert.True(t, want[i].UpdatedAt.Equal(got[i].UpdatedAt), "updatedAt of %s", want[i].ID)
		assert.Equal(t, string(want[i].Payload), string(got[i].Payload))
		assert.Equal(t, string(want[i].Approval), string(got[i].Approval))
	}
}
