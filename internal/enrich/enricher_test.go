package enrich

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/harvester/internal/model"
)

func record(id, payload string) model.Record {
	return model.Record{
		ID:        id,
		OwnerCode: "producer",
		UpdatedAt: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:   json.RawMessage(payload),
	}
}

func TestApply_OnlyMatchingRecordsGainApproval(t *testing.T) {
	records := []model.Record{
		record("/owner/shortname1", `{"shortname":"shortname1","owner":"producer","meta":{"URI":"/owner/shortname1"}}`),
		record("/70000740/Õppurite register", `{"shortname":"shortname3","owner":"producer","meta":{"URI":"/70000740/Õppurite register"}}`),
	}
	entries := []model.ApprovalEntry{
		{ID: "/owner/shortname1", Document: json.RawMessage(`{"timestamp":"2016-01-01T10:00:00","status":"MITTE KOOSKÕLASTATUD"}`)},
		{ID: "/owner/shortname2", Document: json.RawMessage(`{"timestamp":"2015-10-10T01:10:10","status":"KOOSKÕLASTATUD"}`)},
	}

	out, matched, err := NewEnricher().Apply(records, entries)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, matched)

	assert.Equal(t,
		`{"shortname":"shortname1","owner":"producer","meta":{"URI":"/owner/shortname1"},"approval":{"timestamp":"2016-01-01T10:00:00","status":"MITTE KOOSKÕLASTATUD"}}`,
		string(out[0].Payload))
	assert.True(t, out[0].HasApproval())

	// Untouched byte for byte, escapes included.
	assert.Equal(t, string(records[1].Payload), string(out[1].Payload))
	assert.False(t, out[1].HasApproval())
}

func TestApply_ReplacesExistingApproval(t *testing.T) {
	records := []model.Record{record("a", `{"approval":{"status":"old"},"x":1}`)}
	entries := []model.ApprovalEntry{{ID: "a", Document: json.RawMessage(`{"status":"new"}`)}}

	out, _, err := NewEnricher().Apply(records, entries)
	require.NoError(t, err)
	assert.JSONEq(t, `{"approval":{"status":"new"},"x":1}`, string(out[0].Payload))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	records := []model.Record{record("a", `{"x":1}`)}
	entries := []model.ApprovalEntry{{ID: "a", Document: json.RawMessage(`{"s":1}`)}}

	_, _, err := NewEnricher().Apply(records, entries)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(records[0].Payload))
	assert.False(t, records[0].HasApproval())
}

func TestApply_NoApprovals(t *testing.T) {
	records := []model.Record{record("a", `{"x":1}`), record("b", `{"y":2}`)}

	out, matched, err := NewEnricher().Apply(records, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, matched)
	assert.Equal(t, records, out)
}

func TestIndex_LaterDuplicateWins(t *testing.T) {
	byID := Index([]model.ApprovalEntry{
		{ID: "a", Document: json.RawMessage(`{"n":1}`)},
		{ID: "a", Document: json.RawMessage(`{"n":2}`)},
	})
	assert.Len(t, byID, 1)
	assert.Equal(t, `{"n":2}`, string(byID["a"]))
}
