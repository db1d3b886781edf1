package model

import (
	"encoding/json"
	"testing"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
)

func TestEncodeRecordsKeepsBytes(t *testing.T) {
	records := []Record{
		{ID: "a", Payload: json.RawMessage(`{"b":1, "a" : 2}`)},
		{ID: "b", Payload: json.RawMessage(`{"x":"ä"}`)},
	}
	if got := string(EncodeRecords(records)); got != `[{"b":1, "a" : 2},{"x":"ä"}]` {
		t.Errorf("unexpected encoding %s", got)
	}
	if got := string(EncodeRecords(nil)); got != `[]` {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestFilterByOwner(t *testing.T) {
	records := []Record{{ID: "1", OwnerCode: "a"}, {ID: "2", OwnerCode: "b"}, {ID: "3", OwnerCode: "a"}}
	got := FilterByOwner(records, "a")
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("expected records 1 and 3, got %+v", got)
	}
}

func TestFailedTagsByKind(t *testing.T) {
	src := UnrestrictedSource("http://x")

	r := Failed(src, harvesterrors.NewStatusError("http://x", 500))
	if r.Status != FetchUnreachable || r.OK() {
		t.Errorf("expected unreachable, got %s", r.Status)
	}

	r = Failed(src, harvesterrors.NewMalformedDocument("not an array"))
	if r.Status != FetchMalformed || r.Status.String() != "malformed" {
		t.Errorf("expected malformed, got %s", r.Status)
	}

	r = Fetched(src, []Record{{ID: "1"}})
	if !r.OK() || len(r.Records) != 1 {
		t.Errorf("expected one fetched record, got %+v", r)
	}
}

func TestCycleReportFailures(t *testing.T) {
	report := &CycleReport{Sources: []SourceStats{
		{Outcome: "ok"}, {Outcome: "unreachable"}, {Outcome: "malformed"},
	}}
	if n := report.Failures(); n != 2 {
		t.Errorf("expected 2 failures, got %d", n)
	}
}
