package merge

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/harvester/internal/model"
)

var base = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

func rec(id string, hour int, tag string) model.Record {
	return model.Record{
		ID:        id,
		OwnerCode: "producer",
		UpdatedAt: base.Add(time.Duration(hour) * time.Hour),
		Payload:   json.RawMessage(fmt.Sprintf(`{"tag":%q}`, tag)),
	}
}

func ids(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestAccumulator_KeepsArrivalOrder(t *testing.T) {
	acc := NewAccumulator()
	for _, id := range []string{"c", "a", "b"} {
		assert.Equal(t, Appended, acc.Offer(rec(id, 0, id)))
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids(acc.Records()))
	assert.Equal(t, 3, acc.Len())
}

func TestAccumulator_NewerMovesToEnd(t *testing.T) {
	acc := NewAccumulator()
	acc.Offer(rec("a", 0, "old"))
	acc.Offer(rec("b", 0, "b"))

	assert.Equal(t, Replaced, acc.Offer(rec("a", 1, "new")))
	assert.Equal(t, []string{"b", "a"}, ids(acc.Records()))

	assert.JSONEq(t, `{"tag":"new"}`, string(acc.Records()[1].Payload))
}

func TestAccumulator_TieKeepsFirst(t *testing.T) {
	acc := NewAccumulator()
	acc.Offer(rec("a", 2, "first"))
	acc.Offer(rec("b", 0, "b"))

	assert.Equal(t, Discarded, acc.Offer(rec("a", 2, "second")))
	assert.Equal(t, Discarded, acc.Offer(rec("a", 1, "older")))
	assert.Equal(t, []string{"a", "b"}, ids(acc.Records()))

	assert.JSONEq(t, `{"tag":"first"}`, string(acc.Records()[0].Payload))
}

func TestAccumulator_FractionalSecondsCount(t *testing.T) {
	acc := NewAccumulator()
	first := rec("a", 0, "first")
	later := rec("a", 0, "later")
	later.UpdatedAt = later.UpdatedAt.Add(time.Microsecond)

	acc.Offer(first)
	assert.Equal(t, Replaced, acc.Offer(later))
}

// reference is the straightforward list-scanning fold the accumulator must
// agree with.
func reference(in []model.Record) []model.Record {
	var out []model.Record
	for _, r := range in {
		idx := -1
		for i, e := range out {
			if e.ID == r.ID {
				idx = i
				break
			}
		}
		switch {
		case idx < 0:
			out = append(out, r)
		case r.UpdatedAt.After(out[idx].UpdatedAt):
			out = append(out[:idx:idx], out[idx+1:]...)
			out = append(out, r)
		}
	}
	return out
}

// fromCodes turns generated ints into records over a small id space so that
// duplicates and ties are frequent.
func fromCodes(codes []int) []model.Record {
	records := make([]model.Record, len(codes))
	for i, c := range codes {
		records[i] = rec(fmt.Sprintf("id-%d", c%5), c/5, fmt.Sprintf("seq-%d", i))
	}
	return records
}

func TestAccumulatorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("agrees with the list-scanning fold", prop.ForAll(
		func(codes []int) bool {
			in := fromCodes(codes)
			acc := NewAccumulator()
			for _, r := range in {
				acc.Offer(r)
			}

			got, want := acc.Records(), reference(in)
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i].ID != want[i].ID || string(got[i].Payload) != string(want[i].Payload) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 24)),
	))

	properties.Property("one record per id holding the earliest maximal timestamp", prop.ForAll(
		func(codes []int) bool {
			in := fromCodes(codes)
			acc := NewAccumulator()
			for _, r := range in {
				acc.Offer(r)
			}

			best := map[string]model.Record{}
			for _, r := range in {
				if b, ok := best[r.ID]; !ok || r.UpdatedAt.After(b.UpdatedAt) {
					best[r.ID] = r
				}
			}

			out := acc.Records()
			if len(out) != len(best) {
				return false
			}
			seen := map[string]bool{}
			for _, r := range out {
				if seen[r.ID] {
					return false
				}
				seen[r.ID] = true
				if string(best[r.ID].Payload) != string(r.Payload) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 24)),
	))

	properties.TestingRun(t)
}
