// Package merge deduplicates records collected from several producers.
package merge

import (
	"container/list"

	"github.com/ppiankov/harvester/internal/model"
)

// Decision is what Offer did with a candidate record.
type Decision int

const (
	// Appended means the id was new and the record went to the end.
	Appended Decision = iota
	// Replaced means the candidate was strictly newer: the old record was
	// removed and the candidate appended at the end.
	Replaced
	// Discarded means an equal or newer record was already held.
	Discarded
)

func (d Decision) String() string {
	switch d {
	case Appended:
		return "appended"
	case Replaced:
		return "replaced"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Accumulator is an insertion-ordered map of records keyed by id. A
// replacement does not keep the old position: the newer record moves to the
// end. Not safe for concurrent use; it belongs to a single cycle.
type Accumulator struct {
	ll    *list.List               // records in output order
	items map[string]*list.Element // id -> element
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{ll: list.New(), items: make(map[string]*list.Element)}
}

// Offer adds r unless a record with the same id and an equal or later
// UpdatedAt is already held.
func (a *Accumulator) Offer(r model.Record) Decision {
	el, ok := a.items[r.ID]
	if !ok {
		a.items[r.ID] = a.ll.PushBack(r)
		return Appended
	}

	existing := el.Value.(model.Record)
	if !r.UpdatedAt.After(existing.UpdatedAt) {
		return Discarded
	}
	a.ll.Remove(el)
	a.items[r.ID] = a.ll.PushBack(r)
	return Replaced
}

// Len returns the number of distinct ids held.
func (a *Accumulator) Len() int {
	return a.ll.Len()
}

// Records returns the held records in output order.
func (a *Accumulator) Records() []model.Record {
	out := make([]model.Record, 0, a.ll.Len())
	for el := a.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(model.Record))
	}
	return out
}
