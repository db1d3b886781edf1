// Package enrich attaches approval documents to merged records.
package enrich

import (
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/ppiankov/harvester/internal/model"
)

// Field is the key approvals are attached under in a record's payload.
const Field = "approval"

// Enricher joins records with approval entries by id
type Enricher struct{}

// NewEnricher creates an enricher
func NewEnricher() *Enricher {
	return &Enricher{}
}

// Index builds the id -> document lookup. When an id repeats, the later
// entry wins.
func Index(entries []model.ApprovalEntry) map[string][]byte {
	byID := make(map[string][]byte, len(entries))
	for _, e := range entries {
		byID[e.ID] = e.Document
	}
	return byID
}

// Apply returns a copy of records where every record with a matching
// approval carries it under "approval", replacing any previous value.
// Records without a match are returned unchanged; approvals without a
// record are ignored. matched counts the records that gained an approval.
func (e *Enricher) Apply(records []model.Record, entries []model.ApprovalEntry) (out []model.Record, matched int, err error) {
	byID := Index(entries)

	out = make([]model.Record, len(records))
	for i, r := range records {
		doc, ok := byID[r.ID]
		if !ok {
			out[i] = r
			continue
		}

		payload, err := sjson.SetRawBytes(r.Payload, Field, doc)
		if err != nil {
			return nil, 0, fmt.Errorf("attach approval to %s: %w", r.ID, err)
		}
		r.Payload = payload
		r.Approval = doc
		out[i] = r
		matched++
	}
	return out, matched, nil
}
