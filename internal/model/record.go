package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimestampLayout is how updatedAt values are written back out: a naive
// local date-time without zone, fractional seconds only when present.
const TimestampLayout = "2006-01-02T15:04:05.999999999"

// Record is one harvested information system description.
//
// ID, OwnerCode and UpdatedAt are read from fixed paths of the producer's
// document; Payload is that document exactly as received. The only change a
// Record's payload ever sees is the attachment of an "approval" field.
type Record struct {
	ID        string          // stable identifier, dedup key
	OwnerCode string          // organizational owner, used for source filtering
	UpdatedAt time.Time       // naive local date-time, sole freshness signal
	Payload   json.RawMessage // original document bytes
	Approval  json.RawMessage // attached approval document, nil when none
}

// HasApproval reports whether an approval document is attached.
func (r Record) HasApproval() bool {
	return len(r.Approval) > 0
}

// ApprovalEntry is one element of the approval collection, keyed by the same
// id space as Record. Document is the element with its id field removed.
type ApprovalEntry struct {
	ID       string
	Document json.RawMessage
}

// EncodeRecords writes records as a JSON array of their payloads, in order.
// Payload bytes are copied verbatim.
func EncodeRecords(records []Record) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if len(r.Payload) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(r.Payload)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// FilterByOwner returns the records whose owner code equals owner.
func FilterByOwner(records []Record, owner string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.OwnerCode == owner {
			out = append(out, r)
		}
	}
	return out
}
