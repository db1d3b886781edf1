// Package extract turns fetched JSON documents into records and approval
// entries. Only the configured fields are read; every element keeps its
// original bytes.
package extract

import (
	"github.com/tidwall/gjson"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

// ApprovalField is the key an approval document is attached under.
const ApprovalField = "approval"

// RecordExtractor reads records out of a producer document
type RecordExtractor struct {
	paths model.FieldPaths
}

// NewRecordExtractor creates an extractor reading id, owner and timestamp
// from the given paths.
func NewRecordExtractor(paths model.FieldPaths) *RecordExtractor {
	return &RecordExtractor{paths: paths}
}

// Extract parses raw as a JSON array of objects and returns one record per
// element, in array order. Any element with a missing or unparsable required
// field fails the whole document.
func (e *RecordExtractor) Extract(raw []byte) ([]model.Record, error) {
	elements, err := objectElements(raw)
	if err != nil {
		return nil, err
	}

	records := make([]model.Record, 0, len(elements))
	for i, el := range elements {
		rec, err := e.record(i, el)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *RecordExtractor) record(i int, el gjson.Result) (model.Record, error) {
	id, err := stringField(i, el, e.paths.ID, false)
	if err != nil {
		return model.Record{}, err
	}
	owner, err := stringField(i, el, e.paths.Owner, true)
	if err != nil {
		return model.Record{}, err
	}
	ts, err := stringField(i, el, e.paths.Timestamp, false)
	if err != nil {
		return model.Record{}, err
	}
	updated, err := ParseTimestamp(ts)
	if err != nil {
		return model.Record{}, harvesterrors.NewMalformedField(i, e.paths.Timestamp, "not a local date-time", err)
	}

	rec := model.Record{
		ID:        id,
		OwnerCode: owner,
		UpdatedAt: updated,
		Payload:   []byte(el.Raw),
	}
	if a := el.Get(ApprovalField); a.Exists() {
		rec.Approval = []byte(a.Raw)
	}
	return rec, nil
}

// objectElements validates raw as an array whose elements are all objects.
func objectElements(raw []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return nil, harvesterrors.NewMalformedDocument("invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, harvesterrors.NewMalformedDocument("expected a JSON array")
	}

	elements := doc.Array()
	for i, el := range elements {
		if !el.IsObject() {
			return nil, &harvesterrors.MalformedDataError{Index: i, Message: "expected an object"}
		}
	}
	return elements, nil
}

// stringField reads a string at path. allowEmpty permits "".
func stringField(i int, el gjson.Result, path string, allowEmpty bool) (string, error) {
	v := el.Get(path)
	if !v.Exists() {
		return "", harvesterrors.NewMalformedField(i, path, "missing", nil)
	}
	if v.Type != gjson.String {
		return "", harvesterrors.NewMalformedField(i, path, "not a string", nil)
	}
	if v.Str == "" && !allowEmpty {
		return "", harvesterrors.NewMalformedField(i, path, "empty", nil)
	}
	return v.Str, nil
}
