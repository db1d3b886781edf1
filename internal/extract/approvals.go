package extract

import (
	"github.com/tidwall/sjson"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

// ApprovalExtractor reads the approval collection
type ApprovalExtractor struct {
	idPath string
}

// NewApprovalExtractor creates an extractor keyed by the top-level "id" field.
func NewApprovalExtractor() *ApprovalExtractor {
	return &ApprovalExtractor{idPath: "id"}
}

// Extract parses raw as a JSON array of approval objects. Each entry's
// document is the element with its id removed.
func (e *ApprovalExtractor) Extract(raw []byte) ([]model.ApprovalEntry, error) {
	elements, err := objectElements(raw)
	if err != nil {
		return nil, err
	}

	entries := make([]model.ApprovalEntry, 0, len(elements))
	for i, el := range elements {
		id, err := stringField(i, el, e.idPath, false)
		if err != nil {
			return nil, err
		}
		doc, err := sjson.DeleteBytes([]byte(el.Raw), e.idPath)
		if err != nil {
			return nil, harvesterrors.NewMalformedField(i, e.idPath, "cannot remove", err)
		}
		entries = append(entries, model.ApprovalEntry{ID: id, Document: doc})
	}
	return entries, nil
}
