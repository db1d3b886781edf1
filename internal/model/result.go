package model

import (
	harvesterrors "github.com/ppiankov/harvester/internal/errors"
)

// FetchStatus tags the outcome of fetching and parsing one location.
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchUnreachable
	FetchMalformed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchUnreachable:
		return "unreachable"
	case FetchMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// SourceResult is what one producer contributed to a cycle: its records when
// Status is FetchOK, otherwise the error that made it fail.
type SourceResult struct {
	Source  SourceSpec
	Status  FetchStatus
	Records []Record
	Err     error
}

// Fetched returns a successful result.
func Fetched(src SourceSpec, records []Record) SourceResult {
	return SourceResult{Source: src, Status: FetchOK, Records: records}
}

// Failed returns a failed result tagged by the kind of err. Anything that is
// not recognisably malformed data counts as unreachable.
func Failed(src SourceSpec, err error) SourceResult {
	status := FetchUnreachable
	if harvesterrors.IsMalformed(err) {
		status = FetchMalformed
	}
	return SourceResult{Source: src, Status: status, Err: err}
}

// OK reports whether the source contributed records.
func (r SourceResult) OK() bool {
	return r.Status == FetchOK
}
