package model

import "time"

// CycleReport describes one harvest cycle.
type CycleReport struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Sources []SourceStats `json:"sources"` // one per registry entry, in order

	Approvals        int `json:"approvals"`         // entries in the approval collection
	ApprovalsMatched int `json:"approvals_matched"` // merged records that gained an approval
	Merged           int `json:"merged"`            // records after deduplication

	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"` // why the cycle was aborted
}

// SourceStats records what one producer contributed.
type SourceStats struct {
	Location     string `json:"location"`
	Unrestricted bool   `json:"unrestricted"`
	Outcome      string `json:"outcome"`   // ok, unreachable, malformed
	Fetched      int    `json:"fetched"`   // records parsed
	Accepted     int    `json:"accepted"`  // records passing the owner filter
	Appended     int    `json:"appended"`  // accepted records with a new id
	Replaced     int    `json:"replaced"`  // accepted records newer than the one held
	Discarded    int    `json:"discarded"` // accepted records not newer than the one held
	Error        string `json:"error,omitempty"`
	FromCache    bool   `json:"from_cache,omitempty"`
}

// Failures returns the number of sources that were skipped.
func (r *CycleReport) Failures() int {
	n := 0
	for _, s := range r.Sources {
		if s.Outcome != FetchOK.String() {
			n++
		}
	}
	return n
}

// FetchMeta contains HTTP metadata from fetching a location
type FetchMeta struct {
	StatusCode   int    `json:"status_code"`
	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	ETag         string `json:"etag,omitempty"`
}
