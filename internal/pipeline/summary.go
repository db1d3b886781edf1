package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/harvester/internal/model"
)

// RenderSummary prints a human readable cycle summary
func RenderSummary(w io.Writer, report *model.CycleReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Harvest %s\n", report.ID)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Started:   %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:  %s\n", report.Duration.Truncate(time.Millisecond))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Sources:")
	for _, s := range report.Sources {
		scope := "restricted"
		if s.Unrestricted {
			scope = "any owner"
		}
		line := fmt.Sprintf("  %-12s %s (%s)", s.Outcome, s.Location, scope)
		if s.Outcome == model.FetchOK.String() {
			line += fmt.Sprintf(" %d/%d accepted (%d new, %d replaced, %d discarded)",
				s.Accepted, s.Fetched, s.Appended, s.Replaced, s.Discarded)
			if s.FromCache {
				line += ", not modified"
			}
		}
		fmt.Fprintln(w, line)
		if s.Error != "" {
			fmt.Fprintf(w, "               %s\n", s.Error)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Merged:    %d records\n", report.Merged)
	fmt.Fprintf(w, "Approvals: %d matched of %d\n", report.ApprovalsMatched, report.Approvals)

	if report.Saved {
		fmt.Fprintln(w, "Status:    ✓ saved")
	} else {
		fmt.Fprintf(w, "Status:    ✗ aborted: %s\n", report.Error)
	}
	fmt.Fprintln(w)
}
