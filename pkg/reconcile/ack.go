package reconcile

import (
	"fmt"
	"strings"
	"time"

	"labops/runsweep/pkg/lifecycle"
)

const gib = 1 << 30

// AckSummary is the title of the acknowledgement ticket.
func AckSummary(at time.Time) string {
	return at.Format("02/01/2006") + " Automated deletion of runs"
}

// AckDescription lists the deleted runs and the disk usage of root before
// and after the batch.
func AckDescription(at time.Time, root string, deleted []lifecycle.IntentRecord, before, after lifecycle.DiskUsage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Runs deleted on %s\n", at.Format("02/01/2006"))
	for i, rec := range deleted {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s in %s/%s", rec.Run, strings.TrimRight(root, "/"), rec.Sequencer)
	}
	fmt.Fprintf(&b, "\n%s disk usage before: %s", root, usage(before))
	fmt.Fprintf(&b, "\n%s disk usage after: %s", root, usage(after))
	return b.String()
}

func usage(u lifecycle.DiskUsage) string {
	return fmt.Sprintf("%.2f / %.2f %.2f%%", float64(u.Used)/gib, float64(u.Total)/gib, u.UsedPercent())
}
