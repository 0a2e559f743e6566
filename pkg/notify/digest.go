package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"labops/runsweep/pkg/lifecycle"
)

// DefaultChunkLimit is the largest message body the chat API renders
// without truncation.
const DefaultChunkLimit = 7700

// RenderOptions controls digest rendering.
type RenderOptions struct {
	// RunRoot is the run directory root shown in each block header.
	RunRoot string

	// TicketURL is prefixed to ticket keys to build links.
	TicketURL string

	// Now is the reference time for run ages.
	Now time.Time
}

func (o RenderOptions) header(r lifecycle.IntentRecord) string {
	root := strings.TrimRight(o.RunRoot, "/")
	if root == "" {
		root = "/genetics"
	}
	return fmt.Sprintf("`%s/%s/%s`", root, r.Sequencer, r.Run)
}

func age(created string, now time.Time) (int, bool) {
	t, err := time.ParseInLocation("2006-01-02", created, now.Location())
	if err != nil {
		return 0, false
	}
	return int(now.Sub(t).Hours() / 24), true
}

func formatAge(days int) string {
	return fmt.Sprintf("%d weeks %d days ago", days/7, days%7)
}

// RenderPending renders one block per run due for deletion.
func RenderPending(records []lifecycle.IntentRecord, opts RenderOptions) []string {
	blocks := make([]string, 0, len(records))
	for _, r := range records {
		days, _ := age(r.CreatedDate, opts.Now)
		blocks = append(blocks, fmt.Sprintf(
			"%s\n<%s%s|%s> | %s | ~%s\n><%s|Project Link>\n>Created Date: %s\n>%s\n",
			opts.header(r),
			opts.TicketURL, r.TicketKey, r.Status, r.Assay, humanize.Bytes(uint64(r.SizeBytes)),
			r.RemoteURL,
			r.CreatedDate,
			formatAge(days),
		))
	}
	return blocks
}

// RenderStale renders blocks for old runs that need attention: a missing
// ticket after one day, or a ticket still not released after 30 days.
// Other runs are skipped.
func RenderStale(records []lifecycle.IntentRecord, opts RenderOptions) []string {
	var blocks []string
	for _, r := range records {
		days, ok := age(r.CreatedDate, opts.Now)
		if !ok {
			continue
		}

		var reason string
		switch {
		case days > 1 && r.TicketKey == "":
			reason = "Run is missing associated ticket"
		case days > 30 && lifecycle.NormalizeStatus(r.Status) != lifecycle.StatusAllSamplesReleased:
			reason = fmt.Sprintf("Run still not released <%s%s|%s>", opts.TicketURL, r.TicketKey, r.Status)
		default:
			continue
		}

		blocks = append(blocks, fmt.Sprintf(
			"%s\n%s\n><%s|Project Link>\n>%s\n",
			opts.header(r), reason, r.RemoteURL, formatAge(days),
		))
	}
	return blocks
}

func usageLine(u lifecycle.DiskUsage) string {
	return fmt.Sprintf("genetics usage: %s/%s | %.2f%%",
		humanize.Bytes(u.Used), humanize.Bytes(u.Total), u.UsedPercent())
}

// PendingPretext is the header of the pending-deletion digest.
func PendingPretext(count int, executeOn time.Time, usage lifecycle.DiskUsage) string {
	return fmt.Sprintf(":warning: runsweep: %d runs that *WILL BE DELETED* on *%s*\n%s",
		count, executeOn.Format("02 Jan 2006"), usageLine(usage))
}

// StalePretext is the header of the manual-review digest.
func StalePretext(count int, usage lifecycle.DiskUsage) string {
	return fmt.Sprintf(":warning: runsweep: %d stale runs\n%s", count, usageLine(usage))
}

// Chunk packs blocks, joined by "\n", into messages of at most limit
// characters. A block is never split; a single block longer than limit
// becomes its own message.
func Chunk(blocks []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}

	var chunks []string
	var current strings.Builder
	for _, b := range blocks {
		if current.Len() == 0 {
			current.WriteString(b)
			continue
		}
		if current.Len()+1+len(b) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(b)
			continue
		}
		current.WriteByte('\n')
		current.WriteString(b)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
