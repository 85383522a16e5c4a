package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/syncer"
)

// FormatSyncStatus renders the engine status line and counters.
func FormatSyncStatus(st syncer.Status, remoteEnabled bool, now time.Time) string {
	var b strings.Builder
	b.WriteString(SyncIndicator(st.State))
	switch {
	case !remoteEnabled:
		b.WriteString(Dim("  local only"))
	case st.Online:
		b.WriteString(StyleGreen.Render("  online"))
	default:
		b.WriteString(StyleYellow.Render("  offline"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "queued %d · parked %d · last drain %s\n",
		st.Queued, st.Parked, HumanTimestampFrom(st.LastDrain, now))
	if len(st.Pending) > 0 {
		b.WriteString(Dim("pending: "+strings.Join(st.Pending, ", ")) + "\n")
	}
	if st.LastError != "" {
		b.WriteString(StyleRed.Render("error: "+st.LastError) + "\n")
	}
	return b.String()
}

// FormatDrainResult summarises one drain cycle.
func FormatDrainResult(r syncer.DrainResult) string {
	return fmt.Sprintf("pushed %d · conflicts %d · failed %d · parked %d · skipped %d\n",
		r.Pushed, r.Conflicts, r.Failed, r.Parked, r.Skipped)
}

// FormatQueue renders queued remote writes.
func FormatQueue(entries []domain.SyncEntry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		state := StyleBlue.Render("queued")
		switch {
		case e.Parked:
			state = StyleRed.Render("parked")
		case !e.Due(now):
			state = StyleYellow.Render("backoff")
		}
		rows = append(rows, []string{
			fmt.Sprint(e.ID), string(e.Table), string(e.Action), e.EntityID,
			fmt.Sprint(e.Attempts), state, e.LastError,
		})
	}
	return RenderTable([]string{"ID", "TABLE", "ACTION", "ENTITY", "TRIES", "STATE", "LAST ERROR"}, rows)
}
