// package formatter renders playlists and batch reports for terminal output.
package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/tasks"
)

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
}

// NewPalette builds a palette from foreground color values.
func NewPalette(t, s, e, w, d string) *Palette {
	return &Palette{
		title: newBold(t),
		ok:    newBold(s),
		err:   newBold(e),
		warn:  newStyle(w),
		dim:   newStyle(d),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}

var styles = NewPalette("#1DB954", "#04B575", "#FF5F56", "#FFA500", "#626262")

// PlaylistTable renders playlist summaries as an aligned table.
func PlaylistTable(playlists []services.PlaylistSummary) string {
	if len(playlists) == 0 {
		return styles.dim.Render("No playlists found.") + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Playlists (%d)", len(playlists))))
	b.WriteString("\n\n")

	nameWidth := len("Name")
	ownerWidth := len("Owner")
	for _, pl := range playlists {
		if len(pl.Name) > nameWidth {
			nameWidth = len(pl.Name)
		}
		if len(pl.Owner) > ownerWidth {
			ownerWidth = len(pl.Owner)
		}
	}

	b.WriteString(fmt.Sprintf("%-*s  %-*s  %6s  %-7s  %s\n",
		nameWidth, "Name", ownerWidth, "Owner", "Tracks", "Public", "ID"))

	for _, pl := range playlists {
		visibility := "no"
		if pl.Public {
			visibility = "yes"
		}
		b.WriteString(fmt.Sprintf("%-*s  %-*s  %6d  %-7s  %s\n",
			nameWidth, pl.Name, ownerWidth, pl.Owner, pl.TrackCount,
			visibility, styles.dim.Render(pl.ID)))
	}

	return b.String()
}

// BatchReport renders per-item outcomes and a summary line, preserving the
// order the items were submitted in.
func BatchReport(results []tasks.ItemResult) string {
	var b strings.Builder

	for _, res := range results {
		if res.Succeeded {
			b.WriteString(fmt.Sprintf("%s %s\n", styles.ok.Render("✓"), res.ItemID))
			continue
		}

		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		mark := styles.err.Render("✗")
		if services.IsRateLimited(res.Err) {
			if wait := services.RetryAfter(res.Err); wait > 0 {
				msg = fmt.Sprintf("rate limited, please wait %s", wait)
			}
			mark = styles.warn.Render("✗")
		}
		b.WriteString(fmt.Sprintf("%s %s: %s\n", mark, res.ItemID, msg))
	}

	succeeded := tasks.Succeeded(results)
	failed := tasks.Failed(results)
	summary := fmt.Sprintf("%d succeeded, %d failed (%d total)", succeeded, failed, len(results))
	if failed == 0 {
		b.WriteString(styles.ok.Render(summary))
	} else {
		b.WriteString(styles.warn.Render(summary))
	}
	b.WriteString("\n")

	return b.String()
}

// RateLimitStatus renders the tracker snapshot for the status command.
func RateLimitStatus(snap services.RateLimitSnapshot) string {
	if snap.ObservedAt.IsZero() {
		return styles.dim.Render("No rate-limit information observed yet.") + "\n"
	}

	var b strings.Builder
	if snap.Limited {
		b.WriteString(styles.warn.Render("Rate limited"))
	} else {
		b.WriteString(styles.ok.Render("Not rate limited"))
	}
	b.WriteString("\n")

	if snap.Limit >= 0 {
		b.WriteString(fmt.Sprintf("Limit: %d\n", snap.Limit))
	}
	if snap.Remaining >= 0 {
		b.WriteString(fmt.Sprintf("Remaining: %d\n", snap.Remaining))
	}
	if !snap.ResetAt.IsZero() {
		b.WriteString(fmt.Sprintf("Resets at: %s\n", snap.ResetAt.Format("15:04:05")))
	}

	return b.String()
}
