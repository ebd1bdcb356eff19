package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// PrettyFormatter formats reports with colors and styling using
// lipgloss, for interactive terminal display.
type PrettyFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	switch {
	case r.Scan != nil:
		f.scan(w, r.Profile, r.Scan)
	case r.Drift != nil:
		f.drift(w, r.Drift)
	case r.Plan != nil:
		f.plan(w, r.Profile, r.Plan)
	case r.Sync != nil:
		f.sync(w, r.Sync)
	}
	return nil
}

func (f *PrettyFormatter) header(profile, title string, extra ...string) string {
	lines := []string{TitleStyle.Render(title)}
	if profile != "" {
		lines = append(lines, LabelStyle.Render("Profile: ")+ValueStyle.Render(profile))
	}
	lines = append(lines, extra...)
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) scan(w *bytes.Buffer, profile string, s *types.ScanReport) {
	stats := fmt.Sprintf("%d files, %s in %s (%d cached)",
		s.Stats.FilesScanned,
		humanize.IBytes(uint64(s.Stats.BytesScanned)),
		formatDuration(s.Stats.Elapsed),
		s.Stats.CacheHits)
	w.WriteString(f.header(profile, "Scan", LabelStyle.Render("Scanned: ")+ValueStyle.Render(stats)))
	w.WriteString("\n")

	for _, mod := range s.Manifest.Mods {
		var size int64
		for _, file := range mod.Files {
			size += file.Size
		}
		w.WriteString(fmt.Sprintf("  %s %s\n",
			ValueStyle.Render(mod.Name),
			MutedStyle.Render(fmt.Sprintf("(%d files, %s)", len(mod.Files), humanize.IBytes(uint64(size))))))
	}

	if len(s.Errors) > 0 {
		w.WriteString("\n" + DangerStyle.Render(fmt.Sprintf("%d files could not be read:", len(s.Errors))) + "\n")
		for _, e := range s.Errors {
			w.WriteString("  " + MutedStyle.Render(e.Path+": "+e.Error) + "\n")
		}
	}
}

func (f *PrettyFormatter) drift(w *bytes.Buffer, d *types.DriftReport) {
	age := LabelStyle.Render("Baseline: ") + ValueStyle.Render(humanize.Time(d.BaselineAt))
	w.WriteString(f.header(d.ProfileID, "Check", age))
	w.WriteString("\n")

	if d.Clean() {
		w.WriteString(SuccessStyle.Render(fmt.Sprintf("Clean: all %d files match the baseline", len(d.Matching))) + "\n")
		return
	}

	section := func(style func(...string) string, label string, entries []types.DriftEntry) {
		if len(entries) == 0 {
			return
		}
		w.WriteString(style(fmt.Sprintf("%s (%d):", label, len(entries))) + "\n")
		for _, e := range entries {
			w.WriteString("  " + e.Mod + "/" + e.Path + "\n")
		}
	}
	section(DangerStyle.Render, "Modified", d.Modified)
	section(DangerStyle.Render, "Missing", d.Missing)
	section(WarningStyle.Render, "Extra", d.Extra)

	if len(d.ScanErrors) > 0 {
		w.WriteString(DangerStyle.Render(fmt.Sprintf("Unreadable (%d):", len(d.ScanErrors))) + "\n")
		for _, e := range d.ScanErrors {
			w.WriteString("  " + MutedStyle.Render(e.Path+": "+e.Error) + "\n")
		}
	}
}

func (f *PrettyFormatter) plan(w *bytes.Buffer, profile string, p *types.Plan) {
	if p.Empty() {
		w.WriteString(f.header(profile, "Plan"))
		w.WriteString("\n" + SuccessStyle.Render("Up to date: nothing to transfer") + "\n")
		return
	}

	summary := fmt.Sprintf("%d to fetch (%s), %d to remove, %d unchanged",
		p.TransferCount(),
		humanize.IBytes(uint64(p.TransferBytes())),
		len(p.Remove),
		len(p.Unchanged))
	w.WriteString(f.header(profile, "Plan", LabelStyle.Render("Pending: ")+ValueStyle.Render(summary)))
	w.WriteString("\n")

	for _, r := range p.Rename {
		w.WriteString(WarningStyle.Render("  > ") + r.From +
			MutedStyle.Render(" renamed to ") + r.To + "\n")
	}
	for _, a := range p.Add {
		w.WriteString(SuccessStyle.Render("  + ") +
			a.Mod + "/" + a.Entry.Path +
			MutedStyle.Render(" ("+humanize.IBytes(uint64(a.Entry.Size))+")") + "\n")
	}
	for _, u := range p.Update {
		w.WriteString(WarningStyle.Render("  ~ ") +
			u.Mod + "/" + u.New.Path +
			MutedStyle.Render(" ("+humanize.IBytes(uint64(u.New.Size))+")") + "\n")
	}
	for _, d := range p.Remove {
		w.WriteString(DangerStyle.Render("  - ") + d.Mod + "/" + d.Entry.Path + "\n")
	}
}

func (f *PrettyFormatter) sync(w *bytes.Buffer, s *types.SyncReport) {
	stats := fmt.Sprintf("%d files, %s in %s",
		s.Succeeded(),
		humanize.IBytes(uint64(s.BytesTransferred)),
		formatDuration(s.Elapsed))
	w.WriteString(f.header(s.ProfileID, "Sync", LabelStyle.Render("Transferred: ")+ValueStyle.Render(stats)))
	w.WriteString("\n")

	failed := s.Failed()
	switch {
	case s.Cancelled:
		w.WriteString(WarningStyle.Render("Sync cancelled") + "\n")
	case len(failed) == 0:
		w.WriteString(SuccessStyle.Render(fmt.Sprintf("All %d mods up to date", len(s.Advanced))) + "\n")
	default:
		w.WriteString(DangerStyle.Render(fmt.Sprintf("%d files failed:", len(failed))) + "\n")
		for _, file := range failed {
			w.WriteString("  " + file.Mod + "/" + file.Path +
				MutedStyle.Render(" ("+string(file.Kind)+": "+file.Error+")") + "\n")
		}
	}

	if len(s.Held) > 0 {
		w.WriteString(WarningStyle.Render(fmt.Sprintf("Held back: %s", strings.Join(s.Held, ", "))) + "\n")
	}
}

// formatDuration renders durations at a precision fit for reports.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(time.Millisecond * 100).String()
	default:
		return d.Round(time.Second).String()
	}
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
