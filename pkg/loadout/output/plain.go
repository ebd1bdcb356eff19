package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// PlainFormatter produces unstyled tab-separated output suitable for
// scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	switch {
	case r.Scan != nil:
		f.scan(tw, r.Scan)
	case r.Drift != nil:
		f.drift(tw, r.Drift)
	case r.Plan != nil:
		f.plan(tw, r.Plan)
	case r.Sync != nil:
		f.sync(tw, r.Sync)
	}

	return tw.Flush()
}

func (f *PlainFormatter) scan(tw *tabwriter.Writer, s *types.ScanReport) {
	fmt.Fprintln(tw, "MOD\tFILES\tBYTES")
	for _, mod := range s.Manifest.Mods {
		var size int64
		for _, file := range mod.Files {
			size += file.Size
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", mod.Name, len(mod.Files), size)
	}
	for _, e := range s.Errors {
		fmt.Fprintf(tw, "ERROR\t%s\t%s\n", e.Path, e.Error)
	}
}

func (f *PlainFormatter) drift(tw *tabwriter.Writer, d *types.DriftReport) {
	fmt.Fprintln(tw, "STATE\tMOD\tPATH")
	write := func(state string, entries []types.DriftEntry) {
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", state, e.Mod, e.Path)
		}
	}
	write("modified", d.Modified)
	write("missing", d.Missing)
	write("extra", d.Extra)
	for _, e := range d.ScanErrors {
		fmt.Fprintf(tw, "error\t\t%s\n", e.Path)
	}
	if d.Clean() {
		fmt.Fprintf(tw, "clean\t\t%d files\n", len(d.Matching))
	}
}

func (f *PlainFormatter) plan(tw *tabwriter.Writer, p *types.Plan) {
	fmt.Fprintln(tw, "ACTION\tMOD\tPATH\tBYTES")
	for _, r := range p.Rename {
		fmt.Fprintf(tw, "rename\t%s\t%s\t\n", r.From, r.To)
	}
	for _, a := range p.Add {
		fmt.Fprintf(tw, "add\t%s\t%s\t%d\n", a.Mod, a.Entry.Path, a.Entry.Size)
	}
	for _, u := range p.Update {
		fmt.Fprintf(tw, "update\t%s\t%s\t%d\n", u.Mod, u.New.Path, u.New.Size)
	}
	for _, d := range p.Remove {
		fmt.Fprintf(tw, "remove\t%s\t%s\t\n", d.Mod, d.Entry.Path)
	}
}

func (f *PlainFormatter) sync(tw *tabwriter.Writer, s *types.SyncReport) {
	fmt.Fprintln(tw, "OUTCOME\tMOD\tPATH\tDETAIL")
	for _, file := range s.Files {
		detail := ""
		if file.Outcome == types.OutcomeFailed {
			detail = string(file.Kind) + ": " + file.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", file.Outcome, file.Mod, file.Path, detail)
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
