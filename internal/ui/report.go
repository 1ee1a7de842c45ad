package ui

import (
	"fmt"
	"io"
	"time"
)

// Reporter writes the human-readable progress lines to stdout.
type Reporter struct {
	out io.Writer
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{out: w}
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Scan lists the notes of a dry-run scan, flagging those with markers.
func (r *Reporter) Scan(notes []string, flagged func(string) bool) {
	r.printf("Found %d note(s) in vault scan:", len(notes))
	for _, n := range notes {
		if flagged(n) {
			r.printf("- %s %s", Path(n), Bold.Render("***"))
			continue
		}
		r.printf("- %s", n)
	}
}

func (r *Reporter) SkipMissing(rel string) { r.printf("Skip missing: %s", Path(rel)) }

func (r *Reporter) NoImages(rel string) {
	r.printf("No images found for markers in: %s", Path(rel))
}

func (r *Reporter) Planned(rel string) { r.printf("Planned update: %s", Path(rel)) }

// Change prints one planned field or marker change under a note.
func (r *Reporter) Change(desc string) { r.printf("  %s", Hint(desc)) }

func (r *Reporter) DryRun() { r.printf("%s", Hint("Dry-run: no files written.")) }

func (r *Reporter) Updated(backup string) {
	r.printf("Updated. Backup saved to: %s", Path(backup))
}

func (r *Reporter) Ambiguous(rel string) {
	r.printf("%s", Warning.Render("Skip ambiguous tags: ")+Path(rel))
}

func (r *Reporter) NoISBN(rel string) { r.printf("No ISBN found for: %s", Path(rel)) }

func (r *Reporter) NoTMDB(rel string) { r.printf("No TMDb match for: %s", Path(rel)) }

func (r *Reporter) NoChanges() { r.printf("No changes needed.") }

// Declined reports a change that was not confirmed.
func (r *Reporter) Declined(rel string, hint string) {
	if hint != "" {
		r.printf("Skipped: %s %s", Path(rel), Hint("("+hint+")"))
		return
	}
	r.printf("Skipped: %s", Path(rel))
}

// Warn prints a non-fatal problem.
func (r *Reporter) Warn(msg string) { r.printf("%s", Warning.Render(msg)) }

func (r *Reporter) NoHistory() { r.printf("No changes recorded.") }

// HistoryEntry prints one journal line.
func (r *Reporter) HistoryEntry(at time.Time, note, summary, backup string) {
	line := fmt.Sprintf("%s  %s", Hint(at.Local().Format("2006-01-02 15:04:05")), Path(note))
	if summary != "" {
		line += "  " + summary
	}
	if backup != "" {
		line += "  " + Hint("backup: "+backup)
	}
	r.printf("%s", line)
}
