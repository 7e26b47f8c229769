// Package ui renders presenter views on a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"

	"github.com/Bahjat/auth-insight-tool/internal/present"
)

const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

const (
	wrapWidth    = 100
	previewLines = 6
)

// Printer writes views to w. Colors are emitted only when color is true.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) paint(s string, codes ...string) string {
	if !p.color || len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + reset
}

// Notice prints a one-line warning such as a validation message.
func (p *Printer) Notice(msg string) {
	_, _ = fmt.Fprintf(p.w, "%s\n", p.paint("! "+msg, bold, yellow))
}

// PrintView prints one result: URL, banner, content sections and summary.
// Constrained blocks are clipped to a few lines.
func (p *Printer) PrintView(v present.View) {
	_, _ = fmt.Fprintf(p.w, "\n%s\n", p.paint(v.URL, bold, cyan))
	_, _ = fmt.Fprintf(p.w, "%s\n", p.paint(strings.Repeat("─", min(len([]rune(v.URL)), wrapWidth)), dim))

	_, _ = fmt.Fprintf(p.w, "%s\n", p.paint(v.Banner.Label, bold, bannerColor(v.Banner.Kind)))
	if v.Banner.Message != "" {
		_, _ = fmt.Fprintf(p.w, "  %s\n", v.Banner.Message)
	}

	for _, s := range v.Sections {
		_, _ = fmt.Fprintf(p.w, "\n  %s\n", p.paint(s.Heading, bold))
		lines := wrap(s.Block.Content, wrapWidth)
		shown := lines
		if s.Block.Constrained() && len(lines) > previewLines {
			shown = lines[:previewLines]
		}
		for _, l := range shown {
			_, _ = fmt.Fprintf(p.w, "    %s\n", l)
		}
		if hidden := len(lines) - len(shown); hidden > 0 {
			_, _ = fmt.Fprintf(p.w, "    %s\n", p.paint(fmt.Sprintf("… %d more lines. %s (-expand)", hidden, s.Block.ToggleLabel()), dim))
		}
	}

	if v.Summary != nil {
		_, _ = fmt.Fprintf(p.w, "\n  %s %s\n", p.paint("Method:", dim), v.Summary.Method)
		_, _ = fmt.Fprintf(p.w, "  %s %s\n", p.paint("Action:", dim), v.Summary.Action)
	}
}

// PrintBatch prints every view in order followed by a summary table.
func (p *Printer) PrintBatch(views []present.View) {
	for _, v := range views {
		p.PrintView(v)
	}
	if len(views) == 0 {
		return
	}

	_, _ = fmt.Fprintln(p.w)
	tbl := table.New("#", "URL", "Result", "Method", "Action").WithWriter(p.w)
	if p.color {
		tbl.WithHeaderFormatter(func(format string, vals ...interface{}) string {
			return bold + fmt.Sprintf(format, vals...) + reset
		})
	}
	for i, v := range views {
		method, action := "", ""
		if v.Summary != nil {
			method, action = v.Summary.Method, v.Summary.Action
		}
		tbl.AddRow(i+1, v.URL, outcomeLabel(v.Outcome), method, action)
	}
	tbl.Print()
}

func outcomeLabel(k present.OutcomeKind) string {
	switch k {
	case present.Found:
		return "found"
	case present.NotFound:
		return "not found"
	default:
		return "error"
	}
}

func bannerColor(k present.BannerKind) string {
	switch k {
	case present.BannerFound:
		return green
	case present.BannerNotFound:
		return yellow
	default:
		return red
	}
}

// wrap splits s on newlines and then hard-wraps each line at width runes.
func wrap(s string, width int) []string {
	var out []string
	for line := range strings.SplitSeq(s, "\n") {
		r := []rune(line)
		for len(r) > width {
			out = append(out, string(r[:width]))
			r = r[width:]
		}
		out = append(out, string(r))
	}
	return out
}
