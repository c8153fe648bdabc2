// Package output renders command results as styled text, markdown or JSON.
//
// Text mode targets terminals, markdown mode targets pipes and agents, and
// JSON mode emits machine-readable documents. Auto mode picks text on a TTY
// and markdown otherwise.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

// Mode is an output format.
type Mode string

// OutputMode is an alias kept for readability at call sites.
type OutputMode = Mode //nolint:revive // stutter is intended

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: NewStyles(out, isTTY),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// Mode returns the configured mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	switch r.mode {
	case ModeText, ModeMarkdown, ModeJSON:
		return r.mode
	default:
		if r.isTTY {
			return ModeText
		}
		return ModeMarkdown
	}
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// Styles returns the text styles.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errOut
}

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section header.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeText {
		if level <= 1 {
			r.Println(r.styles.Header1.Render(text))
		} else {
			r.Println(r.styles.Header2.Render(text))
		}
		return
	}
	r.Println(FormatHeader(level, text))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Success writes a success message.
func (r *Renderer) Success(msg string) {
	r.message(r.styles.Success.Render("✓"), "**"+msg+"**", msg)
}

// Warning writes a warning to the error output.
func (r *Renderer) Warning(msg string) {
	prefix := "Warning: "
	if r.EffectiveMode() == ModeText {
		prefix = r.styles.Warning.Render("!") + " "
	}
	_, _ = fmt.Fprintln(r.errOut, prefix+msg)
}

// Error writes an error to the error output.
func (r *Renderer) Error(msg string) {
	prefix := "Error: "
	if r.EffectiveMode() == ModeText {
		prefix = r.styles.Error.Render("✗") + " "
	}
	_, _ = fmt.Fprintln(r.errOut, prefix+msg)
}

// Muted writes de-emphasized text.
func (r *Renderer) Muted(msg string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.styles.Muted.Render(msg))
		return
	}
	r.Println("_" + msg + "_")
}

func (r *Renderer) message(symbol, markdown, plain string) {
	switch r.EffectiveMode() {
	case ModeText:
		r.Println(symbol + " " + plain)
	case ModeMarkdown:
		r.Println(markdown)
	default:
		r.Println(plain)
	}
}

// StatusLine writes one item with its status, e.g. a job and its outcome.
func (r *Renderer) StatusLine(name, status, detail string) {
	if r.EffectiveMode() != ModeText {
		line := "- " + name + ": " + status
		if detail != "" {
			line += " (" + detail + ")"
		}
		r.Println(line)
		return
	}

	symbol, style := "•", r.styles.Muted
	switch status {
	case "success", "completed":
		symbol, style = "✓", r.styles.Success
	case "failed", "error", "cancelled":
		symbol, style = "✗", r.styles.Error
	case "skipped":
		symbol, style = "-", r.styles.Warning
	}
	line := style.Render(symbol) + " " + name
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

// Table writes rows under headers as a box table in text mode and a
// markdown table otherwise.
func (r *Renderer) Table(headers []string, rows [][]string) {
	tw := table.NewWriter()
	hdr := make(table.Row, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	tw.AppendHeader(hdr)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		tw.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeText {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Format.Header = text.FormatDefault

	if r.EffectiveMode() == ModeText {
		r.Println(tw.Render())
		return
	}
	r.Println(tw.RenderMarkdown())
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown key/value list item.
func FormatKeyValue(key, value string) string {
	return "- **" + key + ":** " + value
}
