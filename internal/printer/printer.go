// Package printer provides styled terminal output helpers. Commands pull the
// printer off the context so tests can capture output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer writes styled status lines.
type Printer struct {
	out io.Writer
}

// New creates a printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

type ctxKey struct{}

// WithCtx stores the printer on the context.
func WithCtx(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer stored on the context, or a stdout printer.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stdout)
}

func (p *Printer) line(symbol, msg string, details []string) {
	fmt.Fprintf(p.out, "%s %s\n", symbol, msg)
	for _, detail := range details {
		fmt.Fprintf(p.out, "  %s\n", detailStyle.Render(detail))
	}
}

// Success prints a green check line with optional detail lines.
func (p *Printer) Success(msg string, details ...string) {
	p.line(successStyle.Render("✓"), msg, details)
}

// Error prints a red cross line with optional detail lines.
func (p *Printer) Error(msg string, details ...string) {
	p.line(errorStyle.Render("✗"), msg, details)
}

// Warn prints a yellow warning line with optional detail lines.
func (p *Printer) Warn(msg string, details ...string) {
	p.line(warnStyle.Render("!"), msg, details)
}

// Info prints a blue info line with optional detail lines.
func (p *Printer) Info(msg string, details ...string) {
	p.line(infoStyle.Render("•"), msg, details)
}

// Title prints a bold section heading.
func (p *Printer) Title(msg string) {
	fmt.Fprintf(p.out, "\n%s\n", titleStyle.Render(msg))
}

// Plain prints an unstyled line.
func (p *Printer) Plain(msg string) {
	fmt.Fprintln(p.out, msg)
}
