// Package ui holds the terminal presentation helpers shared by the commands.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

var (
	Red     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	Green   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	Yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(true)
	Faint   = lipgloss.NewStyle().Faint(true)
	HashTag = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AF5F"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5FAFFF")).
			Padding(0, 1)
)

// Interactive reports whether stdin and stdout are terminals
func Interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Success prints a green check line
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Green.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warn prints a yellow line
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Yellow.Render(fmt.Sprintf(format, args...)))
}

// Spin runs fn behind a spinner when stdout is a terminal
func Spin(text string, fn func() error) error {
	if !isTerminal(os.Stdout) {
		return fn()
	}

	spinner, err := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).
		WithRemoveWhenDone(true).
		Start(text)
	if err != nil {
		return fn()
	}
	defer func() { _ = spinner.Stop() }()
	return fn()
}

// Table renders rows with the first row as header
func Table(rows [][]string) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
}

// Select asks the user to pick one of options
func Select(prompt string, options []string) (string, error) {
	return pterm.DefaultInteractiveSelect.WithOptions(options).Show(prompt)
}

// Confirm asks a yes/no question
func Confirm(prompt string, defaultValue bool) (bool, error) {
	return pterm.DefaultInteractiveConfirm.WithDefaultValue(defaultValue).Show(prompt)
}
