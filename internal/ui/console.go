// Package ui renders the human-facing progress lines of agkit.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Reporter receives user-facing messages from the pipeline.
type Reporter interface {
	// Header prints the banner of a command.
	Header(title string)
	// Section starts a group of steps.
	Section(title string)
	// Step reports progress inside a section.
	Step(format string, args ...any)
	// Success reports a completed step.
	Success(format string, args ...any)
	// Warn reports a recoverable problem.
	Warn(format string, args ...any)
	// Fail reports a fatal problem.
	Fail(format string, args ...any)
	// Summary prints the final key/value block.
	Summary(title string, rows []Row)
}

// Row is one key/value line of a summary.
type Row struct {
	Key   string
	Value string
}

var (
	accentColor  = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}
	successColor = lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#02BF87"}
	warnColor    = lipgloss.AdaptiveColor{Light: "#FF9500", Dark: "#FFAA33"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FE5F86"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	sectionStyle = lipgloss.NewStyle().Foreground(accentColor)
	stepStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warnColor)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	keyStyle     = lipgloss.NewStyle().Foreground(mutedColor).Width(9)
	ruleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
)

const ruleWidth = 40

// Console writes styled lines to a writer.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Discard returns a Reporter that drops everything.
func Discard() *Console {
	return NewConsole(io.Discard)
}

// Header prints the command banner.
func (c *Console) Header(title string) {
	c.println("")
	c.println(headerStyle.Render(title))
	c.println(ruleStyle.Render(strings.Repeat("─", lipgloss.Width(title))))
}

// Section starts a group of steps.
func (c *Console) Section(title string) {
	c.println("")
	c.println(sectionStyle.Render(title))
}

// Step reports progress inside a section.
func (c *Console) Step(format string, args ...any) {
	c.println(stepStyle.Render(" [>] " + fmt.Sprintf(format, args...)))
}

// Success reports a completed step.
func (c *Console) Success(format string, args ...any) {
	c.println(successStyle.Render(" [+] " + fmt.Sprintf(format, args...)))
}

// Warn reports a recoverable problem.
func (c *Console) Warn(format string, args ...any) {
	c.println(warnStyle.Render(" [!] " + fmt.Sprintf(format, args...)))
}

// Fail reports a fatal problem.
func (c *Console) Fail(format string, args ...any) {
	c.println(failStyle.Render("[x] " + fmt.Sprintf(format, args...)))
}

// Summary prints the final block.
func (c *Console) Summary(title string, rows []Row) {
	rule := ruleStyle.Render(strings.Repeat("─", ruleWidth))

	c.println("")
	c.println(successStyle.Bold(true).Render(title))
	c.println(rule)

	for _, row := range rows {
		c.println(keyStyle.Render(row.Key+":") + " " + row.Value)
	}

	c.println(rule)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintln(c.w, s)
}
