package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	warnColor    = color.New(color.FgHiYellow)
	successColor = color.New(color.FgHiGreen)
)

// rawOutput disables markdown rendering of model replies
var rawOutput bool

func header(title string) {
	fmt.Println(headerStyle.Render(title))
}

func warnf(format string, args ...any) {
	warnColor.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

func successf(format string, args ...any) {
	successColor.Printf("✓ "+format+"\n", args...)
}

// renderMarkdown prints md through glamour when stdout is a terminal.
func renderMarkdown(md string) {
	if rawOutput || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		logger.Sugar().Debugf("markdown render failed: %v", err)
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}

// startSpinner shows progress on stderr while the model works. The
// returned func stops it.
func startSpinner(msg string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

// printStructured writes v as JSON or toon when requested and reports
// whether it did.
func printStructured(v any, asJSON, asToon bool) (bool, error) {
	switch {
	case asJSON:
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return true, nil
	case asToon:
		output, err := gotoon.Encode(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return true, nil
	}
	return false, nil
}
