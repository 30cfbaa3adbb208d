// Package ui provides stderr-based output for the scrim daemon.
package ui

import (
	"fmt"
	"os"
)

// ANSI color codes.
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	blue    = "\033[34m"
	yellow  = "\033[33m"
	green   = "\033[32m"
	red     = "\033[31m"
	cyan    = "\033[36m"
	magenta = "\033[35m"
)

// Printer writes human-oriented daemon output to stderr.
type Printer struct {
	Verbose bool
}

// New creates a Printer; verbose enables Debug output.
func New(verbose bool) *Printer {
	return &Printer{Verbose: verbose}
}

func (p *Printer) Banner() {
	fmt.Fprintln(os.Stderr, bold+cyan+"scrim"+reset+dim+" — blurred backdrop sync daemon"+reset)
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(os.Stderr, red+bold+"error: "+reset+"%s\n", msg)
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintf(os.Stderr, yellow+"warn: "+reset+"%s\n", msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintf(os.Stderr, dim+"%s"+reset+"\n", msg)
}

// Debug prints only when verbose output is enabled.
func (p *Printer) Debug(msg string) {
	if p.Verbose {
		fmt.Fprintf(os.Stderr, dim+"debug: %s"+reset+"\n", msg)
	}
}

func (p *Printer) RegenStart(flowID int64, identity string, w, h int) {
	fmt.Fprintf(os.Stderr, magenta+bold+"↻ regen"+reset+dim+" flow %d"+reset+" %s @ %dx%d\n", flowID, identity, w, h)
}

func (p *Printer) StageApplied(stage string, flowID int64, ms int64) {
	color := blue
	if stage == "final" {
		color = green
	}
	fmt.Fprintf(os.Stderr, color+"✓ %s applied"+reset+dim+" (flow %d, %dms)"+reset+"\n", stage, flowID, ms)
}

func (p *Printer) StageDiscarded(stage string, flowID int64) {
	fmt.Fprintf(os.Stderr, yellow+"⊘ %s discarded"+reset+dim+" (stale flow %d)"+reset+"\n", stage, flowID)
}

func (p *Printer) OverlayUpdate(color string, brightness int) {
	if p.Verbose {
		fmt.Fprintf(os.Stderr, dim+"overlay %s (extreme %d)"+reset+"\n", color, brightness)
	}
}

// Disabled announces that the subsystem shut itself off. Logged once.
func (p *Printer) Disabled(reason string) {
	fmt.Fprintf(os.Stderr, red+bold+"✗ scrim disabled"+reset+" — %s\n", reason)
}
