// Package diag implements diagnostic collection for the Draco compiler.
// Diagnostics are never fatal: every phase records what it found and runs
// to completion.
package diag

import (
	"fmt"
	"sync"
)

// Severity classifies how serious a diagnostic is.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// severityNames maps severities to their string representation.
var severityNames = [...]string{
	Info:    "info",
	Warning: "warning",
	Error:   "error",
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", s)
}

// Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Offset returns the span shifted by delta bytes.
func (s Span) Offset(delta int) Span {
	return Span{Start: s.Start + delta, End: s.End + delta}
}

// String returns the span in "[start..end)" form.
func (s Span) String() string {
	return fmt.Sprintf("[%d..%d)", s.Start, s.End)
}

// Template is the fixed part of a diagnostic: stable code, severity, and a
// format string filled with per-occurrence arguments.
type Template struct {
	Code     string
	Severity Severity
	Format   string
}

// Diagnostic is one reported finding.
type Diagnostic struct {
	Template *Template
	Args     []interface{}
	Span     Span
}

// New creates a diagnostic from a template, span, and format arguments.
func New(tmpl *Template, span Span, args ...interface{}) *Diagnostic {
	return &Diagnostic{Template: tmpl, Args: args, Span: span}
}

// Message returns the formatted diagnostic message.
func (d *Diagnostic) Message() string {
	return fmt.Sprintf(d.Template.Format, d.Args...)
}

// Severity returns the diagnostic's severity.
func (d *Diagnostic) Severity() Severity { return d.Template.Severity }

// Code returns the diagnostic's stable code.
func (d *Diagnostic) Code() string { return d.Template.Code }

// WithOffset returns a copy of the diagnostic with its span shifted.
// Syntax diagnostics are stored relative to their green node and realized
// to absolute positions through the red tree.
func (d *Diagnostic) WithOffset(delta int) *Diagnostic {
	if delta == 0 {
		return d
	}
	return &Diagnostic{Template: d.Template, Args: d.Args, Span: d.Span.Offset(delta)}
}

// String returns "severity code span: message".
func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", d.Severity(), d.Code(), d.Span, d.Message())
}

// Bag is an append-only collection of diagnostics. Concurrent appends are
// permitted; enumeration must not race with mutation (callers enumerate
// after the producing phase completes).
type Bag struct {
	mu    sync.Mutex
	diags []*Diagnostic
}

// NewBag creates an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{}
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(d *Diagnostic) {
	b.mu.Lock()
	b.diags = append(b.diags, d)
	b.mu.Unlock()
}

// AddNew creates a diagnostic and appends it to the bag.
func (b *Bag) AddNew(tmpl *Template, span Span, args ...interface{}) {
	b.Add(New(tmpl, span, args...))
}

// AddAll appends all given diagnostics to the bag.
func (b *Bag) AddAll(ds []*Diagnostic) {
	b.mu.Lock()
	b.diags = append(b.diags, ds...)
	b.mu.Unlock()
}

// Diagnostics returns a snapshot of the collected diagnostics.
func (b *Bag) Diagnostics() []*Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Diagnostic, len(b.diags))
	copy(out, b.diags)
	return out
}

// Len returns the number of collected diagnostics.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.diags)
}

// HasErrors reports whether any diagnostic has Error severity.
func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.diags {
		if d.Severity() == Error {
			return true
		}
	}
	return false
}
