package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// Diagnostic is one (message, source span) pair. Rendering is the
// caller's concern; the compiler only records where compilation failed.
type Diagnostic struct {
	Message string
	Span    Span
}

// Reporter is the error sink diagnostics are reported through. A unit
// aborts on its first reported error, so in practice a reporter holds at
// most one diagnostic per Compile call, but the sink does not enforce
// that.
type Reporter struct {
	diags []Diagnostic
}

// NewReporter creates an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Error records a diagnostic.
func (r *Reporter) Error(message string, span Span) {
	r.diags = append(r.diags, Diagnostic{Message: message, Span: span})
}

// HasErrors reports whether any diagnostic was recorded.
func (r *Reporter) HasErrors() bool {
	return len(r.diags) > 0
}

// Diagnostics returns the recorded diagnostics in report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diags
}

// CompileError is the error returned when a unit fails to compile. The
// same message and span are also recorded on the reporter.
type CompileError struct {
	Message string
	Span    Span
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s at line %d", e.Message, e.Span.Start.Line)
}
