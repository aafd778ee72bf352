package naml

// Diagnostics accumulates CompileErrors for one compilation unit.
// Parse and type checking both append to the same collector and run
// to completion before the pipeline halts and reports everything at
// once, per §7's propagation policy; codegen instead stops at its
// first error (see LowerProgram in the codegen package).
type Diagnostics struct {
	errs []*CompileError
}

// NewDiagnostics returns an empty collector.
func NewDiagnostics() *Diagnostics { return &Diagnostics{} }

// Add records err.
func (d *Diagnostics) Add(err *CompileError) { d.errs = append(d.errs, err) }

// HasErrors reports whether anything has been recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.errs) > 0 }

// Errors returns all recorded diagnostics in the order they were
// added.
func (d *Diagnostics) Errors() []*CompileError { return d.errs }

// CountForStage returns how many recorded diagnostics belong to
// stage.
func (d *Diagnostics) CountForStage(stage Stage) int {
	n := 0
	for _, e := range d.errs {
		if e.Stage == stage {
			n++
		}
	}
	return n
}
