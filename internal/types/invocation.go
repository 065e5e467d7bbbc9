package types

// InvocationParams are the per-case arguments handed to the external tool.
type InvocationParams struct {
	JarPath    string
	SeedsDir   string
	TargetSeed string
	Iterations int
}

// InvocationResult is the outcome of a single external tool attempt.
type InvocationResult struct {
	ExitCode       int
	Output         string // stdout followed by stderr
	HasErrorMarker bool
	Err            error // set when the process could not be spawned or waited on
}

// Succeeded reports whether the process exited with code 0.
func (r InvocationResult) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0
}

// OK reports whether the attempt counts as a success: exit code 0 and no
// failure marker in the captured output.
func (r InvocationResult) OK() bool {
	return r.Succeeded() && !r.HasErrorMarker
}
