// Package workflow executes workflow codes.
//
// A workflow code is a comma-separated list of step tokens. The Engine walks
// the tokens in order, classifying each one only when it is reached, and
// dispatches it to the handler for its kind. Every step appends exactly one
// entry to the run's output list: the step's result when it commits, or a
// null placeholder when it is skipped. Later steps reference earlier outputs
// by their 1-based position (R<n>), so the placeholder keeps positions
// aligned.
//
// Failures follow a fixed policy. Missing references and catalog refresh
// failures skip the step and the run continues. Classification faults and
// synthesis or generation failures abort the run; every audit record written
// up to that point is kept. The Runner fans a batch of workflows out with
// bounded concurrency and a per-workflow file lock.
package workflow
