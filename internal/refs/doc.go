// Package refs resolves the reference fragments of a workflow step against
// configuration lookups and the outputs of earlier steps.
//
// P<id> resolves to prompt text, R<k> to the output of the k-th step (1-based,
// counting every step whether it committed or not), C and C<id> to the run's
// custom topic, and M<id> to a model catalog entry. Unresolved references
// yield empty text and are reported in Resolution.Missing, never as errors.
package refs
