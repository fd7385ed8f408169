// Package secrets provides secret detection and redaction.
//
// Everything that leaves the process for the external code-rewriting
// collaborator (file contents, issue text) passes through scrubbing so
// credentials never reach an off-box model. Patch generation operates on
// the unscrubbed originals; only the outbound copies are redacted.
package secrets
