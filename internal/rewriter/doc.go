// Package rewriter talks to the external code-rewriting collaborator.
//
// The production implementation drives an openai-compatible chat
// endpoint (Ollama by default) and extracts the rewritten file from the
// fenced code block in the reply. Content leaving the process passes
// through the secrets scrubber first; the patch pipeline itself always
// operates on unscrubbed content.
package rewriter
