// Package relevance maps an issue's natural-language description to
// candidate source files in a repository.
//
// Resolution runs an ordered cascade of strategies, each with the same
// contract, stopping at the first one that yields results:
//
//  1. entity extraction: identifiers named in the issue matched against
//     file names and declaration patterns
//  2. categorical heuristics: issue classified as test/security/config/
//     performance, each with a dedicated file-selection heuristic
//  3. semantic similarity: nearest-neighbor search over chunked file
//     contents via an embedding index
//  4. simple text match: keyword scoring over file contents
//
// Resolve never fails: a total miss yields the "unknown" sentinel, and
// any strategy error falls through to the next strategy.
package relevance
