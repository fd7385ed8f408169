// Package patch turns before/after file contents into unified diffs and
// applies them back.
//
// Generation runs sergi/go-diff in line mode and renders hunks with
// VCS-standard a/ b/ headers. Apply is the exact inverse: applying a
// generated patch to the original content reproduces the modified
// content byte for byte, including files without a trailing newline.
// ExecutePlan drives the rewrite of every file in a modification plan
// and accumulates the per-file patches into one result.
package patch
