package patch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines framing each hunk.
const contextLines = 3

// noNewlineMarker is the VCS-standard annotation for a file whose last
// line has no trailing newline.
const noNewlineMarker = `\ No newline at end of file`

type lineKind int

const (
	lineEqual lineKind = iota
	lineDelete
	lineInsert
)

// lineOp is one line of the computed diff. noEOL marks the final line of
// a document that does not end with a newline.
type lineOp struct {
	kind  lineKind
	text  string
	noEOL bool
}

// Generate produces a unified diff for one file.
//
// The ---/+++ headers reference originalPath relative to workingDir with
// forward slashes and a/ b/ prefixes. Identical contents yield
// ErrEmptyPatch. The original file is never touched; generation works
// entirely on the supplied contents.
func Generate(originalPath, originalContent, modifiedContent, workingDir string) (string, error) {
	if originalContent == modifiedContent {
		return "", ErrEmptyPatch
	}

	rel := headerPath(originalPath, workingDir)
	ops := diffLines(originalContent, modifiedContent)
	hunks := groupHunks(ops, contextLines)
	if len(hunks) == 0 {
		return "", ErrEmptyPatch
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", rel)
	fmt.Fprintf(&b, "+++ b/%s\n", rel)

	for _, h := range hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.oldStart, h.oldCount, h.newStart, h.newCount)
		for _, op := range h.ops {
			switch op.kind {
			case lineEqual:
				b.WriteString(" ")
			case lineDelete:
				b.WriteString("-")
			case lineInsert:
				b.WriteString("+")
			}
			b.WriteString(op.text)
			b.WriteString("\n")
			if op.noEOL {
				b.WriteString(noNewlineMarker)
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}

// headerPath normalizes the file path for the diff headers.
func headerPath(path, workingDir string) string {
	rel := path
	if workingDir != "" {
		if r, err := filepath.Rel(workingDir, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	return filepath.ToSlash(filepath.Clean(rel))
}

// diffLines computes line-level operations between two contents.
//
// The line-mode reduction maps each distinct line to one rune so the
// diff never splits inside a line; semantic cleanup then merges noisy
// edit fragments before mapping back.
func diffLines(original, modified string) []lineOp {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	a, b, lineArray := dmp.DiffLinesToChars(original, modified)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []lineOp
	for _, d := range diffs {
		lines, lastNoEOL := splitDiffText(d.Text)
		for i, line := range lines {
			op := lineOp{text: line, noEOL: lastNoEOL && i == len(lines)-1}
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				op.kind = lineDelete
			case diffmatchpatch.DiffInsert:
				op.kind = lineInsert
			default:
				op.kind = lineEqual
			}
			ops = append(ops, op)
		}
	}
	return ops
}

// splitDiffText splits a diff fragment into lines without terminators.
// lastNoEOL reports that the fragment's last line had no newline, which
// only happens at the very end of a document.
func splitDiffText(text string) (lines []string, lastNoEOL bool) {
	if text == "" {
		return nil, false
	}
	lastNoEOL = !strings.HasSuffix(text, "\n")
	lines = strings.Split(text, "\n")
	if !lastNoEOL {
		lines = lines[:len(lines)-1]
	}
	return lines, lastNoEOL
}

// hunk is a renderable group of operations with its header numbers.
type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	ops                []lineOp
}

// groupHunks frames each run of changes with context lines and merges
// runs whose frames touch.
func groupHunks(ops []lineOp, context int) []hunk {
	// old/new line counts consumed before each op.
	oldBefore := make([]int, len(ops)+1)
	newBefore := make([]int, len(ops)+1)
	for i, op := range ops {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if op.kind != lineInsert {
			oldBefore[i+1]++
		}
		if op.kind != lineDelete {
			newBefore[i+1]++
		}
	}

	type span struct{ start, end int }
	var spans []span
	for i := 0; i < len(ops); i++ {
		if ops[i].kind == lineEqual {
			continue
		}
		start := i - context
		if start < 0 {
			start = 0
		}
		end := i + context + 1
		if end > len(ops) {
			end = len(ops)
		}
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			spans[n-1].end = end
		} else {
			spans = append(spans, span{start, end})
		}
	}

	hunks := make([]hunk, 0, len(spans))
	for _, sp := range spans {
		h := hunk{ops: ops[sp.start:sp.end]}
		for _, op := range h.ops {
			if op.kind != lineInsert {
				h.oldCount++
			}
			if op.kind != lineDelete {
				h.newCount++
			}
		}
		h.oldStart = oldBefore[sp.start] + 1
		if h.oldCount == 0 {
			h.oldStart = oldBefore[sp.start]
		}
		h.newStart = newBefore[sp.start] + 1
		if h.newCount == 0 {
			h.newStart = newBefore[sp.start]
		}
		hunks = append(hunks, h)
	}
	return hunks
}
