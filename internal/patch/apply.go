package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Apply reverses Generate: applying a patch to the original content it
// was generated from reproduces the modified content byte for byte.
//
// Context and deleted lines are verified against the original; a
// mismatch aborts with an error describing the offending line.
func Apply(original, patch string) (string, error) {
	if strings.TrimSpace(patch) == "" {
		return "", ErrEmptyPatch
	}

	origLines, origNoEOL := splitContent(original)

	var out []string
	outNoEOL := false
	cursor := 0 // index into origLines

	patchLines := strings.Split(patch, "\n")
	i := 0
	sawHunk := false
	for i < len(patchLines) {
		line := patchLines[i]
		if !strings.HasPrefix(line, "@@") {
			// Header and metadata lines between hunks.
			i++
			continue
		}

		m := hunkHeaderPattern.FindStringSubmatch(line)
		if m == nil {
			return "", fmt.Errorf("malformed hunk header %q", line)
		}
		sawHunk = true
		oldStart, _ := strconv.Atoi(m[1])
		oldCount := 1
		if m[2] != "" {
			oldCount, _ = strconv.Atoi(m[2])
		}
		i++

		// Copy untouched lines up to the hunk position.
		target := oldStart - 1
		if oldCount == 0 {
			target = oldStart
		}
		if target < cursor || target > len(origLines) {
			return "", fmt.Errorf("hunk at line %d out of order", oldStart)
		}
		out = append(out, origLines[cursor:target]...)
		cursor = target

		lastEmitted := "" // "+", " " or "-" for the newline marker
		for i < len(patchLines) {
			body := patchLines[i]
			if body == "" && i == len(patchLines)-1 {
				i++
				break
			}
			if strings.HasPrefix(body, "@@") {
				break
			}
			switch {
			case strings.HasPrefix(body, " "):
				text := body[1:]
				if cursor >= len(origLines) || origLines[cursor] != text {
					return "", fmt.Errorf("context mismatch at original line %d", cursor+1)
				}
				out = append(out, text)
				cursor++
				lastEmitted = " "
			case strings.HasPrefix(body, "-"):
				text := body[1:]
				if cursor >= len(origLines) || origLines[cursor] != text {
					return "", fmt.Errorf("delete mismatch at original line %d", cursor+1)
				}
				cursor++
				lastEmitted = "-"
			case strings.HasPrefix(body, "+"):
				out = append(out, body[1:])
				lastEmitted = "+"
			case strings.HasPrefix(body, `\`):
				// Newline annotation for the preceding line. Only the
				// new-file side affects the reconstructed content.
				if lastEmitted == "+" || lastEmitted == " " {
					outNoEOL = true
				}
			case body == "":
				// Blank context line with the leading space trimmed.
				if cursor >= len(origLines) || origLines[cursor] != "" {
					return "", fmt.Errorf("context mismatch at original line %d", cursor+1)
				}
				out = append(out, "")
				cursor++
				lastEmitted = " "
			default:
				return "", fmt.Errorf("malformed patch line %q", body)
			}
			i++
		}
	}

	if !sawHunk {
		return "", fmt.Errorf("patch contains no hunks")
	}

	// Remaining original tail keeps its own newline disposition.
	if cursor < len(origLines) {
		out = append(out, origLines[cursor:]...)
		outNoEOL = origNoEOL
	}

	if len(out) == 0 {
		return "", nil
	}
	result := strings.Join(out, "\n")
	if !outNoEOL {
		result += "\n"
	}
	return result, nil
}

// splitContent splits file content into lines without terminators.
func splitContent(content string) (lines []string, noEOL bool) {
	if content == "" {
		return nil, false
	}
	noEOL = !strings.HasSuffix(content, "\n")
	lines = strings.Split(content, "\n")
	if !noEOL {
		lines = lines[:len(lines)-1]
	}
	return lines, noEOL
}
