package issue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Severity
	}{
		{"exact high", "high", SeverityHigh},
		{"exact medium", "medium", SeverityMedium},
		{"exact low", "low", SeverityLow},
		{"critical substring", "Critical: fix now", SeverityHigh},
		{"severe substring", "this is severe", SeverityHigh},
		{"moderate substring", "moderate risk", SeverityMedium},
		{"unknown text", "whatever", SeverityLow},
		{"empty", "", SeverityLow},
		{"mixed case", "HIGH", SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSeverity(tt.raw))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("nil payload is an error", func(t *testing.T) {
		_, err := Normalize(nil)
		require.ErrorIs(t, err, ErrMissingIssue)
	})

	t.Run("files alias accepted", func(t *testing.T) {
		iss, err := Normalize(&Intake{
			Title: "Unused variable x",
			Files: []any{"utils.js"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"utils.js"}, iss.AffectedFiles)
	})

	t.Run("affectedFiles wins over files", func(t *testing.T) {
		iss, err := Normalize(&Intake{
			Title:         "x",
			AffectedFiles: []any{"a.go"},
			Files:         []any{"b.go"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go"}, iss.AffectedFiles)
	})

	t.Run("empty file list defaults to unknown", func(t *testing.T) {
		iss, err := Normalize(&Intake{Title: "x"})
		require.NoError(t, err)
		assert.Equal(t, []string{UnknownFile}, iss.AffectedFiles)
	})

	t.Run("blank entries dropped", func(t *testing.T) {
		iss, err := Normalize(&Intake{
			Title:         "x",
			AffectedFiles: []any{" ", "src/app.js", ""},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"src/app.js"}, iss.AffectedFiles)
	})

	t.Run("non-string elements filtered", func(t *testing.T) {
		payload := `{"title": "t", "affectedFiles": ["a.js", 5, "b.js", null, {"path": "c.js"}]}`
		var in Intake
		require.NoError(t, json.Unmarshal([]byte(payload), &in))

		iss, err := Normalize(&in)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.js", "b.js"}, iss.AffectedFiles)
	})

	t.Run("all non-string falls back to files alias", func(t *testing.T) {
		payload := `{"title": "t", "affectedFiles": [1, 2], "files": ["d.js"]}`
		var in Intake
		require.NoError(t, json.Unmarshal([]byte(payload), &in))

		iss, err := Normalize(&in)
		require.NoError(t, err)
		assert.Equal(t, []string{"d.js"}, iss.AffectedFiles)
	})

	t.Run("severity normalized", func(t *testing.T) {
		iss, err := Normalize(&Intake{Title: "x", Severity: "Severe bug"})
		require.NoError(t, err)
		assert.Equal(t, SeverityHigh, iss.Severity)
	})
}

func TestIssueText(t *testing.T) {
	i := &Issue{Title: "SQL injection in login", Description: "token password auth"}
	assert.Equal(t, "SQL injection in login token password auth", i.Text())

	i = &Issue{Title: "Only title"}
	assert.Equal(t, "Only title", i.Text())
}
