package formatting

import (
	"encoding/json"
	"fmt"
	"time"
)

// encodeJSON marshals v indented for people, or on one line when compact
// is set.
func encodeJSON(v interface{}, compact bool) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if compact {
		b, err = json.Marshal(v)
	} else {
		b, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to format JSON: %w", err)
	}
	return b, nil
}

// formatTime renders a transition time as a local wall clock, "-" when
// the service never transitioned.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("15:04:05")
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
