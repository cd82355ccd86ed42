package tinkerpen

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot is the full state of the three playground buffers.
//
// Snapshot is a value type: it is read fresh from the editors at every render,
// save and share point and is never mutated afterwards.
type Snapshot struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// DefaultHTML is the boilerplate a new pen starts with.
const DefaultHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Document</title>
</head>
<body>

</body>
</html>`

// DefaultSnapshot returns the state a fresh playground opens with.
func DefaultSnapshot() Snapshot {
	return Snapshot{HTML: DefaultHTML}
}

// IsEmpty reports whether all three buffers are empty.
func (s Snapshot) IsEmpty() bool {
	return s.HTML == "" && s.CSS == "" && s.JS == ""
}

// MarshalSnapshot serializes s to its canonical JSON form.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep <, > and & literal, as JSON.stringify does in the browser.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalSnapshot parses the JSON form of a Snapshot.
//
// The input must be a JSON object. Keys match exactly, so "HTML" or "Js" are
// unknown keys and ignored. Missing or null fields become empty strings;
// fields of any other type are rejected so that a corrupt value is never
// partially applied.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Snapshot{}, fmt.Errorf("expected a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Snapshot{}, err
	}

	var s Snapshot
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"html", &s.HTML},
		{"css", &s.CSS},
		{"js", &s.JS},
	} {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return Snapshot{}, fmt.Errorf("field %q: %w", f.key, err)
		}
		if v != nil {
			*f.dst = *v
		}
	}
	return s, nil
}
