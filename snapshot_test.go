package tinkerpen

import (
	"strings"
	"testing"
)

func TestMarshalSnapshotKeepsHTMLLiteral(t *testing.T) {
	data, err := MarshalSnapshot(Snapshot{HTML: "<p>a & b</p>", CSS: "", JS: ""})
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	want := `{"html":"<p>a & b</p>","css":"","js":""}`
	if string(data) != want {
		t.Errorf("MarshalSnapshot = %s, want %s", data, want)
	}
}

func TestUnmarshalSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Snapshot
		wantErr bool
	}{
		{"all fields", `{"html":"<p>hi</p>","css":"p{}","js":"1"}`, Snapshot{"<p>hi</p>", "p{}", "1"}, false},
		{"missing fields", `{"html":"x"}`, Snapshot{HTML: "x"}, false},
		{"null fields", `{"html":null,"css":"c","js":null}`, Snapshot{CSS: "c"}, false},
		{"empty object", `{}`, Snapshot{}, false},
		{"extra fields ignored", `{"html":"x","theme":"dark"}`, Snapshot{HTML: "x"}, false},
		{"keys are case sensitive", `{"HTML":"x","Css":"c"}`, Snapshot{}, false},
		{"exact key wins over variant", `{"Js":"y","js":"z","html":null}`, Snapshot{JS: "z"}, false},
		{"duplicate key last wins", `{"css":"a","css":"b"}`, Snapshot{CSS: "b"}, false},
		{"leading whitespace", "  \n{\"js\":\"y\"}", Snapshot{JS: "y"}, false},
		{"number field", `{"html":1}`, Snapshot{}, true},
		{"object field", `{"css":{"a":1}}`, Snapshot{}, true},
		{"array", `["html"]`, Snapshot{}, true},
		{"null", `null`, Snapshot{}, true},
		{"string", `"html"`, Snapshot{}, true},
		{"truncated", `{"html":"x"`, Snapshot{}, true},
		{"empty", ``, Snapshot{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalSnapshot([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalSnapshot(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("UnmarshalSnapshot(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultSnapshot(t *testing.T) {
	s := DefaultSnapshot()
	if !strings.Contains(s.HTML, "<!DOCTYPE html>") {
		t.Errorf("default HTML missing doctype: %q", s.HTML)
	}
	if s.CSS != "" || s.JS != "" {
		t.Errorf("default CSS/JS should be empty, got %+v", s)
	}
	if s.IsEmpty() {
		t.Error("default snapshot should not be empty")
	}
	if !(Snapshot{}).IsEmpty() {
		t.Error("zero snapshot should be empty")
	}
}
