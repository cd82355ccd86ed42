// Package render composes the three playground buffers into one preview
// document.
package render

import (
	"strings"

	"github.com/livetemplate/tinkerpen"
)

// ErrorBlockStyle is the inline style of the block that replaces the preview
// body when the user script throws.
const ErrorBlockStyle = "color: red;"

// Document is a complete, self-contained HTML document ready to be assigned
// to an iframe's srcdoc.
type Document string

// String returns the document source.
func (d Document) String() string { return string(d) }

// Bytes returns the document source as bytes.
func (d Document) Bytes() []byte { return []byte(d) }

// Empty reports whether the document is the zero value.
func (d Document) Empty() bool { return d == "" }

// Render wraps the snapshot into a preview document.
//
// The CSS goes into a style element in the head, the HTML fragment becomes the
// body content, and the JS runs inside a try/catch that swaps the body for a
// red error block when the script throws. No field is validated or escaped;
// the document is re-parsed by the browser on every assignment.
func Render(s tinkerpen.Snapshot) Document {
	var b strings.Builder
	b.Grow(len(s.HTML) + len(s.CSS) + len(s.JS) + skeletonSize)

	b.WriteString("<html>\n  <head>\n    <style>")
	b.WriteString(s.CSS)
	b.WriteString("</style>\n  </head>\n  <body>\n")
	b.WriteString(s.HTML)
	b.WriteString("\n    ")
	writeGuardedScript(&b, s.JS)
	b.WriteString("\n  </body>\n</html>\n")

	return Document(b.String())
}

// GuardScript returns the user script wrapped in the runtime guard.
func GuardScript(js string) string {
	var b strings.Builder
	writeGuardedScript(&b, js)
	return b.String()
}

func writeGuardedScript(b *strings.Builder, js string) {
	b.WriteString("<script>\n      try {\n")
	b.WriteString(js)
	b.WriteString("\n      } catch (error) {\n        document.body.innerHTML = '<pre style=\"")
	b.WriteString(ErrorBlockStyle)
	b.WriteString("\">' + error + '</pre>';\n      }\n    </script>")
}

// skeletonSize is the approximate fixed overhead of a rendered document.
const skeletonSize = 256
