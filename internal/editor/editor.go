// Package editor defines the contract between the playground and its three
// code buffers, along with an in-memory implementation.
package editor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/livetemplate/tinkerpen"
)

// Editor is one code buffer. Implementations wrap a browser widget, a file
// or plain memory.
type Editor interface {
	// Value returns the current text.
	Value() string

	// SetValue replaces the text. Implementations raise a change
	// notification, as editor widgets do for programmatic edits.
	SetValue(value string)

	// OnChange registers fn to run after every content change and returns a
	// function that removes it.
	OnChange(fn func()) (cancel func())
}

// Lang identifies one of the three buffers.
type Lang string

const (
	LangHTML Lang = "html"
	LangCSS  Lang = "css"
	LangJS   Lang = "js"
)

// Langs lists the buffers in display order.
var Langs = []Lang{LangHTML, LangCSS, LangJS}

// ParseLang maps a buffer name (case-insensitive) to its Lang.
// "javascript" is accepted for js.
func ParseLang(s string) (Lang, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return LangHTML, nil
	case "css":
		return LangCSS, nil
	case "js", "javascript":
		return LangJS, nil
	default:
		return "", fmt.Errorf("unknown editor %q", s)
	}
}

// Field returns the buffer of s named by l.
func (l Lang) Field(s tinkerpen.Snapshot) string {
	switch l {
	case LangHTML:
		return s.HTML
	case LangCSS:
		return s.CSS
	case LangJS:
		return s.JS
	}
	return ""
}

// Buffer is a goroutine-safe in-memory Editor.
type Buffer struct {
	mu        sync.Mutex
	value     string
	nextID    int
	listeners map[int]func()
}

// NewBuffer returns a Buffer holding value.
func NewBuffer(value string) *Buffer {
	return &Buffer{value: value, listeners: make(map[int]func())}
}

// Value returns the current text.
func (b *Buffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// SetValue replaces the text and notifies listeners. Listeners run on the
// caller's goroutine after the lock is released.
func (b *Buffer) SetValue(value string) {
	b.mu.Lock()
	b.value = value
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnChange registers fn and returns a function that removes it.
func (b *Buffer) OnChange(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners == nil {
		b.listeners = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}
