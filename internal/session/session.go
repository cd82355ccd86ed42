// Package session ties three editors, a debouncer, the persistence gateway
// and the page's UI surfaces into one playground session.
package session

import (
	"context"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/debounce"
	"github.com/livetemplate/tinkerpen/internal/editor"
	"github.com/livetemplate/tinkerpen/internal/gateway"
	"github.com/livetemplate/tinkerpen/internal/render"
)

// DefaultNoticeTTL is how long a notice stays visible.
const DefaultNoticeTTL = 2000 * time.Millisecond

// Preview displays rendered documents in an isolated surface.
type Preview interface {
	Show(doc render.Document)
}

// Notifier shows transient messages.
type Notifier interface {
	Notify(msg string, ttl time.Duration)
}

// Clipboard writes text to the system clipboard. done is called exactly once
// when the write completes, possibly on another goroutine.
type Clipboard interface {
	WriteText(text string, done func(error))
}

// UI bundles the surfaces a session reports to. Nil members are skipped.
type UI struct {
	Preview   Preview
	Notifier  Notifier
	Clipboard Clipboard
}

// Editors are the three buffers of a session.
type Editors struct {
	HTML editor.Editor
	CSS  editor.Editor
	JS   editor.Editor
}

// Get returns the editor for lang, or nil.
func (e Editors) Get(lang editor.Lang) editor.Editor {
	switch lang {
	case editor.LangHTML:
		return e.HTML
	case editor.LangCSS:
		return e.CSS
	case editor.LangJS:
		return e.JS
	}
	return nil
}

// NewBufferEditors returns in-memory editors holding s.
func NewBufferEditors(s tinkerpen.Snapshot) Editors {
	return Editors{
		HTML: editor.NewBuffer(s.HTML),
		CSS:  editor.NewBuffer(s.CSS),
		JS:   editor.NewBuffer(s.JS),
	}
}

// Options configures a session.
type Options struct {
	ID        string
	Debounce  time.Duration // quiet window before re-rendering (default 300ms)
	NoticeTTL time.Duration // notice auto-dismiss (default 2000ms)
	Debug     bool
}

// Session is one playground: every editor change schedules a debounced
// render, and save, load and share report their outcome as notices.
//
// Work on the editors is serialized by a mutex so a render never observes a
// half-applied snapshot.
type Session struct {
	opts      Options
	editors   Editors
	gw        *gateway.Gateway
	ui        UI
	debouncer *debounce.Debouncer

	mu       sync.Mutex
	renders  atomic.Uint64
	gen      atomic.Uint64 // bumped by Apply; debounced renders scheduled before the bump are dropped
	cancels  []func()
	closed   bool
}

// New creates a session and subscribes it to the editors' change
// notifications. No render happens until Open or RenderNow is called.
func New(opts Options, editors Editors, gw *gateway.Gateway, ui UI) *Session {
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}

	s := &Session{
		opts:      opts,
		editors:   editors,
		gw:        gw,
		ui:        ui,
		debouncer: debounce.New(opts.Debounce),
	}

	for _, lang := range editor.Langs {
		ed := editors.Get(lang)
		s.cancels = append(s.cancels, ed.OnChange(s.onChange))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.opts.ID
}

// Editors returns the session's editors.
func (s *Session) Editors() Editors {
	return s.editors
}

// Renders returns how many documents have been rendered so far.
func (s *Session) Renders() uint64 {
	return s.renders.Load()
}

// Pending reports whether a debounced render is waiting.
func (s *Session) Pending() bool {
	return s.debouncer.Pending()
}

// onChange schedules a debounced render. A notification that reads the
// generation before Apply bumps it wrote its buffer before that bump, so the
// render Apply does afterwards already includes it and the scheduled one is
// dropped. This covers Apply's own notifications and edits racing with it.
func (s *Session) onChange() {
	gen := s.gen.Load()
	s.debouncer.Schedule(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen.Load() != gen {
			return
		}
		s.renderLocked()
	})
}

// Snapshot reads the current contents of all three editors.
func (s *Session) Snapshot() tinkerpen.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() tinkerpen.Snapshot {
	return tinkerpen.Snapshot{
		HTML: s.editors.HTML.Value(),
		CSS:  s.editors.CSS.Value(),
		JS:   s.editors.JS.Value(),
	}
}

// RenderNow renders the current snapshot into the preview.
func (s *Session) RenderNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderLocked()
}

func (s *Session) renderLocked() {
	if s.closed {
		return
	}
	doc := render.Render(s.snapshotLocked())
	rev := s.renders.Add(1)

	if s.opts.Debug {
		log.Printf("[Session] %s render #%d (%d bytes)", s.opts.ID, rev, len(doc))
	}
	if s.ui.Preview != nil {
		s.ui.Preview.Show(doc)
	}
}

// Apply replaces all three buffers with snap and renders exactly once.
// Change notifications raised during the replacement are suppressed and any
// pending debounced render is cancelled.
func (s *Session) Apply(snap tinkerpen.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(snap)
}

// Sync is Apply for external reloads: nothing happens when snap equals the
// current snapshot. It reports whether the session changed.
func (s *Session) Sync(snap tinkerpen.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshotLocked() == snap {
		return false
	}
	s.applyLocked(snap)
	return true
}

func (s *Session) applyLocked(snap tinkerpen.Snapshot) {
	s.editors.HTML.SetValue(snap.HTML)
	s.editors.CSS.SetValue(snap.CSS)
	s.editors.JS.SetValue(snap.JS)

	// Must follow the SetValue calls and precede the render.
	s.gen.Add(1)
	s.debouncer.Cancel()
	s.renderLocked()
}

// Save persists the current snapshot and reports the outcome as a notice.
func (s *Session) Save(ctx context.Context) error {
	if err := s.gw.Save(ctx, s.Snapshot()); err != nil {
		log.Printf("[Session] %s save failed: %v", s.opts.ID, err)
		s.notify(tinkerpen.NoticeSaveFailed)
		return err
	}
	s.notify(tinkerpen.NoticeSaved)
	return nil
}

// Load restores the saved snapshot. The editors are left untouched when
// nothing was saved or the saved value is unusable.
func (s *Session) Load(ctx context.Context) error {
	snap, err := s.gw.Load(ctx)
	if err != nil {
		if tinkerpen.IsNotFound(err) {
			s.notify(tinkerpen.NoticeNoSaved)
		} else {
			log.Printf("[Session] %s load failed: %v", s.opts.ID, err)
			s.notify(tinkerpen.NoticeLoadFailed)
		}
		return err
	}

	s.Apply(snap)
	s.notify(tinkerpen.NoticeLoaded)
	return nil
}

// Share builds a share link for the current snapshot on base and copies it to
// the clipboard. The clipboard outcome is reported asynchronously as a notice.
func (s *Session) Share(base string) (string, error) {
	link, err := gateway.ShareURL(base, s.Snapshot())
	if err != nil {
		log.Printf("[Session] %s share failed: %v", s.opts.ID, err)
		s.notify(tinkerpen.NoticeShareFailed)
		return "", err
	}

	if s.ui.Clipboard == nil {
		err := &tinkerpen.ClipboardError{}
		s.notify(tinkerpen.NoticeShareFailed)
		return link, err
	}

	s.ui.Clipboard.WriteText(link, func(err error) {
		if err != nil {
			log.Printf("[Session] %s clipboard write failed: %v", s.opts.ID, err)
			s.notify(tinkerpen.NoticeShareFailed)
			return
		}
		s.notify(tinkerpen.NoticeShared)
	})
	return link, nil
}

// Open runs page-load initialization: a shared snapshot in query is applied
// before the first render. Exactly one render happens whatever the outcome.
func (s *Session) Open(query url.Values) error {
	snap, ok, err := gateway.FromQuery(query)
	if ok && err == nil {
		s.Apply(snap)
		return nil
	}
	if err != nil {
		log.Printf("[Session] %s ignoring shared code: %v", s.opts.ID, err)
		s.notify(tinkerpen.NoticeBadShare)
	}
	s.RenderNow()
	return err
}

// Close stops the debouncer and unsubscribes from the editors. A closed
// session no longer renders.
func (s *Session) Close() {
	s.debouncer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

func (s *Session) notify(msg string) {
	if s.ui.Notifier != nil {
		s.ui.Notifier.Notify(msg, s.opts.NoticeTTL)
	}
}
