package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/editor"
	"github.com/livetemplate/tinkerpen/internal/render"
	"github.com/livetemplate/tinkerpen/internal/security"
	"github.com/livetemplate/tinkerpen/internal/session"
)

const (
	writeWait        = 10 * time.Second
	pingInterval     = 30 * time.Second
	opTimeout        = 10 * time.Second
	clipboardTimeout = 10 * time.Second

	// NoticeReadOnly is shown when saving on a read-only server.
	NoticeReadOnly = "Saving is disabled on this server."
)

var errDetached = errors.New("connection closed")

// clientMessage is any message sent by the browser.
type clientMessage struct {
	Type  string `json:"type"`            // edit, save, load, share, clipboard, render
	Lang  string `json:"lang,omitempty"`  // edit
	Value string `json:"value,omitempty"` // edit
	Base  string `json:"base,omitempty"`  // share
	ID    string `json:"id,omitempty"`    // clipboard
	OK    bool   `json:"ok,omitempty"`    // clipboard
	Error string `json:"error,omitempty"` // clipboard
}

type sessionMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type setMessage struct {
	Type  string      `json:"type"`
	Lang  editor.Lang `json:"lang"`
	Value string      `json:"value"`
}

type renderMessage struct {
	Type string `json:"type"`
	Doc  string `json:"doc"`
	Rev  uint64 `json:"rev"`
}

type noticeMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
	TTL  int64  `json:"ttl"` // milliseconds
}

type clipboardMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// peer is the browser end of a session. It outlives individual connections
// so a reconnecting page resumes the same session.
type peer struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	clips    map[string]func(error)
	nextClip uint64
	rev      atomic.Uint64
	debug    bool
}

func newPeer(debug bool) *peer {
	return &peer{clips: make(map[string]func(error)), debug: debug}
}

// attach makes conn the current connection.
func (p *peer) attach(conn *websocket.Conn) {
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
}

// detach forgets conn if it is still current and fails pending clipboard
// requests sent over it.
func (p *peer) detach(conn *websocket.Conn) {
	p.mu.Lock()
	if p.conn != conn {
		p.mu.Unlock()
		return
	}
	p.conn = nil
	pending := p.clips
	p.clips = make(map[string]func(error))
	p.mu.Unlock()

	for _, done := range pending {
		done(&tinkerpen.ClipboardError{Err: errDetached})
	}
}

// send writes v to the current connection. Messages to a detached peer are
// dropped; the page is resynchronized when it reconnects.
func (p *peer) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS] Failed to marshal message: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return
	}

	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[WS] Failed to send message: %v", err)
		return
	}

	if p.debug {
		log.Printf("[WS] Sent: %.200s", data)
	}
}

func (p *peer) ping() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return
	}
	_ = p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session expired")
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = p.conn.Close()
}

// Show implements session.Preview.
func (p *peer) Show(doc render.Document) {
	p.send(renderMessage{Type: "render", Doc: doc.String(), Rev: p.rev.Add(1)})
}

// Notify implements session.Notifier.
func (p *peer) Notify(msg string, ttl time.Duration) {
	p.send(noticeMessage{Type: "notice", Text: msg, TTL: ttl.Milliseconds()})
}

// WriteText implements session.Clipboard. The page performs the write and
// reports back with a clipboard message carrying the same id.
func (p *peer) WriteText(text string, done func(error)) {
	p.mu.Lock()
	if p.conn == nil {
		p.mu.Unlock()
		done(&tinkerpen.ClipboardError{Err: errDetached})
		return
	}
	p.nextClip++
	id := strconv.FormatUint(p.nextClip, 10)
	p.clips[id] = done
	p.mu.Unlock()

	time.AfterFunc(clipboardTimeout, func() {
		p.resolveClipboard(id, false, "timed out")
	})
	p.send(clipboardMessage{Type: "clipboard", ID: id, Text: text})
}

func (p *peer) resolveClipboard(id string, ok bool, errText string) {
	p.mu.Lock()
	done := p.clips[id]
	delete(p.clips, id)
	p.mu.Unlock()

	if done == nil {
		return
	}
	if ok {
		done(nil)
		return
	}
	done(&tinkerpen.ClipboardError{Err: errors.New(errText)})
}

// remoteEditor mirrors a browser editor. Programmatic changes are pushed to
// the page; edits made in the page update the buffer directly.
type remoteEditor struct {
	*editor.Buffer
	lang editor.Lang
	peer *peer
}

// SetValue implements editor.Editor.
func (e *remoteEditor) SetValue(value string) {
	e.Buffer.SetValue(value)
	e.peer.send(setMessage{Type: "set", Lang: e.lang, Value: value})
}

// liveSession is a session bound to a browser page.
type liveSession struct {
	id      string
	sess    *session.Session
	peer    *peer
	buffers map[editor.Lang]*editor.Buffer
}

func (s *Server) newLiveSession() *liveSession {
	id := uuid.Must(uuid.NewV7()).String()
	p := newPeer(s.config.Server.Debug)
	initial := s.initialSnapshot()

	ls := &liveSession{
		id:      id,
		peer:    p,
		buffers: make(map[editor.Lang]*editor.Buffer, len(editor.Langs)),
	}

	eds := make(map[editor.Lang]editor.Editor, len(editor.Langs))
	for _, lang := range editor.Langs {
		buf := editor.NewBuffer(lang.Field(initial))
		ls.buffers[lang] = buf
		eds[lang] = &remoteEditor{Buffer: buf, lang: lang, peer: p}
	}

	ls.sess = session.New(
		session.Options{
			ID:        id,
			Debounce:  s.config.Editor.GetDebounce(),
			NoticeTTL: s.config.Notices.GetDuration(),
			Debug:     s.config.Server.Debug,
		},
		session.Editors{HTML: eds[editor.LangHTML], CSS: eds[editor.LangCSS], JS: eds[editor.LangJS]},
		s.gw,
		session.UI{Preview: p, Notifier: p, Clipboard: p},
	)
	return ls
}

// pushBuffers sends the current buffer contents to the page.
func (ls *liveSession) pushBuffers() {
	for _, lang := range editor.Langs {
		ls.peer.send(setMessage{Type: "set", Lang: lang, Value: ls.buffers[lang].Value()})
	}
}

func (ls *liveSession) close() {
	ls.sess.Close()
	ls.peer.close()
}

func (s *Server) upgrader() *websocket.Upgrader {
	var origins []string
	if s.config.API != nil {
		origins = s.config.API.GetCORSOrigins()
	}
	return &websocket.Upgrader{
		CheckOrigin: security.OriginChecker(origins),
	}
}

// serveWebSocket attaches a page to a new or resumed session and routes its
// messages.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	debug := s.config.Server.Debug
	query := r.URL.Query()

	ls, resumed := s.sessions.Get(query.Get("session"))
	if resumed {
		ls.peer.attach(conn)
		ls.peer.send(sessionMessage{Type: "session", ID: ls.id})
		ls.pushBuffers()
		ls.sess.RenderNow()
	} else {
		ls = s.newLiveSession()
		s.sessions.Set(ls.id, ls)
		ls.peer.attach(conn)
		ls.peer.send(sessionMessage{Type: "session", ID: ls.id})
		ls.pushBuffers()
		// A shared snapshot in the page URL is applied before the first render.
		_ = ls.sess.Open(query)
	}
	defer ls.peer.detach(conn)

	if debug {
		log.Printf("[WS] Client connected: %s (session %s, resumed=%v)", conn.RemoteAddr(), ls.id, resumed)
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// Keep an attached session from expiring while idle.
				s.sessions.Get(ls.id)
				ls.peer.ping()
			case <-stopPing:
				return
			}
		}
	}()

	// Handle messages
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close: %v", err)
			}
			break
		}

		if debug {
			log.Printf("[WS] Received: %.200s", message)
		}

		s.sessions.Get(ls.id)
		s.handleMessage(r.Context(), ls, message)
	}

	if debug {
		log.Printf("[WS] Client disconnected: %s (session %s)", conn.RemoteAddr(), ls.id)
	}
}

// handleMessage routes one client message to the session.
func (s *Server) handleMessage(ctx context.Context, ls *liveSession, message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("[WS] Ignoring malformed message: %v", err)
		return
	}

	switch msg.Type {
	case "edit":
		lang, err := editor.ParseLang(msg.Lang)
		if err != nil {
			log.Printf("[WS] Ignoring edit: %v", err)
			return
		}
		// Written to the buffer, not the remote editor: the page already
		// shows this text.
		ls.buffers[lang].SetValue(msg.Value)

	case "save":
		if config.IsReadOnly() {
			ls.peer.Notify(NoticeReadOnly, s.config.Notices.GetDuration())
			return
		}
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		_ = ls.sess.Save(ctx)

	case "load":
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		_ = ls.sess.Load(ctx)

	case "share":
		_, _ = ls.sess.Share(s.shareBase(msg.Base))

	case "clipboard":
		ls.peer.resolveClipboard(msg.ID, msg.OK, msg.Error)

	case "render":
		ls.sess.RenderNow()

	default:
		log.Printf("[WS] Unknown message type %q", msg.Type)
	}
}

// shareBase returns the configured public URL, or the page URL the client
// reported.
func (s *Server) shareBase(clientBase string) string {
	if s.config.Share.BaseURL != "" {
		return s.config.Share.BaseURL
	}
	return clientBase
}
