package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 64,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true // local viewer; the server binds to localhost by default
	},
}

// WebSocket message types from client.
const (
	wsMsgLoad   = "load"
	wsMsgToggle = "toggle"
	wsMsgView   = "view"
)

// WebSocket message types to client.
const (
	wsMsgAnnotated = "annotated"
	wsMsgAnalysis  = "analysis"
	wsMsgError     = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsLoad is the payload for "load" messages.
type wsLoad struct {
	Path    string      `json:"path"`
	Base    string      `json:"base"`
	Patches []patchJSON `json:"patches"`
	Skip    []string    `json:"skip,omitempty"`
}

// wsToggle enables or disables one source in the interleaved view.
type wsToggle struct {
	ID      int  `json:"id"`
	Enabled bool `json:"enabled"`
}

// wsView selects the single-source view for ID, or the interleaved view for 0.
type wsView struct {
	ID int `json:"id"`
}

// overlaySession holds the state for a WebSocket overlay session.
type overlaySession struct {
	blob     *model.Blob
	patches  []diff.RawPatch
	disabled map[int]bool
	view     int
}

func (o *overlaySession) hasSource(id int) bool {
	for _, p := range o.patches {
		if p.Source.ID == id {
			return true
		}
	}
	return false
}

// render returns the annotated file for the current view.
func (o *overlaySession) render() *model.AnnotatedFile {
	if o.view != 0 {
		for _, p := range o.patches {
			if p.Source.ID == o.view {
				return diff.ApplyPatch(o.blob, p)
			}
		}
	}
	var enabled []diff.RawPatch
	for _, p := range o.patches {
		if !o.disabled[p.Source.ID] {
			enabled = append(enabled, p)
		}
	}
	return diff.InterleavePatches(o.blob, enabled)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	session := &overlaySession{disabled: make(map[int]bool)}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("websocket read")
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sendWSError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgLoad:
			handleWSLoad(conn, session, msg.Data)
		case wsMsgToggle:
			handleWSToggle(conn, session, msg.Data)
		case wsMsgView:
			handleWSView(conn, session, msg.Data)
		default:
			sendWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func handleWSLoad(conn *websocket.Conn, session *overlaySession, data json.RawMessage) {
	var req wsLoad
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid load data")
		return
	}

	session.blob = model.NewBlob(req.Path, []byte(req.Base))
	session.patches = session.patches[:0]
	for _, p := range req.Patches {
		session.patches = append(session.patches, p.raw())
	}
	session.disabled = make(map[int]bool)
	session.view = 0

	sendWSMessage(conn, wsMsgAnnotated, toAnnotatedJSON(session.render(), 0))

	subject := newSubject(req.Path, []byte(req.Base), session.patches)
	results := analysis.Run([]*analysis.Subject{subject}, req.Skip)
	sendWSMessage(conn, wsMsgAnalysis, toAnalysisJSON(results))
}

func handleWSToggle(conn *websocket.Conn, session *overlaySession, data json.RawMessage) {
	if session.blob == nil {
		sendWSError(conn, "nothing loaded")
		return
	}

	var req wsToggle
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid toggle data")
		return
	}
	if !session.hasSource(req.ID) {
		sendWSError(conn, fmt.Sprintf("unknown source %d", req.ID))
		return
	}

	if req.Enabled {
		delete(session.disabled, req.ID)
	} else {
		session.disabled[req.ID] = true
	}
	sendWSMessage(conn, wsMsgAnnotated, toAnnotatedJSON(session.render(), session.view))
}

func handleWSView(conn *websocket.Conn, session *overlaySession, data json.RawMessage) {
	if session.blob == nil {
		sendWSError(conn, "nothing loaded")
		return
	}

	var req wsView
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid view data")
		return
	}
	if req.ID != 0 && !session.hasSource(req.ID) {
		sendWSError(conn, fmt.Sprintf("unknown source %d", req.ID))
		return
	}

	session.view = req.ID
	sendWSMessage(conn, wsMsgAnnotated, toAnnotatedJSON(session.render(), session.view))
}

func sendWSMessage(conn *websocket.Conn, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.WithError(err).Warn("ws marshal")
		return
	}
	msg := wsMessage{Type: msgType, Data: raw}
	if err := conn.WriteJSON(msg); err != nil {
		logger.WithError(err).Warn("ws write")
	}
}

func sendWSError(conn *websocket.Conn, errMsg string) {
	sendWSMessage(conn, wsMsgError, map[string]string{"message": errMsg})
}
