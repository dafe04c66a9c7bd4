package daemon

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sceneforge/internal/api"
	"sceneforge/internal/logging"
	"sceneforge/internal/queue"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The daemon binds to loopback by default; token auth gates remote
	// setups before the upgrade happens.
	CheckOrigin: func(*http.Request) bool { return true },
}

const eventWriteTimeout = 10 * time.Second

// handleRenderEvents streams progress frames over a websocket until the
// render finishes. The final frame carries done=true and the outcome.
func (s *apiServer) handleRenderEvents(w http.ResponseWriter, r *http.Request, id string) {
	session, ok := s.daemon.Session(id)
	if !ok {
		s.handleFinishedRenderEvents(w, r, id)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(event api.ProgressEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		return conn.WriteJSON(event)
	}

	ch, unsubscribe := session.Subscribe()
	defer unsubscribe()

	for {
		select {
		case upd := <-ch:
			event := api.ProgressEvent{
				ID:      id,
				Percent: upd.Percent,
				Status:  upd.Status,
				Stage:   string(upd.Stage),
			}
			if err := send(event); err != nil {
				return
			}
		case <-session.Done():
			final := api.ProgressEvent{ID: id, Done: true}
			if result, ok := session.Result(); ok {
				final.Outcome = string(queue.StatusFromOutcome(result.Outcome))
				snap := session.Snapshot()
				final.Percent = snap.Percent
				final.Status = snap.Status
				final.Stage = string(snap.Stage)
			}
			_ = send(final)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-r.Context().Done():
			return
		}
	}
}

// handleFinishedRenderEvents serves the event stream for a render that is no
// longer tracked in memory: a single done frame built from the history store.
func (s *apiServer) handleFinishedRenderEvents(w http.ResponseWriter, r *http.Request, id string) {
	record, err := s.historySvc.Get(r.Context(), id)
	if errors.Is(err, queue.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "render not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	final := api.ProgressEvent{ID: id, Done: true, Outcome: record.Status}
	if record.Status == string(queue.StatusCompleted) {
		final.Percent = 100
	}
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	_ = conn.WriteJSON(final)
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
