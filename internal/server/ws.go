package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrz1836/inkwell/internal/domain"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 10 * time.Second
	wsBuffer       = 16
)

// batchStream pushes every published snapshot of one job kind to a
// websocket client until either side closes.
func (s *Server) batchStream(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.batchKind(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	updates := make(chan domain.BatchJob, wsBuffer)
	unsubscribe, err := s.tracker.Subscribe(kind, func(job domain.BatchJob) {
		// Snapshots are full state: when the reader falls behind, drop the
		// oldest queued one so the latest always gets through.
		select {
		case updates <- job:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- job:
			default:
			}
		}
	})
	if err != nil {
		return
	}
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if job, err := s.tracker.Snapshot(kind); err == nil {
		if !s.writeSnapshot(conn, job) {
			return
		}
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case <-closed:
			return
		case job := <-updates:
			if !s.writeSnapshot(conn, job) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn, job domain.BatchJob) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(newBatchView(job)); err != nil {
		s.logger.Debug().Err(err).Msg("websocket write failed")
		return false
	}
	return true
}
