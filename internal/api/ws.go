package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gudapatin/sentalpha/internal/pipeline"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// runFeedHandler upgrades the connection and streams pipeline run
// events as JSON frames until the client disconnects.
func runFeedHandler(hub *pipeline.Hub, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("Websocket upgrade failed")
			return
		}

		events := hub.Subscribe()
		defer hub.Unsubscribe(events)

		log.WithField("remote", conn.RemoteAddr().String()).Info("Run feed client connected")

		// Reader loop only to observe close frames
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		defer conn.Close()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					log.WithError(err).Debug("Run feed write failed, dropping client")
					return
				}

			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}

			case <-done:
				return

			case <-r.Context().Done():
				return
			}
		}
	}
}
