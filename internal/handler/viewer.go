package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/service"
)

const (
	viewerPongWait   = 60 * time.Second
	viewerPingPeriod = viewerPongWait * 9 / 10
	viewerWriteWait  = 5 * time.Second
	// Viewers only receive events; anything they send is discarded.
	viewerReadLimit = 512
)

// Upgrader upgrades event viewer connections; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerEventsHandler streams append and patch events of the angle log to a
// viewer until it disconnects or stops answering pings.
func ViewerEventsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Event viewer upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}

		hub := manager.GetWebsocketService()
		viewer := hub.Register(conn)
		defer hub.Unregister(viewer)

		conn.SetReadLimit(viewerReadLimit)
		conn.SetReadDeadline(time.Now().Add(viewerPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(viewerPongWait))
		})

		done := make(chan struct{})
		defer close(done)
		go keepViewerAlive(conn, done)

		logger.Info("Event viewer %s subscribed from %s", viewer.ID, r.RemoteAddr)

		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Event viewer %s unsubscribed", viewer.ID)
				} else {
					logger.Warning("Event viewer %s dropped: %v", viewer.ID, err)
				}
				return
			}
		}
	}
}

// keepViewerAlive pings conn until done is closed. WriteControl may run
// alongside the hub's broadcast writes.
func keepViewerAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(viewerPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(viewerWriteWait)); err != nil {
				return
			}
		}
	}
}
