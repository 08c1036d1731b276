package events

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer = 32
	writeTimeout = 5 * time.Second
)

type Logger interface {
	Printf(format string, args ...any)
}

// Handler streams bus events as JSON text frames to websocket clients, so UI
// surfaces outside this process can re-render without polling. Slow clients
// drop events rather than block the publisher.
func Handler(bus *Bus, logger Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			if logger != nil {
				logger.Printf("events: websocket accept failed: %v", err)
			}
			return
		}
		defer conn.Close(websocket.StatusInternalError, "stream closed")

		ctx := conn.CloseRead(r.Context())

		ch := make(chan Event, streamBuffer)
		unsubscribe := bus.Subscribe(func(e Event) {
			select {
			case ch <- e:
			default:
			}
		})
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case e := <-ch:
				if err := writeEvent(ctx, conn, e); err != nil {
					if logger != nil {
						logger.Printf("events: websocket write failed: %v", err)
					}
					return
				}
			}
		}
	})
}

func writeEvent(ctx context.Context, conn *websocket.Conn, e Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, e)
}
