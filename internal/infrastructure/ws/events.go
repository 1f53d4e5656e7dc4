// Package ws streams map view events to websocket clients.
package ws

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/gisquick/countyview/internal/mapview"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type message struct {
	Type   string      `json:"type"`
	Status int         `json:"status,omitempty"`
	Data   interface{} `json:"data"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

/* Structure for managing websocket connections for concurrent access */
type websocketsMap struct {
	sync.RWMutex
	connections map[string]*client
}

func (w *websocketsMap) Set(key string, c *client) {
	w.Lock()
	defer w.Unlock()
	if c == nil {
		delete(w.connections, key)
	} else {
		w.connections[key] = c
	}
}

func (w *websocketsMap) Get(key string) *client {
	w.RLock()
	defer w.RUnlock()
	return w.connections[key]
}

func (w *websocketsMap) Len() int {
	w.RLock()
	defer w.RUnlock()
	return len(w.connections)
}

// Send writes a message to one client. Unknown clients are ignored.
func (w *websocketsMap) Send(key string, msgType string, data interface{}) error {
	if dest := w.Get(key); dest != nil {
		return dest.WriteJSON(message{Type: msgType, Data: data})
	}
	return nil
}

type EventsWS struct {
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
	bus      *mapview.EventBus
	clients  *websocketsMap
}

func NewEventsWS(log *zap.SugaredLogger, bus *mapview.EventBus) *EventsWS {
	return &EventsWS{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		bus:     bus,
		clients: &websocketsMap{connections: make(map[string]*client)},
	}
}

func (s *EventsWS) Clients() int {
	return s.clients.Len()
}

func (s *EventsWS) Send(id string, msgType string, data interface{}) error {
	return s.clients.Send(id, msgType, data)
}

// Handler upgrades the connection and forwards bus events to it until the
// client disconnects. The initial message carries the given state.
func (s *EventsWS) Handler(id string, initial interface{}, w http.ResponseWriter, r *http.Request) (err error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	s.clients.Set(id, c)
	s.log.Infow("websocket connection started", "client", id)
	if werr := c.WriteJSON(message{Type: "State", Status: 200, Data: initial}); werr != nil {
		s.log.Warnw("websocket initial state", "client", id, zap.Error(werr))
	}

	events := s.bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			if werr := c.WriteJSON(message{Type: e.Type, Data: e}); werr != nil {
				s.log.Warnw("websocket write", "client", id, zap.Error(werr))
				return
			}
		}
	}()

	for {
		msgType, msg, rerr := conn.ReadMessage()
		if rerr != nil {
			if !websocket.IsCloseError(rerr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = rerr
				s.log.Errorw("websocket error", "client", id, zap.Error(rerr))
			}
			break
		}
		if bytes.Equal(msg, []byte("Ping")) {
			c.WriteJSON(message{Type: "Pong"})
			continue
		}
		if msgType == websocket.CloseMessage {
			break
		}
	}
	s.bus.Unsubscribe(events)
	<-done
	s.clients.Set(id, nil)
	conn.Close()
	s.log.Infow("websocket connection closed", "client", id)
	return
}
