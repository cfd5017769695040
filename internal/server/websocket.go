package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/habitat/internal/core/events/bus"
	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/sim"
)

// FrameSnapshot is the first frame every observer receives.
const FrameSnapshot = "snapshot"

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Frame is one message on the observer feed.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Source is the simulation state the server exposes.
type Source interface {
	Snapshot() sim.Snapshot
	Config() *sim.Config
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Observer fans bus events out to websocket clients. Slow clients lose frames
// instead of stalling the tick loop.
type Observer struct {
	source     Source
	logger     log.Log
	maxClients int
	buffer     int

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	sub     bus.Subscription
}

func NewObserver(source Source, logger log.Log, maxClients, buffer int) *Observer {
	if logger == nil {
		logger = log.NewNop()
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &Observer{
		source:     source,
		logger:     logger.Named("observer"),
		maxClients: maxClients,
		buffer:     buffer,
		clients:    make(map[*client]struct{}),
	}
}

// Attach subscribes the observer to every event on the bus.
func (o *Observer) Attach(events bus.EventBus) error {
	sub, err := events.Subscribe(bus.Wildcard, o.handle)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.sub = sub
	o.mu.Unlock()
	return nil
}

func (o *Observer) handle(e bus.Event) error {
	o.Broadcast(Frame{Type: e.Type(), Data: e.Data()})
	return nil
}

// Broadcast queues the frame for every connected client.
func (o *Observer) Broadcast(frame Frame) {
	b, err := json.Marshal(frame)
	if err != nil {
		o.logger.Warn("Failed to encode frame", log.String("type", frame.Type), log.Error(err))
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for c := range o.clients {
		select {
		case c.send <- b:
		default:
			o.logger.Debug("Dropping frame for slow client",
				log.String("type", frame.Type),
				log.String("remote_addr", c.conn.RemoteAddr().String()))
		}
	}
}

// Clients returns the number of connected observers.
func (o *Observer) Clients() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.clients)
}

// Close detaches from the bus and disconnects every client.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.sub != nil {
		_ = o.sub.Cancel()
	}
	for c := range o.clients {
		close(c.send)
		delete(o.clients, c)
	}
}

func (o *Observer) register(c *client) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrServerClosed
	}
	if o.maxClients > 0 && len(o.clients) >= o.maxClients {
		return ErrMaxClientsReached
	}
	o.clients[c] = struct{}{}
	return nil
}

func (o *Observer) unregister(c *client) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.clients[c]; ok {
		close(c.send)
		delete(o.clients, c)
	}
}

func (o *Observer) full() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed || (o.maxClients > 0 && len(o.clients) >= o.maxClients)
}

func (o *Observer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if o.full() {
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, o.buffer)}
	first, err := json.Marshal(Frame{Type: FrameSnapshot, Data: o.source.Snapshot()})
	if err != nil {
		o.logger.Error("Failed to encode snapshot", log.Error(err))
		_ = conn.Close()
		return
	}
	c.send <- first

	if err := o.register(c); err != nil {
		o.logger.Warn("Rejecting observer", log.String("remote_addr", conn.RemoteAddr().String()), log.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		_ = conn.Close()
		return
	}

	o.logger.Info("Observer connected",
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int("clients", o.Clients()))

	go o.writePump(c)
	o.readPump(c)
}

// readPump discards inbound messages and notices when the peer goes away.
func (o *Observer) readPump(c *client) {
	defer func() {
		o.unregister(c)
		o.logger.Info("Observer disconnected", log.String("remote_addr", c.conn.RemoteAddr().String()))
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				o.logger.Debug("Observer read failed", log.Error(err))
			}
			return
		}
	}
}

func (o *Observer) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			o.logger.Debug("Observer write failed", log.Error(err))
			return
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
