package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 45 * time.Second
	maxMsgSize   = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Authenticator validates the credential presented on a connection.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Conn is a single subscriber connection. A connection may be subscribed to
// any number of project channels at once.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, send: make(chan []byte, sendBuffer)}
}

// trySend queues data for delivery without blocking. A consumer whose buffer
// is full misses the event; fan-out has no durability guarantee. The closed
// check and the send share the mutex with close: a publish that snapshotted
// the membership before this connection unsubscribed must not hit a closed
// channel.
func (c *Conn) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// clientMessage is what subscribers send to manage their channel
// membership.
type clientMessage struct {
	Action    string `json:"action"`
	ProjectID string `json:"projectId"`
}

// Handler upgrades the request to a websocket and serves join/leave
// messages until the client disconnects. The credential comes from the
// Authorization header or a token query parameter.
func Handler(hub *Hub, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(ec echo.Context) error {
		authHeader := ec.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := ec.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		userID, err := auth.UserIDFromAuthHeader(authHeader)
		if err != nil {
			return ec.String(http.StatusUnauthorized, err.Error())
		}

		ws, err := upgrader.Upgrade(ec.Response(), ec.Request(), nil)
		if err != nil {
			logger.Errorf("websocket upgrade: %v", err)
			return nil
		}
		logger.WithField("user", userID).Debug("realtime client connected")

		c := newConn(ws)
		go c.writePump()
		c.readPump(hub, logger)

		logger.WithField("user", userID).Debug("realtime client disconnected")
		return nil
	}
}

func (c *Conn) readPump(hub *Hub, logger *log.Logger) {
	defer func() {
		hub.UnsubscribeAll(c)
		c.close()
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMsgSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var msg clientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("websocket read: %v", err)
			}
			return
		}
		switch msg.Action {
		case "joinProject":
			hub.Subscribe(c, msg.ProjectID)
		case "leaveProject":
			hub.Unsubscribe(c, msg.ProjectID)
		default:
			// Unknown actions are ignored to keep the channel protocol
			// forward compatible.
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
