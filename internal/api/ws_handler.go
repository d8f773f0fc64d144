package api

import (
	"net/http"
	"sync"
	"time"

	"LuckyNumbers/internal/interfaces"
	"LuckyNumbers/internal/messaging"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsSendBuffer = 32
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSHandler pushes broker messages to browsers: the draw topic, plus one guess topic when
// ?guess=<id> is given
type WSHandler struct {
	subscriber interfaces.Subscriber
	topic      string
	upgrader   websocket.Upgrader
	logger     *logrus.Logger
}

// NewWSHandler allowOrigin nil accepts every origin
func NewWSHandler(subscriber interfaces.Subscriber, topic string, allowOrigin func(string) bool, logger *logrus.Logger) *WSHandler {
	if topic == "" {
		topic = messaging.TopicNumbers
	}
	return &WSHandler{
		subscriber: subscriber,
		topic:      topic,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowOrigin == nil {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin(origin)
			},
		},
		logger: logger,
	}
}

// Subscribe GET /ws?guess=<id>
func (h *WSHandler) Subscribe(c *gin.Context) {
	guessID := c.Query("guess")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		done:   make(chan struct{}),
		logger: h.logger.WithField("remote", c.ClientIP()),
	}
	unsubs := []func(){h.subscriber.Subscribe(h.topic, client.push)}
	if guessID != "" {
		unsubs = append(unsubs, h.subscriber.Subscribe(messaging.GuessTopic(guessID), client.push))
	}
	client.unsubscribe = func() {
		for _, u := range unsubs {
			u()
		}
	}
	client.logger.WithField("guess", guessID).Debug("websocket client connected")

	go client.writePump()
	client.readPump()
}

type wsClient struct {
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	once        sync.Once
	unsubscribe func()
	logger      *logrus.Entry
}

// push never blocks the broker. A client that cannot keep up loses messages.
func (c *wsClient) push(_ string, payload []byte) {
	select {
	case <-c.done:
	case c.send <- payload:
	default:
		c.logger.Warn("websocket client too slow, message dropped")
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		close(c.done)
		c.conn.Close()
	})
}

// readPump only watches for the peer going away
func (c *wsClient) readPump() {
	defer c.close()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.WithError(err).Debug("websocket read error")
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
