package notification

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// ErrHubClosed 连接中心已关闭
var ErrHubClosed = errors.New("notification: hub closed")

// Pusher 按用户推送消息
type Pusher interface {
	SendToUser(userID, clientType string, message []byte) int
}

// Hub 管理用户的 WebSocket 连接，同一用户可以有多个连接
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{} // userID -> clients
	closed   bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// Client 单个 WebSocket 连接
type Client struct {
	ID         string
	UserID     string
	ClientType string

	hub    *Hub
	conn   *websocket.Conn
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewHub checkOrigin 为nil时允许所有来源
func NewHub(logger *zap.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.Named("ws"),
	}
}

// ServeWS 升级连接并注册到用户名下，连接断开时自动注销
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, clientType string) error {
	if clientType == "" {
		clientType = ClientWeb
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:         uuid.NewString(),
		UserID:     userID,
		ClientType: clientType,
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
	}
	if err := h.register(client); err != nil {
		_ = conn.Close()
		return err
	}

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("client connected", zap.String("userId", c.UserID), zap.String("clientId", c.ID))
	return nil
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// SendToUser 推送给用户的全部连接，clientType 为空时不区分客户端；返回投递的连接数
func (h *Hub) SendToUser(userID, clientType string, message []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		if clientType == "" || c.ClientType == clientType {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		sent, full := c.trySend(message)
		if sent {
			delivered++
			continue
		}
		if full {
			// 发送缓冲已满，视为慢连接断开
			h.logger.Warn("client send buffer full, dropping connection",
				zap.String("userId", c.UserID), zap.String("clientId", c.ID))
			h.unregister(c)
		}
	}
	return delivered
}

// ConnectionCount 当前连接总数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// OnlineUsers 有连接的用户数
func (h *Hub) OnlineUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 断开全部连接，之后拒绝新连接
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}

// trySend 不阻塞；已关闭时两个返回值都为false
func (c *Client) trySend(message []byte) (sent, full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.send <- message:
		return true, false
	default:
		return false, true
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump 只处理控制帧，读出错即注销
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("client read error", zap.String("clientId", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
