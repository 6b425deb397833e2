// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/ArtVistas/internal/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteWait    = 10 * time.Second
	wsSendBuffer   = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer for browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsOutbound is the frame every socket message is wrapped in.
type wsOutbound struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketClient is one connected socket subscribed to a topic.
type WebSocketClient struct {
	conn      *websocket.Conn
	topic     string
	kind      string
	clientID  string
	send      chan []byte
	done      chan struct{}
	closed    int32
	lastPing  int64 // unix nanos
	createdAt time.Time
}

func newWebSocketClient(conn *websocket.Conn, kind, topic, clientID string) *WebSocketClient {
	now := time.Now()
	return &WebSocketClient{
		conn:      conn,
		topic:     topic,
		kind:      kind,
		clientID:  clientID,
		send:      make(chan []byte, wsSendBuffer),
		done:      make(chan struct{}),
		lastPing:  now.UnixNano(),
		createdAt: now,
	}
}

// Close shuts the connection once; the write pump observes done and exits.
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

func (client *WebSocketClient) UpdatePing() {
	atomic.StoreInt64(&client.lastPing, time.Now().UnixNano())
}

func (client *WebSocketClient) LastPing() time.Time {
	return time.Unix(0, atomic.LoadInt64(&client.lastPing))
}

// IsExpired reports whether the peer has been silent longer than timeout.
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(client.LastPing()) > timeout
}

// Send queues a typed frame without blocking. A full queue means the peer
// stopped reading, so the frame is dropped.
func (client *WebSocketClient) Send(msgType string, data interface{}) bool {
	return client.queue(wsOutbound{Type: msgType, Data: data, Timestamp: time.Now()})
}

// SendError queues an error frame.
func (client *WebSocketClient) SendError(code, message string) bool {
	return client.queue(wsOutbound{
		Type:      "error",
		Error:     &APIError{Code: code, Message: sanitizeErrorMessage(message)},
		Timestamp: time.Now(),
	})
}

func (client *WebSocketClient) queue(frame wsOutbound) bool {
	if client.IsClosed() {
		return false
	}
	msgBytes, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	return client.enqueue(msgBytes)
}

func (client *WebSocketClient) enqueue(msg []byte) bool {
	select {
	case <-client.done:
		return false
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// WebSocketManager tracks sockets by topic so session and gallery events can
// be fanned out to everyone watching.
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{}
	mutex       sync.RWMutex
	pingTimeout time.Duration
	logger      *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewWebSocketManager starts the manager's cleanup loop.
func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	manager := &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		pingTimeout: wsPongWait + wsPingInterval,
		logger:      utils.OrNop(logger),
		stop:        make(chan struct{}),
	}
	go manager.run()
	return manager
}

func (manager *WebSocketManager) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			manager.cleanupExpiredConnections()
		case <-manager.stop:
			manager.shutdown()
			return
		}
	}
}

// Register adds client to its topic.
func (manager *WebSocketManager) Register(client *WebSocketClient) {
	manager.mutex.Lock()
	if manager.connections[client.topic] == nil {
		manager.connections[client.topic] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.topic][client] = struct{}{}
	manager.mutex.Unlock()

	client.UpdatePing()
	utils.MetricsWebSocketOpened(client.kind)
	manager.logger.Info("websocket client connected",
		zap.String("topic", client.topic),
		zap.String("client_id", client.clientID))
}

// Unregister removes client and closes it. Calling it twice is harmless.
func (manager *WebSocketManager) Unregister(client *WebSocketClient) {
	manager.mutex.Lock()
	removed := false
	if connections, exists := manager.connections[client.topic]; exists {
		if _, ok := connections[client]; ok {
			delete(connections, client)
			removed = true
		}
		if len(connections) == 0 {
			delete(manager.connections, client.topic)
		}
	}
	manager.mutex.Unlock()

	client.Close()
	if removed {
		utils.MetricsWebSocketClosed(client.kind)
		manager.logger.Info("websocket client disconnected",
			zap.String("topic", client.topic),
			zap.String("client_id", client.clientID))
	}
}

func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.RLock()
	var expired []*WebSocketClient
	for _, connections := range manager.connections {
		for client := range connections {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				expired = append(expired, client)
			}
		}
	}
	manager.mutex.RUnlock()

	for _, client := range expired {
		manager.Unregister(client)
	}
}

// BroadcastToTopic sends a typed frame to every client on topic. Clients
// whose queue is full are disconnected.
func (manager *WebSocketManager) BroadcastToTopic(topic, msgType string, data interface{}) {
	msgBytes, err := json.Marshal(wsOutbound{Type: msgType, Data: data, Timestamp: time.Now()})
	if err != nil {
		manager.logger.Error("failed to encode broadcast", zap.String("topic", topic), zap.Error(err))
		return
	}

	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[topic]))
	for client := range manager.connections[topic] {
		if !client.IsClosed() {
			clients = append(clients, client)
		}
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		if !client.enqueue(msgBytes) && !client.IsClosed() {
			manager.logger.Warn("websocket queue full, dropping client",
				zap.String("topic", topic),
				zap.String("client_id", client.clientID))
			go manager.Unregister(client)
		}
	}
}

// Close disconnects every client and stops the cleanup loop.
func (manager *WebSocketManager) Close() {
	manager.stopOnce.Do(func() { close(manager.stop) })
}

func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	all := manager.connections
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
	manager.mutex.Unlock()

	for _, connections := range all {
		for client := range connections {
			client.Close()
			utils.MetricsWebSocketClosed(client.kind)
		}
	}
	manager.logger.Info("websocket manager stopped")
}

// TopicStatus describes the clients on one topic.
type TopicStatus struct {
	ClientCount int            `json:"client_count"`
	Clients     []ClientStatus `json:"clients"`
}

type ClientStatus struct {
	ClientID    string    `json:"client_id"`
	Kind        string    `json:"kind"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPing    time.Time `json:"last_ping"`
}

// Status is the snapshot reported by /api/ws/status.
type Status struct {
	TotalTopics      int                    `json:"total_topics"`
	TotalConnections int                    `json:"total_connections"`
	Topics           map[string]TopicStatus `json:"topics"`
}

func (manager *WebSocketManager) GetStatus() Status {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	status := Status{Topics: make(map[string]TopicStatus, len(manager.connections))}
	for topic, connections := range manager.connections {
		ts := TopicStatus{Clients: make([]ClientStatus, 0, len(connections))}
		for client := range connections {
			if client.IsClosed() {
				continue
			}
			ts.Clients = append(ts.Clients, ClientStatus{
				ClientID:    client.clientID,
				Kind:        client.kind,
				ConnectedAt: client.createdAt,
				LastPing:    client.LastPing(),
			})
		}
		ts.ClientCount = len(ts.Clients)
		status.Topics[topic] = ts
		status.TotalConnections += ts.ClientCount
	}
	status.TotalTopics = len(status.Topics)
	return status
}

// writePump drains client.send to the socket and keeps the peer alive with
// pings. It owns all writes to the connection.
func (manager *WebSocketManager) writePump(client *WebSocketClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		manager.Unregister(client)
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				manager.logger.Debug("websocket write failed", zap.String("client_id", client.clientID), zap.Error(err))
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			return
		}
	}
}

// readPump feeds every text frame to handle until the peer goes away.
func (manager *WebSocketManager) readPump(client *WebSocketClient, handle func([]byte)) {
	defer manager.Unregister(client)

	client.conn.SetReadLimit(64 * 1024)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				manager.logger.Debug("websocket read failed", zap.String("client_id", client.clientID), zap.Error(err))
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		handle(message)
	}
}
