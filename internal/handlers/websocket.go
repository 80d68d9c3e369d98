package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	gameEngine  *services.GameEngine
	jwtService  *services.JWTService
	broadcaster *services.Broadcaster
	limiter     services.RateLimiter
	hub         *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}
	done       chan struct{}
	once       sync.Once
	count      atomic.Int64
}

// Client is one WebSocket connection. A connection is anonymous until it
// authenticates, either with ?token= on upgrade or with an Auth message.
type Client struct {
	ID     string
	userID atomic.Int64
	conn   *websocket.Conn
	send   chan models.ServerMessage
	subs   chan (<-chan models.RoundEvent)
	ops    sync.WaitGroup
}

func NewWebSocketHandler(gameEngine *services.GameEngine, jwtService *services.JWTService, broadcaster *services.Broadcaster, limiter services.RateLimiter) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	go hub.run()

	return &WebSocketHandler{
		gameEngine:  gameEngine,
		jwtService:  jwtService,
		broadcaster: broadcaster,
		limiter:     limiter,
		hub:         hub,
	}
}

// Connections reports the number of open connections.
func (h *WebSocketHandler) Connections() int {
	return int(h.hub.count.Load())
}

// Close drops every connection. Later upgrades are closed immediately.
func (h *WebSocketHandler) Close() {
	h.hub.once.Do(func() { close(h.hub.shutdown) })
	<-h.hub.done
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	var userID int64
	if token := c.Query("token"); token != "" {
		claims, err := h.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		userID = claims.UserID
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		ID:   models.GenerateConnectionID(),
		conn: conn,
		send: make(chan models.ServerMessage, sendBuffer),
		subs: make(chan (<-chan models.RoundEvent), 1),
	}
	client.userID.Store(userID)

	if !h.hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()

	if userID != 0 {
		h.sendAuthed(c.Request.Context(), client)
	}
	h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		client.ops.Wait()
		h.broadcaster.Unsubscribe(client.ID)
		h.hub.remove(client)
		close(client.send)
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.reply(models.ErrorMessage(models.Validationf("malformed message: %v", err)))
			continue
		}

		h.handleMessage(ctx, client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, client *Client, msg *models.ClientMessage) {
	switch msg.Type {
	case models.MsgPing:
		client.reply(models.ServerMessage{
			Type: models.MsgPong,
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
		return
	case models.MsgAuth:
		claims, err := h.jwtService.ValidateToken(msg.Token)
		if err != nil {
			client.reply(unauthorized("invalid or expired token"))
			return
		}
		client.userID.Store(claims.UserID)
		h.sendAuthed(ctx, client)
		return
	}

	userID := client.userID.Load()
	if userID == 0 {
		client.reply(unauthorized("authenticate first"))
		return
	}

	switch msg.Type {
	case models.MsgSubscribeBets:
		if len(msg.Payload) == 0 {
			client.reply(models.ErrorMessage(models.Validationf("payload must list at least one game id")))
			return
		}
		client.subscribe(h.broadcaster.Subscribe(client.ID, msg.Payload))
		client.reply(models.ServerMessage{
			Type: models.MsgSubscribed,
			Data: gin.H{"games": msg.Payload, "active": true},
		})

	case models.MsgSubscribeAll:
		client.subscribe(h.broadcaster.Subscribe(client.ID, nil))
		client.reply(models.ServerMessage{
			Type: models.MsgSubscribed,
			Data: gin.H{"all": true, "active": true},
		})

	case models.MsgUnsubscribeBets, models.MsgUnsubscribeAll:
		h.broadcaster.Unsubscribe(client.ID)
		client.reply(models.ServerMessage{
			Type: models.MsgSubscribed,
			Data: gin.H{"active": false},
		})

	case models.MsgNewClientSeed:
		if !h.allow(ctx, client, "seeds", services.DefaultRateLimitSeeds) {
			return
		}
		rotation, err := h.gameEngine.RotateClientSeed(ctx, userID, msg.Seed)
		h.sendRotation(client, rotation, err)

	case models.MsgNewServerSeed:
		if !h.allow(ctx, client, "seeds", services.DefaultRateLimitSeeds) {
			return
		}
		rotation, err := h.gameEngine.RotateServerSeed(ctx, userID)
		h.sendRotation(client, rotation, err)

	case models.MsgMakeBet:
		var req models.MakeBetRequest
		if !decodePayload(client, msg, &req) || !h.allow(ctx, client, "bet", services.DefaultRateLimitBets) {
			return
		}
		client.run(func() {
			result, err := h.gameEngine.MakeBet(ctx, userID, &req)
			client.replyResult(models.MsgBetResult, result, err)
		})

	case models.MsgContinueGame:
		var req models.ContinueGameRequest
		if !decodePayload(client, msg, &req) || !h.allow(ctx, client, "continue", services.DefaultRateLimitContinue) {
			return
		}
		client.run(func() {
			result, err := h.gameEngine.ContinueGame(ctx, userID, &req)
			client.replyResult(models.MsgBetResult, result, err)
		})

	case models.MsgCashout:
		var ref models.GameRef
		if !decodePayload(client, msg, &ref) || !h.allow(ctx, client, "cashout", services.DefaultRateLimitCashout) {
			return
		}
		client.run(func() {
			result, err := h.gameEngine.Cashout(ctx, userID, &ref)
			client.replyResult(models.MsgBetResult, result, err)
		})

	case models.MsgGetState:
		var ref models.GameRef
		if !decodePayload(client, msg, &ref) {
			return
		}
		snapshot, err := h.gameEngine.GetState(userID, &ref)
		client.replyResult(models.MsgState, snapshot, err)

	default:
		client.reply(models.ErrorMessage(models.Validationf("unknown message type %q", msg.Type)))
	}
}

func (h *WebSocketHandler) sendAuthed(ctx context.Context, client *Client) {
	userID := client.userID.Load()
	client.reply(models.ServerMessage{
		Type: models.MsgAuthed,
		Data: gin.H{"user_id": userID},
	})

	pair, err := h.gameEngine.Seeds(ctx, userID)
	client.replyResult(models.MsgSeeds, pair, err)
}

func (h *WebSocketHandler) sendRotation(client *Client, rotation *models.SeedRotation, err error) {
	if err != nil {
		client.reply(models.ErrorMessage(err))
		return
	}
	client.reply(models.ServerMessage{Type: models.MsgRevealedSeed, Data: rotation})
	client.reply(models.ServerMessage{
		Type: models.MsgServerSeedHash,
		Data: gin.H{"server_seed_hash": rotation.Current.ServerSeedHash},
	})
}

func (h *WebSocketHandler) allow(ctx context.Context, client *Client, action string, limit int) bool {
	ok, err := h.limiter.Allow(ctx, client.userID.Load(), action, limit, time.Minute)
	if err != nil {
		log.Printf("Rate limit check failed for user %d: %v", client.userID.Load(), err)
	}
	if err != nil || !ok {
		client.reply(models.ServerMessage{
			Type:      models.MsgError,
			Kind:      "RateLimited",
			Message:   "rate limit exceeded",
			Retryable: true,
		})
		return false
	}
	return true
}

func decodePayload(client *Client, msg *models.ClientMessage, v any) bool {
	if err := json.Unmarshal(msg.Raw, v); err != nil {
		client.reply(models.ErrorMessage(models.Validationf("invalid %s payload: %v", msg.Type, err)))
		return false
	}
	return true
}

func unauthorized(reason string) models.ServerMessage {
	return models.ServerMessage{
		Type:    models.MsgError,
		Kind:    "Unauthorized",
		Message: reason,
	}
}

// run executes a bet operation off the read loop so that Ping and GetState
// are answered while a long auto-bet is in progress.
func (c *Client) run(fn func()) {
	c.ops.Add(1)
	go func() {
		defer c.ops.Done()
		fn()
	}()
}

// reply queues msg for the write pump. A client that cannot keep up is
// disconnected rather than allowed to stall the engine.
func (c *Client) reply(msg models.ServerMessage) {
	select {
	case c.send <- msg:
	default:
		log.Printf("Send buffer full for connection %s, closing", c.ID)
		c.conn.Close()
	}
}

func (c *Client) replyResult(msgType string, data any, err error) {
	if err != nil {
		c.reply(models.ErrorMessage(err))
		return
	}
	c.reply(models.ServerMessage{Type: msgType, Data: data})
}

func (c *Client) subscribe(events <-chan models.RoundEvent) {
	select {
	case <-c.subs:
	default:
	}
	c.subs <- events
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	var events <-chan models.RoundEvent
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case ch := <-c.subs:
			events = ch

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(models.ServerMessage{Type: models.MsgBet, Data: event}); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (hub *WebSocketHub) run() {
	defer close(hub.done)
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.ID] = client
			hub.count.Add(1)
			log.Printf("Client registered: %s (user %d)", client.ID, client.userID.Load())

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.ID]; ok {
				delete(hub.clients, client.ID)
				hub.count.Add(-1)
				log.Printf("Client unregistered: %s (user %d)", client.ID, client.userID.Load())
			}

		case <-hub.shutdown:
			for id, client := range hub.clients {
				client.conn.Close()
				delete(hub.clients, id)
			}
			hub.count.Store(0)
			return
		}
	}
}

func (hub *WebSocketHub) add(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}
