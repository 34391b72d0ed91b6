package websocket

import (
	"log"
	"sync"
)

// Hub 維護所有活躍的 WebSocket 客戶端，並處理事件的廣播。
// 索引分兩層：依聊天室(房間廣播)與依使用者身分(私訊投遞到該身分的
// 所有活躍分頁)。廣播是射後不理的通道發送，絕不跨房間取鎖，也不會
// 因單一客戶端阻塞；發送佇列塞滿的客戶端會被直接斷開。
type Hub struct {
	mu            sync.RWMutex
	clients       map[*Client]bool
	clientsByRoom map[string]map[*Client]bool
	clientsByUser map[string]map[*Client]bool
}

// NewHub 創建並返回一個新的 Hub 實例
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		clientsByRoom: make(map[string]map[*Client]bool),
		clientsByUser: make(map[string]map[*Client]bool),
	}
}

// Register 登記一條剛升級完成的連線(尚未加入任何聊天室)
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// Subscribe 把客戶端掛進聊天室與使用者索引(join:room 成功後呼叫)
func (h *Hub) Subscribe(c *Client, roomID, userKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clientsByRoom[roomID]; !ok {
		h.clientsByRoom[roomID] = make(map[*Client]bool)
	}
	h.clientsByRoom[roomID][c] = true

	if userKey != "" {
		if _, ok := h.clientsByUser[userKey]; !ok {
			h.clientsByUser[userKey] = make(map[*Client]bool)
		}
		h.clientsByUser[userKey][c] = true
	}
	log.Printf("Client %s subscribed to room %s. Total clients in room: %d", c.ConnID, roomID, len(h.clientsByRoom[roomID]))
}

// UnsubscribeRoom 把客戶端移出聊天室索引(顯式離開時呼叫)
func (h *Hub) UnsubscribeRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(c, roomID)
}

// Unregister 移除客戶端的所有索引並關閉其發送佇列
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.removeFromRoomLocked(c, c.RoomID())
	if userKey := c.UserKey(); userKey != "" {
		if clients, ok := h.clientsByUser[userKey]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.clientsByUser, userKey)
			}
		}
	}
	c.closeSend()
}

func (h *Hub) removeFromRoomLocked(c *Client, roomID string) {
	if clients, ok := h.clientsByRoom[roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.clientsByRoom, roomID) // 房間沒有客戶端了，就移除索引
		}
	}
}

// BroadcastToRoom 把事件廣播給聊天室中的所有客戶端。
// excludeConnID 非空時跳過該連線(例如 typing:update 不用回傳給本人)。
func (h *Hub) BroadcastToRoom(roomID string, event OutEvent, excludeConnID string) {
	h.mu.RLock()
	targets := make([]*Client, 0)
	for c := range h.clientsByRoom[roomID] {
		if excludeConnID != "" && c.ConnID == excludeConnID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, event)
	}
}

// SendToUser 把事件投遞給某個使用者身分的所有活躍連線(私訊投遞)
func (h *Hub) SendToUser(userKey string, event OutEvent) {
	h.mu.RLock()
	targets := make([]*Client, 0)
	for c := range h.clientsByUser[userKey] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, event)
	}
}

// SendToClient 把事件發送給單一客戶端
func (h *Hub) SendToClient(c *Client, event OutEvent) {
	h.deliver(c, event)
}

// deliver 嘗試把事件放進客戶端的發送佇列，佇列塞滿就斷開該客戶端
func (h *Hub) deliver(c *Client, event OutEvent) {
	if !c.trySend(event) {
		log.Printf("Client %s send queue is full, unregistering", c.ConnID)
		h.Unregister(c)
	}
}

// CloseAll 斷開所有客戶端(行程關閉時呼叫)
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}
