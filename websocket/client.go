package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Client 代表一個 WebSocket 客戶端連線。
// 身分欄位在 join:room 成功前是空的；所有入站事件都在 readPump 這條
// goroutine 上依序處理完才換下一個，單一連線的操作不會彼此交錯。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan OutEvent

	ConnID string

	mu            sync.RWMutex
	roomID        string
	participantID string
	nickname      string
	userKey       string // 私訊身分鍵(暱稱小寫)，所有分頁共用
	accountID     string // 持久帳號 ID，未登入為空

	sendMu     sync.Mutex
	sendClosed bool
}

func (c *Client) setIdentity(roomID, participantID, nickname, userKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
	c.participantID = participantID
	c.nickname = nickname
	c.userKey = userKey
}

func (c *Client) clearRoom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = ""
	c.participantID = ""
}

// RoomID 回傳客戶端目前所在的聊天室 ID(未加入時為空)
func (c *Client) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// ParticipantID 回傳客戶端的穩定參與者 ID
func (c *Client) ParticipantID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participantID
}

// Nickname 回傳客戶端的暱稱
func (c *Client) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

// UserKey 回傳私訊投遞用的身分鍵
func (c *Client) UserKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userKey
}

// trySend 嘗試把事件放進發送佇列。
// 佇列已關閉時當作成功(客戶端正在收尾)；佇列塞滿回傳 false。
func (c *Client) trySend(event OutEvent) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return true
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// readPump 讀取客戶端傳來的事件並交給 Gateway 分派。
// 連線關閉時走斷線路徑(3 秒寬限期)，而不是立即移除參與者。
func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.handleDisconnect(c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Client %s disconnected gracefully.", c.ConnID)
			} else {
				log.Printf("Error reading from client %s: %v", c.ConnID, err)
			}
			break
		}

		var event InEvent
		if err := json.Unmarshal(p, &event); err != nil {
			log.Printf("Error unmarshalling event from client %s: %v", c.ConnID, err)
			continue
		}
		g.dispatch(c, event)
	}
}

// writePump 接收廣播來的事件，序列化後傳給前端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 發送佇列被關閉了，送出 CloseMessage
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshalling event: %v", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("Error writing to client %s: %v", c.ConnID, err)
				return
			}

		// 定時 ping 以保持連線活躍並檢測客戶端是否仍在線
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
