package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"go-chat/backend/ai"
	"go-chat/backend/dms"
	"go-chat/backend/messages"
	"go-chat/backend/models"
	"go-chat/backend/presence"
	"go-chat/backend/rooms"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const aiReplyTimeout = 30 * time.Second

// upgrader 用於將 HTTP 連線升級為 WebSocket 連線
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 設定true:允許所有來源的連線
		return true
	},
}

// Gateway 是事件協定層：把入站事件翻譯成聊天室目錄/訊息儲存/對話索引
// 的操作，並把結果廣播給訂閱該聊天室的所有連線或私訊收件者的連線。
// 元件層的失敗以 *models.ChatError 回傳，統一在這裡轉譯成 error 事件。
type Gateway struct {
	rooms    *rooms.Store
	messages *messages.Store
	dms      *dms.Store
	presence *presence.Coordinator
	ai       ai.Client
	hub      *Hub
}

// NewGateway 建立事件閘道並接上斷線寬限與輸入指示到期的回呼
func NewGateway(roomStore *rooms.Store, msgStore *messages.Store, dmStore *dms.Store, aiClient ai.Client, hub *Hub) *Gateway {
	g := &Gateway{
		rooms:    roomStore,
		messages: msgStore,
		dms:      dmStore,
		ai:       aiClient,
		hub:      hub,
	}
	g.presence = presence.NewCoordinator(g.onParticipantLeft)
	roomStore.OnTypingExpired(g.onTypingExpired)
	return g
}

// Presence 暴露連線協調器(測試與關機流程使用)
func (g *Gateway) Presence() *presence.Coordinator {
	return g.presence
}

// Close 取消所有寬限計時器並斷開所有客戶端
func (g *Gateway) Close() {
	g.presence.Close()
	g.hub.CloseAll()
}

// ServeWS 處理 WebSocket 連線請求
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		hub:    g.hub,
		conn:   conn,
		send:   make(chan OutEvent, 256),
		ConnID: uuid.New().String(),
	}
	g.hub.Register(client)

	go client.writePump()
	client.readPump(g) // readPump 會在連線關閉時自動走斷線路徑
}

// dispatch 依事件名稱分派給對應的處理器
func (g *Gateway) dispatch(c *Client, event InEvent) {
	var err error
	switch event.Event {
	case EvtJoinRoom:
		err = g.handleJoinRoom(c, event.Data)
	case EvtLeaveRoom:
		err = g.handleLeaveRoom(c)
	case EvtSendMessage:
		err = g.handleSendMessage(c, event.Data)
	case EvtEditMessage:
		err = g.handleEditMessage(c, event.Data)
	case EvtDeleteMessage:
		err = g.handleDeleteMessage(c, event.Data)
	case EvtAddReaction:
		err = g.handleReaction(c, event.Data, true)
	case EvtRemoveReaction:
		err = g.handleReaction(c, event.Data, false)
	case EvtPinMessage:
		err = g.handlePin(c, event.Data, true)
	case EvtUnpinMessage:
		err = g.handlePin(c, event.Data, false)
	case EvtSendPoll:
		err = g.handleSendPoll(c, event.Data)
	case EvtVotePoll:
		err = g.handleVotePoll(c, event.Data)
	case EvtClosePoll:
		err = g.handleClosePoll(c, event.Data)
	case EvtTypingStart:
		err = g.handleTyping(c, true)
	case EvtTypingStop:
		err = g.handleTyping(c, false)
	case EvtSendDM:
		err = g.handleSendDM(c, event.Data)
	case EvtDeleteDM:
		err = g.handleDeleteDM(c, event.Data)
	case EvtMarkDMRead:
		err = g.handleMarkDMRead(c, event.Data)
	case EvtMarkAllDMRead:
		err = g.handleMarkAllDMRead(c, event.Data)
	case EvtLockRoom:
		err = g.handleSetLocked(c, true)
	case EvtUnlockRoom:
		err = g.handleSetLocked(c, false)
	case EvtRegenerateCode:
		err = g.handleRegenerateCode(c)
	case EvtClearMessages:
		err = g.handleClearMessages(c, event.Data)
	case EvtSendFake:
		err = g.handleSendFake(c, event.Data)
	case EvtSendFile:
		err = g.handleSendFile(c, event.Data)
	case EvtSetAway:
		err = g.handleSetAway(c, event.Data)
	case EvtAskAI:
		err = g.handleAskAI(c, event.Data)
	default:
		log.Printf("Unknown event %q from client %s", event.Event, c.ConnID)
		return
	}
	if err != nil {
		g.sendError(c, err)
	}
}

// sendError 把領域錯誤轉譯成統一的 error 事件
func (g *Gateway) sendError(c *Client, err error) {
	var chatErr *models.ChatError
	if !errors.As(err, &chatErr) {
		log.Printf("Unexpected error for client %s: %v", c.ConnID, err)
		chatErr = models.ErrServerError
	}
	g.hub.SendToClient(c, OutEvent{Event: EvtError, Data: ErrorPayload{Code: chatErr.Code, Message: chatErr.Message}})
}

// requireMembership 確認客戶端目前仍是聊天室成員。
// 參與者操作可能與寬限計時器競速(例如計時器剛把人移除的瞬間送出
// 訊息)，所以提交任何效果前都要重新檢查成員資格。
func (g *Gateway) requireMembership(c *Client) (roomID, participantID string, err error) {
	roomID = c.RoomID()
	participantID = c.ParticipantID()
	if roomID == "" || !g.rooms.HasParticipant(roomID, participantID) {
		return "", "", models.ErrRoomNotFound
	}
	return roomID, participantID, nil
}

func (g *Gateway) handleJoinRoom(c *Client, data json.RawMessage) error {
	var p joinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrInvalidRoomCode
	}
	if err := rooms.ValidateNickname(p.Nickname); err != nil {
		return err
	}
	if err := rooms.ValidateCode(p.RoomCode); err != nil {
		return err
	}

	room, ok := g.rooms.GetRoomByCode(p.RoomCode)
	if !ok {
		return models.ErrRoomNotFound
	}

	// 同一條連線換聊天室時先完整走一次離開流程，
	// 舊聊天室不能留下幽靈參與者或殘留的訂閱
	if prev := c.RoomID(); prev != "" && prev != room.ID {
		if err := g.handleLeaveRoom(c); err != nil {
			return err
		}
	}

	nickname := strings.TrimSpace(p.Nickname)
	participantID := rooms.StableParticipantID(room.ID, nickname)
	alreadyMember := g.rooms.HasParticipant(room.ID, participantID)
	if err := g.rooms.AddParticipant(room.ID, &models.Participant{
		ID:           participantID,
		Nickname:     nickname,
		ConnectionID: c.ConnID,
	}); err != nil {
		return err
	}

	// 容量檢查通過後才登記連線；寬限期內的重連會在這裡被吸收
	reconnected := g.presence.Register(&presence.Session{
		ConnectionID:  c.ConnID,
		ParticipantID: participantID,
		RoomID:        room.ID,
		Nickname:      nickname,
	})

	userKey := strings.ToLower(nickname)
	c.setIdentity(room.ID, participantID, nickname, userKey)
	g.hub.Subscribe(c, room.ID, userKey)

	g.hub.SendToClient(c, OutEvent{Event: EvtRoomJoined, Data: roomJoinedPayload{
		RoomID:        room.ID,
		RoomCode:      room.Code,
		Capacity:      room.Capacity,
		IsLocked:      g.rooms.IsLocked(room.ID),
		ParticipantID: participantID,
		IsModerator:   g.rooms.IsModerator(room.ID, participantID),
		Participants:  g.rooms.Participants(room.ID),
		Messages:      g.messages.GetMessages(room.ID),
		Pinned:        g.messages.GetPinnedMessages(room.ID),
	}})
	g.broadcastParticipants(room.ID)

	// 重連(頁面重新整理)或開新分頁時跳過加入通知，避免洗版
	if !reconnected && !alreadyMember {
		sysMsg := g.messages.CreateMessage(room.ID, participantID, "系統訊息", nickname+" 加入了聊天室", models.MessageTypeSystem)
		g.hub.BroadcastToRoom(room.ID, OutEvent{Event: EvtMessageNew, Data: sysMsg}, "")
	}
	return nil
}

func (g *Gateway) handleLeaveRoom(c *Client) error {
	roomID := c.RoomID()
	if roomID == "" {
		return nil
	}

	sess, removed := g.presence.LeaveNow(c.ConnID)
	g.hub.UnsubscribeRoom(c, roomID)
	c.clearRoom()

	if sess == nil || !removed {
		return nil
	}
	g.rooms.RemoveParticipant(roomID, sess.ParticipantID)
	g.broadcastParticipants(roomID)
	sysMsg := g.messages.CreateMessage(roomID, sess.ParticipantID, "系統訊息", sess.Nickname+" 已離開聊天室", models.MessageTypeSystem)
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: sysMsg}, "")
	return nil
}

// handleDisconnect 在連線關閉時進入斷線寬限流程
func (g *Gateway) handleDisconnect(c *Client) {
	if c.RoomID() == "" {
		return
	}
	g.presence.Disconnect(c.ConnID)
}

// onParticipantLeft 在寬限期滿、參與者真正離開時被協調器呼叫(至多一次)
func (g *Gateway) onParticipantLeft(roomID, participantID, nickname string) {
	if _, ok := g.rooms.GetRoom(roomID); !ok {
		return
	}
	g.rooms.RemoveParticipant(roomID, participantID)
	g.broadcastParticipants(roomID)
	sysMsg := g.messages.CreateMessage(roomID, participantID, "系統訊息", nickname+" 已離開聊天室", models.MessageTypeSystem)
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: sysMsg}, "")
}

// broadcastTyping 重播聊天室目前的輸入指示名單
func (g *Gateway) broadcastTyping(roomID, excludeConnID string) {
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtTypingUpdate, Data: typingUpdatePayload{
		RoomID: roomID,
		Users:  g.rooms.GetTypingUsers(roomID),
	}}, excludeConnID)
}

// onTypingExpired 在輸入指示到期時重播 typing:update
func (g *Gateway) onTypingExpired(roomID string) {
	g.broadcastTyping(roomID, "")
}

func (g *Gateway) broadcastParticipants(roomID string) {
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtRoomParticipants, Data: participantsPayload{
		RoomID:       roomID,
		Participants: g.rooms.Participants(roomID),
	}}, "")
}

func (g *Gateway) handleSendMessage(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || strings.TrimSpace(p.Content) == "" {
		return models.ErrServerError
	}

	// 鎖定期間只有版主能發送非系統消息，授權在發送當下評估
	if g.rooms.IsLocked(roomID) && !g.rooms.IsModerator(roomID, participantID) {
		return models.ErrRoomLocked
	}

	msg := g.messages.CreateMessage(roomID, participantID, c.Nickname(), p.Content, models.MessageTypeNormal)
	g.rooms.ClearTyping(roomID, participantID)
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: msg}, "")
	g.broadcastTyping(roomID, "")
	return nil
}

func (g *Gateway) handleEditMessage(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p editMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrMessageNotFound
	}

	msg, err := g.messages.EditMessage(p.MessageID, p.Content, participantID)
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageEdited, Data: msg}, "")
	return nil
}

func (g *Gateway) handleDeleteMessage(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p messageIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrMessageNotFound
	}

	msg, err := g.messages.DeleteMessage(p.MessageID, participantID, g.rooms.IsModerator(roomID, participantID))
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageDeleted, Data: msg}, "")
	return nil
}

func (g *Gateway) handleReaction(c *Client, data json.RawMessage, add bool) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p reactionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Emoji == "" {
		return models.ErrMessageNotFound
	}

	var msg *models.Message
	eventName := EvtReactionAdded
	if add {
		msg, err = g.messages.AddReaction(p.MessageID, p.Emoji, participantID)
	} else {
		msg, err = g.messages.RemoveReaction(p.MessageID, p.Emoji, participantID)
		eventName = EvtReactionRemoved
	}
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: eventName, Data: msg}, "")
	return nil
}

func (g *Gateway) handlePin(c *Client, data json.RawMessage, pin bool) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p messageIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrMessageNotFound
	}

	isModerator := g.rooms.IsModerator(roomID, participantID)
	var msg *models.Message
	eventName := EvtMessagePinned
	if pin {
		msg, err = g.messages.PinMessage(p.MessageID, participantID, isModerator)
	} else {
		msg, err = g.messages.UnpinMessage(p.MessageID, participantID, isModerator)
		eventName = EvtMessageUnpinned
	}
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: eventName, Data: msg}, "")
	return nil
}

func (g *Gateway) handleSendPoll(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p sendPollPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrInvalidPoll
	}
	if g.rooms.IsLocked(roomID) && !g.rooms.IsModerator(roomID, participantID) {
		return models.ErrRoomLocked
	}

	msg, err := g.messages.CreatePollMessage(roomID, participantID, c.Nickname(), p.Question, p.Options, p.AllowMultiple)
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: msg}, "")
	return nil
}

func (g *Gateway) handleVotePoll(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p votePollPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrMessageNotFound
	}

	msg, err := g.messages.VotePoll(p.MessageID, p.OptionID, participantID)
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtPollVoted, Data: msg}, "")
	return nil
}

func (g *Gateway) handleClosePoll(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p messageIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrMessageNotFound
	}

	msg, err := g.messages.ClosePoll(p.MessageID, participantID, g.rooms.IsModerator(roomID, participantID))
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtPollClosed, Data: msg}, "")
	return nil
}

func (g *Gateway) handleTyping(c *Client, start bool) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	if start {
		g.rooms.SetTyping(roomID, participantID, c.Nickname())
	} else {
		g.rooms.ClearTyping(roomID, participantID)
	}
	// 輸入狀態廣播給聊天室中除了本人以外的所有連線
	g.broadcastTyping(roomID, c.ConnID)
	return nil
}

func (g *Gateway) handleSetLocked(c *Client, locked bool) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	if err := g.rooms.SetLocked(roomID, participantID, locked); err != nil {
		return err
	}
	eventName := EvtRoomLocked
	if !locked {
		eventName = EvtRoomUnlocked
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: eventName, Data: map[string]string{"roomId": roomID}}, "")
	return nil
}

func (g *Gateway) handleRegenerateCode(c *Client) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	code, err := g.rooms.RegenerateRoomCode(roomID, participantID)
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtRoomCode, Data: map[string]string{"roomId": roomID, "code": code}}, "")
	return nil
}

func (g *Gateway) handleClearMessages(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	if !g.rooms.IsModerator(roomID, participantID) {
		return models.ErrUnauthorized
	}
	var p clearMessagesPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return models.ErrServerError
		}
	}
	g.messages.ClearMessages(roomID, p.PreserveSystem)
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessagesCleared, Data: p}, "")
	return nil
}

func (g *Gateway) handleSendFake(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	if !g.rooms.IsModerator(roomID, participantID) {
		return models.ErrUnauthorized
	}
	var p sendFakePayload
	if err := json.Unmarshal(data, &p); err != nil || strings.TrimSpace(p.Content) == "" {
		return models.ErrServerError
	}

	// 偽裝消息只建構、只廣播，儲存層不會留下任何記錄
	msg := g.messages.InjectFakeMessage(roomID, p.Content, p.SpoofSource)
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: msg}, "")
	return nil
}

func (g *Gateway) handleSendFile(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p sendFilePayload
	if err := json.Unmarshal(data, &p); err != nil || p.URL == "" {
		return models.ErrServerError
	}
	if g.rooms.IsLocked(roomID) && !g.rooms.IsModerator(roomID, participantID) {
		return models.ErrRoomLocked
	}

	var msgType models.MessageType
	switch p.Kind {
	case "image":
		msgType = models.MessageTypeImage
	case "voice":
		msgType = models.MessageTypeVoice
	default:
		msgType = models.MessageTypeFile
	}
	msg := g.messages.CreateFileMessage(roomID, participantID, c.Nickname(), p.URL, p.FileName, p.FileSize, msgType)
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: msg}, "")
	return nil
}

func (g *Gateway) handleSetAway(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	var p setAwayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrServerError
	}
	if err := g.rooms.SetAway(roomID, participantID, p.Away); err != nil {
		return err
	}
	g.broadcastParticipants(roomID)
	return nil
}

func (g *Gateway) handleSendDM(c *Client, data json.RawMessage) error {
	var p sendDMPayload
	if err := json.Unmarshal(data, &p); err != nil || strings.TrimSpace(p.Content) == "" {
		return models.ErrServerError
	}
	if c.UserKey() == "" {
		return models.ErrUserNotFound
	}
	// 收件者名稱和加入時的暱稱走同一套驗證，保留字元在這裡就被擋下
	if err := rooms.ValidateNickname(p.ToUsername); err != nil {
		return err
	}
	to := strings.ToLower(strings.TrimSpace(p.ToUsername))

	msg := g.dms.SendDM(c.UserKey(), c.Nickname(), to, p.Content)
	// 投遞給收件者與發送者雙方身分的所有活躍連線
	g.hub.SendToUser(to, OutEvent{Event: EvtDMNew, Data: msg})
	g.hub.SendToUser(c.UserKey(), OutEvent{Event: EvtDMNew, Data: msg})
	return nil
}

func (g *Gateway) handleDeleteDM(c *Client, data json.RawMessage) error {
	var p messageIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrMessageNotFound
	}

	msg, err := g.dms.DeleteDM(p.MessageID, c.UserKey())
	if err != nil {
		return err
	}
	// 對話識別碼能唯一拆回兩位使用者(冒號是暱稱的保留字元)
	for _, userKey := range strings.SplitN(msg.RoomID, ":", 2) {
		g.hub.SendToUser(userKey, OutEvent{Event: EvtDMDeleted, Data: msg})
	}
	return nil
}

func (g *Gateway) handleMarkDMRead(c *Client, data json.RawMessage) error {
	var p messageIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrMessageNotFound
	}

	receipts, err := g.dms.MarkDMRead(p.MessageID, c.UserKey(), c.Nickname())
	if err != nil {
		return err
	}
	if receipts == nil {
		// 發送者標記自己的訊息是空操作
		return nil
	}

	msg, ok := g.dms.GetDM(p.MessageID)
	if !ok {
		return nil
	}
	// 已讀回條送往發送者身分的所有連線
	g.hub.SendToUser(msg.SenderID, OutEvent{Event: EvtDMRead, Data: dmReadPayload{
		MessageIDs: []string{msg.ID},
		ReadBy:     receipts,
		Reader:     c.UserKey(),
	}})
	return nil
}

func (g *Gateway) handleMarkAllDMRead(c *Client, data json.RawMessage) error {
	var p markAllDMReadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ErrUserNotFound
	}
	if err := rooms.ValidateNickname(p.OtherUsername); err != nil {
		return err
	}
	other := strings.ToLower(strings.TrimSpace(p.OtherUsername))

	marked := g.dms.MarkAllDMsRead(c.UserKey(), other, c.Nickname())
	if len(marked) == 0 {
		return nil
	}
	g.hub.SendToUser(other, OutEvent{Event: EvtDMRead, Data: dmReadPayload{
		MessageIDs: marked,
		Reader:     c.UserKey(),
	}})
	return nil
}

// handleAskAI 把聊天記錄交給 AI 夥伴，回覆以 ai 類型的訊息廣播。
// 外部呼叫在獨立 goroutine 進行，絕不在持有任何狀態鎖時等待 I/O。
func (g *Gateway) handleAskAI(c *Client, data json.RawMessage) error {
	roomID, participantID, err := g.requireMembership(c)
	if err != nil {
		return err
	}
	if g.ai == nil {
		return models.ErrServerError
	}
	var p askAIPayload
	if err := json.Unmarshal(data, &p); err != nil || strings.TrimSpace(p.Content) == "" {
		return models.ErrServerError
	}

	question := g.messages.CreateMessage(roomID, participantID, c.Nickname(), p.Content, models.MessageTypeNormal)
	g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: question}, "")

	history := g.messages.GetMessages(roomID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), aiReplyTimeout)
		defer cancel()

		reply, err := g.ai.Reply(ctx, history)
		if err != nil {
			log.Printf("AI reply failed for room %s: %v", roomID, err)
			g.sendError(c, models.ErrServerError)
			return
		}
		msg := g.messages.CreateMessage(roomID, "ai", "AI 夥伴", reply, models.MessageTypeAI)
		g.hub.BroadcastToRoom(roomID, OutEvent{Event: EvtMessageNew, Data: msg}, "")
	}()
	return nil
}
