package websocket

import (
	"encoding/json"

	"go-chat/backend/models"
)

// 入站事件名稱(客戶端 -> 伺服器)
const (
	EvtJoinRoom       = "join:room"
	EvtLeaveRoom      = "leave:room"
	EvtSendMessage    = "send:message"
	EvtEditMessage    = "edit:message"
	EvtDeleteMessage  = "delete:message"
	EvtAddReaction    = "add:reaction"
	EvtRemoveReaction = "remove:reaction"
	EvtPinMessage     = "pin:message"
	EvtUnpinMessage   = "unpin:message"
	EvtSendPoll       = "send:poll"
	EvtVotePoll       = "vote:poll"
	EvtClosePoll      = "close:poll"
	EvtTypingStart    = "typing:start"
	EvtTypingStop     = "typing:stop"
	EvtSendDM         = "send:dm"
	EvtDeleteDM       = "delete:dm"
	EvtMarkDMRead     = "mark:dm:read"
	EvtMarkAllDMRead  = "mark:dm:all:read"
	EvtLockRoom       = "lock:room"
	EvtUnlockRoom     = "unlock:room"
	EvtRegenerateCode = "regenerate:code"
	EvtClearMessages  = "clear:messages"
	EvtSendFake       = "send:fake"
	EvtSendFile       = "send:file"
	EvtSetAway        = "set:away"
	EvtAskAI          = "ask:ai"
)

// 出站事件名稱(伺服器 -> 客戶端)
const (
	EvtRoomJoined       = "room:joined"
	EvtRoomParticipants = "room:participants"
	EvtRoomLocked       = "room:locked"
	EvtRoomUnlocked     = "room:unlocked"
	EvtRoomCode         = "room:code"
	EvtMessageNew       = "message:new"
	EvtMessageEdited    = "message:edited"
	EvtMessageDeleted   = "message:deleted"
	EvtReactionAdded    = "reaction:added"
	EvtReactionRemoved  = "reaction:removed"
	EvtMessagePinned    = "message:pinned"
	EvtMessageUnpinned  = "message:unpinned"
	EvtPollVoted        = "poll:voted"
	EvtPollClosed       = "poll:closed"
	EvtTypingUpdate     = "typing:update"
	EvtMessagesCleared  = "messages:cleared"
	EvtDMNew            = "dm:new"
	EvtDMDeleted        = "dm:deleted"
	EvtDMRead           = "dm:read"
	EvtError            = "error"
)

// InEvent 是入站事件的外殼，Data 依事件名稱再解碼
type InEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutEvent 是出站事件的外殼
type OutEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ErrorPayload 是 error 事件的統一形狀：{code, message}。
// 所有領域錯誤都走這一種事件，引擎不會因領域錯誤中斷連線。
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type joinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
}

type sendMessagePayload struct {
	Content string `json:"content"`
}

type editMessagePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type messageIDPayload struct {
	MessageID string `json:"messageId"`
}

type reactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type sendPollPayload struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	AllowMultiple bool     `json:"allowMultiple"`
}

type votePollPayload struct {
	MessageID string `json:"messageId"`
	OptionID  string `json:"optionId"`
}

type sendDMPayload struct {
	ToUsername string `json:"toUsername"`
	Content    string `json:"content"`
}

type markAllDMReadPayload struct {
	OtherUsername string `json:"otherUsername"`
}

type clearMessagesPayload struct {
	PreserveSystem bool `json:"preserveSystem"`
}

type sendFakePayload struct {
	Content     string `json:"content"`
	SpoofSource string `json:"spoofSource"`
}

type sendFilePayload struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Kind     string `json:"kind"` // image / file / voice
}

type setAwayPayload struct {
	Away bool `json:"away"`
}

type askAIPayload struct {
	Content string `json:"content"`
}

// roomJoinedPayload 是加入成功後回給本人的完整快照
type roomJoinedPayload struct {
	RoomID        string                `json:"roomId"`
	RoomCode      string                `json:"roomCode"`
	Capacity      int                   `json:"capacity"`
	IsLocked      bool                  `json:"isLocked"`
	ParticipantID string                `json:"participantId"`
	IsModerator   bool                  `json:"isModerator"`
	Participants  []*models.Participant `json:"participants"`
	Messages      []*models.Message     `json:"messages"`
	Pinned        []*models.Message     `json:"pinned"`
}

type participantsPayload struct {
	RoomID       string                `json:"roomId"`
	Participants []*models.Participant `json:"participants"`
}

type typingUpdatePayload struct {
	RoomID string              `json:"roomId"`
	Users  []models.TypingUser `json:"users"`
}

type dmReadPayload struct {
	MessageIDs []string             `json:"messageIds"`
	ReadBy     []models.ReadReceipt `json:"readBy,omitempty"`
	Reader     string               `json:"reader"`
}
