package models

import (
	"time"
)

// MessageType 定義消息類型
type MessageType string

const (
	MessageTypeNormal MessageType = "normal" // 普通消息
	MessageTypeSystem MessageType = "system" // 系統消息(加入/離開通知等)
	MessageTypeFake   MessageType = "fake"   // 偽裝消息(只廣播，不儲存)
	MessageTypeImage  MessageType = "image"  // 圖片消息
	MessageTypeFile   MessageType = "file"   // 檔案消息
	MessageTypeVoice  MessageType = "voice"  // 語音消息
	MessageTypeAI     MessageType = "ai"     // AI 夥伴回覆
	MessageTypePoll   MessageType = "poll"   // 投票消息
)

// ReadReceipt 代表一筆已讀回條(僅私訊使用)
type ReadReceipt struct {
	UserID   string    `json:"userId"`
	Nickname string    `json:"nickname"`
	ReadAt   time.Time `json:"readAt"`
}

// PollOption 代表投票的一個選項
type PollOption struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Votes []string `json:"votes"` // 投給此選項的使用者 ID 列表
}

// Poll 代表附加在 poll 類型消息上的投票內容
type Poll struct {
	Question      string        `json:"question"`
	Options       []*PollOption `json:"options"`
	AllowMultiple bool          `json:"allowMultiple"`
	IsClosed      bool          `json:"isClosed"`
}

// Message 代表一個聊天訊息。
// ExpiresAt 為 nil 表示永不過期(私訊皆為 nil)；到期的訊息由排程器
// 靜默移除，與顯式刪除(保留記錄、內容換成占位字串)是兩件不同的事。
type Message struct {
	ID         string      `json:"id"`
	Type       MessageType `json:"type"`
	RoomID     string      `json:"roomId"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	ExpiresAt  *time.Time  `json:"expiresAt,omitempty"`

	IsEdited bool       `json:"isEdited,omitempty"`
	EditedAt *time.Time `json:"editedAt,omitempty"`

	IsDeleted bool       `json:"isDeleted,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	IsPinned bool       `json:"isPinned,omitempty"`
	PinnedAt *time.Time `json:"pinnedAt,omitempty"`

	// Reactions 以 emoji 分組，每組保存按過該 emoji 的使用者 ID 集合
	Reactions map[string][]string `json:"reactions,omitempty"`

	Poll *Poll `json:"poll,omitempty"`

	// ReadBy 僅私訊使用，只有收件者能新增回條
	ReadBy []ReadReceipt `json:"readBy,omitempty"`

	// 檔案/圖片/語音消息的附加資訊，大小限制由上傳服務負責
	FileURL  string `json:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// Clone 回傳訊息的深拷貝。
// 儲存層交出去的訊息一律是拷貝，序列化或廣播時不會和儲存層
// 後續的寫入撞在一起。
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Reactions != nil {
		c.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			c.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	if m.ReadBy != nil {
		c.ReadBy = append([]ReadReceipt(nil), m.ReadBy...)
	}
	if m.Poll != nil {
		poll := *m.Poll
		poll.Options = make([]*PollOption, 0, len(m.Poll.Options))
		for _, opt := range m.Poll.Options {
			o := *opt
			o.Votes = append([]string(nil), opt.Votes...)
			poll.Options = append(poll.Options, &o)
		}
		c.Poll = &poll
	}
	return &c
}
