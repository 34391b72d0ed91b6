package dms

import (
	"sort"
	"sync"
	"time"

	"go-chat/backend/models"

	"github.com/google/uuid"
)

// DeletedPlaceholder 是私訊被發送者刪除後的占位字串(與聊天室訊息相同語意)
const DeletedPlaceholder = "此訊息已被刪除"

// Store 是私訊對話索引。
// 對話以兩位使用者 ID 排序串接的正規識別碼為鍵，無論誰先呼叫都會
// 落在同一個對話；私訊僅追加、永不過期，改用已讀回條而非到期時間。
// 交到呼叫端手上的私訊一律是深拷貝快照。
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	byMessage     map[string]string // messageID -> conversationID
}

// NewStore 建立一個空的對話索引
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*models.Conversation),
		byMessage:     make(map[string]string),
	}
}

// ConversationID 由兩位使用者 ID 推導正規對話識別碼。
// 兩個 ID 排序後以冒號串接，保證 (A,B) 與 (B,A) 得到同一個值。
// 暱稱驗證把冒號列為保留字元，識別碼因此能唯一拆回原本的一對使用者。
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + ":" + pair[1]
}

// SendDM 發送一則私訊並回傳它。
// 對話不存在時自動建立；私訊沒有到期時間。
func (s *Store) SendDM(fromID, fromName, toID, content string) *models.Message {
	convID := ConversationID(fromID, toID)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		pair := [2]string{fromID, toID}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		conv = &models.Conversation{
			ID:           convID,
			Participants: pair,
			CreatedAt:    time.Now(),
			Messages:     make([]*models.Message, 0),
		}
		s.conversations[convID] = conv
	}

	msg := &models.Message{
		ID:         uuid.New().String(),
		Type:       models.MessageTypeNormal,
		RoomID:     convID,
		SenderID:   fromID,
		SenderName: fromName,
		Content:    content,
		Timestamp:  time.Now(),
	}
	conv.Messages = append(conv.Messages, msg)
	s.byMessage[msg.ID] = convID
	return msg.Clone()
}

// GetDMHistory 回傳兩位使用者之間依時間排序的完整私訊列表
func (s *Store) GetDMHistory(idA, idB string) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[ConversationID(idA, idB)]
	if !ok {
		return nil
	}
	result := make([]*models.Message, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		result = append(result, msg.Clone())
	}
	return result
}

// GetUserConversations 回傳包含該使用者的所有對話識別碼
func (s *Store) GetUserConversations(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for id, conv := range s.conversations {
		if conv.Participants[0] == userID || conv.Participants[1] == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// DeleteDM 刪除一則私訊。只有原始發送者能刪除；軟刪除語意與聊天室
// 訊息相同：內容換成占位字串、記錄保留。
func (s *Store) DeleteDM(id, requesterID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, models.ErrUnauthorized
	}

	now := time.Now()
	msg.Content = DeletedPlaceholder
	msg.IsDeleted = true
	msg.DeletedAt = &now
	return msg.Clone(), nil
}

// MarkDMRead 在私訊上新增已讀回條。
// 只有收件者(不是發送者)能標記已讀：發送者標記自己的訊息是空操作，
// 回傳 nil 且不新增回條。已標記過則為冪等，回傳既有的回條列表。
func (s *Store) MarkDMRead(id, userID, nickname string) ([]models.ReadReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	if msg.SenderID == userID {
		return nil, nil
	}

	for _, receipt := range msg.ReadBy {
		if receipt.UserID == userID {
			return append([]models.ReadReceipt(nil), msg.ReadBy...), nil
		}
	}
	msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{
		UserID:   userID,
		Nickname: nickname,
		ReadAt:   time.Now(),
	})
	return append([]models.ReadReceipt(nil), msg.ReadBy...), nil
}

// MarkAllDMsRead 把對話中由對方發送、尚未讀的私訊全部標記為已讀，
// 回傳被標記的訊息 ID 列表
func (s *Store) MarkAllDMsRead(userID, otherID, nickname string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[ConversationID(userID, otherID)]
	if !ok {
		return nil
	}

	now := time.Now()
	marked := make([]string, 0)
	for _, msg := range conv.Messages {
		if msg.SenderID == userID {
			continue
		}
		already := false
		for _, receipt := range msg.ReadBy {
			if receipt.UserID == userID {
				already = true
				break
			}
		}
		if already {
			continue
		}
		msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{
			UserID:   userID,
			Nickname: nickname,
			ReadAt:   now,
		})
		marked = append(marked, msg.ID)
	}
	return marked
}

// GetDM 依 ID 取得單則私訊
func (s *Store) GetDM(id string) (*models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, err := s.findLocked(id)
	if err != nil {
		return nil, false
	}
	return msg.Clone(), true
}

func (s *Store) findLocked(id string) (*models.Message, error) {
	convID, ok := s.byMessage[id]
	if !ok {
		return nil, models.ErrMessageNotFound
	}
	for _, msg := range s.conversations[convID].Messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, models.ErrMessageNotFound
}
