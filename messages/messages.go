package messages

import (
	"sync"
	"time"

	"go-chat/backend/models"

	"github.com/google/uuid"
)

// DeletedPlaceholder 是顯式刪除後用來取代內容的占位字串
const DeletedPlaceholder = "此訊息已被刪除"

// EditWindow 是允許編輯的時間窗，從原始時間戳起算，重複編輯不會重新起算
const EditWindow = 48 * time.Hour

// Store 持有各聊天室的訊息與到期排程。
// 每則帶有到期時間的訊息都有一個對應的計時器，觸發時靜默移除該訊息
// (不發出任何刪除事件)；顯式刪除則保留記錄並通知客戶端，兩者不可混淆。
// 交到呼叫端手上的訊息一律是深拷貝快照，廣播路徑上的序列化
// 不會和儲存層後續的寫入互相干擾。
type Store struct {
	mu       sync.RWMutex
	messages map[string]*models.Message // messageID -> message
	byRoom   map[string][]string        // roomID -> 依建立順序的 messageID 列表
	timers   map[string]*time.Timer     // messageID -> 到期計時器
	ttl      time.Duration
	closed   bool
}

// NewStore 建立訊息儲存。ttl 是非私訊消息的預設存活時間，
// ttl <= 0 表示訊息預設不過期。
func NewStore(ttl time.Duration) *Store {
	return &Store{
		messages: make(map[string]*models.Message),
		byRoom:   make(map[string][]string),
		timers:   make(map[string]*time.Timer),
		ttl:      ttl,
	}
}

// CreateMessage 建立並保存一則訊息，到期時間為現在加上預設 TTL。
// fake 類型的訊息只會被建構、不會進入儲存(呼叫端自行廣播)。
func (s *Store) CreateMessage(roomID, senderID, senderName, content string, msgType models.MessageType) *models.Message {
	msg := newMessage(roomID, senderID, senderName, content, msgType)

	if msgType == models.MessageTypeFake {
		return msg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl > 0 {
		expiresAt := msg.Timestamp.Add(s.ttl)
		msg.ExpiresAt = &expiresAt
	}
	s.storeLocked(msg)
	return msg.Clone()
}

// CreateFileMessage 保存一則檔案消息，只記錄 URL 與中繼資料，
// 大小限制由上傳服務負責。msgType 應為 image、file 或 voice。
func (s *Store) CreateFileMessage(roomID, senderID, senderName, url, fileName string, fileSize int64, msgType models.MessageType) *models.Message {
	msg := newMessage(roomID, senderID, senderName, url, msgType)
	msg.FileURL = url
	msg.FileName = fileName
	msg.FileSize = fileSize

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl > 0 {
		expiresAt := msg.Timestamp.Add(s.ttl)
		msg.ExpiresAt = &expiresAt
	}
	s.storeLocked(msg)
	return msg.Clone()
}

// InjectFakeMessage 建構一則偽裝消息並直接回傳，絕不寫入儲存
func (s *Store) InjectFakeMessage(roomID, content, spoofSource string) *models.Message {
	msg := newMessage(roomID, "fake:"+spoofSource, spoofSource, content, models.MessageTypeFake)
	return msg
}

func newMessage(roomID, senderID, senderName, content string, msgType models.MessageType) *models.Message {
	return &models.Message{
		ID:         uuid.New().String(),
		Type:       msgType,
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		Timestamp:  time.Now(),
	}
}

// storeLocked 寫入訊息並安排到期移除，呼叫前必須持有寫鎖
func (s *Store) storeLocked(msg *models.Message) {
	s.messages[msg.ID] = msg
	s.byRoom[msg.RoomID] = append(s.byRoom[msg.RoomID], msg.ID)
	s.scheduleLocked(msg)
}

// GetMessage 依 ID 取得訊息，已到期的訊息視同不存在
func (s *Store) GetMessage(id string) (*models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) {
		return nil, false
	}
	return msg.Clone(), true
}

// GetMessages 回傳聊天室中尚未到期的訊息，依建立順序排列
func (s *Store) GetMessages(roomID string) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	result := make([]*models.Message, 0, len(s.byRoom[roomID]))
	for _, id := range s.byRoom[roomID] {
		if msg, ok := s.messages[id]; ok && !isExpired(msg, now) {
			result = append(result, msg.Clone())
		}
	}
	return result
}

// EditMessage 修改訊息內容。只有原始發送者能編輯，且必須在 48 小時
// 時間窗內；成功後設定 isEdited 與 editedAt。
func (s *Store) EditMessage(id, newContent, requesterID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) {
		return nil, models.ErrMessageNotFound
	}
	if msg.SenderID != requesterID {
		return nil, models.ErrUnauthorized
	}
	// 時間窗從原始時間戳起算，不因先前的編輯而重設
	if time.Since(msg.Timestamp) > EditWindow {
		return nil, models.ErrEditWindowExpired
	}

	now := time.Now()
	msg.Content = newContent
	msg.IsEdited = true
	msg.EditedAt = &now
	return msg.Clone(), nil
}

// DeleteMessage 顯式刪除一則訊息。發送者本人或版主可刪除；
// 內容換成占位字串，記錄保留(與到期的無痕移除不同)。
func (s *Store) DeleteMessage(id, requesterID string, requesterIsModerator bool) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) {
		return nil, models.ErrMessageNotFound
	}
	if msg.SenderID != requesterID && !requesterIsModerator {
		return nil, models.ErrUnauthorized
	}

	now := time.Now()
	msg.Content = DeletedPlaceholder
	msg.IsDeleted = true
	msg.DeletedAt = &now
	return msg.Clone(), nil
}

// AddReaction 為訊息加上一個 emoji 反應。
// 反應以 emoji 分組，每組是按過的使用者 ID 集合；同一人對同一 emoji
// 重複按是冪等操作。
func (s *Store) AddReaction(id, emoji, userID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) {
		return nil, models.ErrMessageNotFound
	}

	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	for _, uid := range msg.Reactions[emoji] {
		if uid == userID {
			return msg.Clone(), nil
		}
	}
	msg.Reactions[emoji] = append(msg.Reactions[emoji], userID)
	return msg.Clone(), nil
}

// RemoveReaction 移除使用者對訊息的 emoji 反應，該組清空時整組移除
func (s *Store) RemoveReaction(id, emoji, userID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) {
		return nil, models.ErrMessageNotFound
	}

	users := msg.Reactions[emoji]
	for i, uid := range users {
		if uid == userID {
			users = append(users[:i], users[i+1:]...)
			break
		}
	}
	if len(users) == 0 {
		delete(msg.Reactions, emoji)
	} else {
		msg.Reactions[emoji] = users
	}
	return msg.Clone(), nil
}

// PinMessage 釘選訊息。釘選是版主專屬權限，發送者身分不授予釘選權
// (與編輯/刪除不同)。
func (s *Store) PinMessage(id, requesterID string, requesterIsModerator bool) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) {
		return nil, models.ErrMessageNotFound
	}
	if !requesterIsModerator {
		return nil, models.ErrUnauthorized
	}

	now := time.Now()
	msg.IsPinned = true
	msg.PinnedAt = &now
	return msg.Clone(), nil
}

// UnpinMessage 取消釘選(僅限版主)
func (s *Store) UnpinMessage(id, requesterID string, requesterIsModerator bool) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) {
		return nil, models.ErrMessageNotFound
	}
	if !requesterIsModerator {
		return nil, models.ErrUnauthorized
	}

	msg.IsPinned = false
	msg.PinnedAt = nil
	return msg.Clone(), nil
}

// GetPinnedMessages 回傳聊天室中已釘選且尚未到期的訊息
func (s *Store) GetPinnedMessages(roomID string) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	result := make([]*models.Message, 0)
	for _, id := range s.byRoom[roomID] {
		if msg, ok := s.messages[id]; ok && msg.IsPinned && !isExpired(msg, now) {
			result = append(result, msg.Clone())
		}
	}
	return result
}

// ClearMessages 清空聊天室的訊息。preserveSystem 為 true 時只保留
// system 類型的訊息；被移除訊息的到期計時器一併取消。
func (s *Store) ClearMessages(roomID string, preserveSystem bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := make([]string, 0)
	for _, id := range s.byRoom[roomID] {
		msg, ok := s.messages[id]
		if !ok {
			continue
		}
		if preserveSystem && msg.Type == models.MessageTypeSystem {
			remaining = append(remaining, id)
			continue
		}
		delete(s.messages, id)
		if timer, ok := s.timers[id]; ok {
			timer.Stop()
			delete(s.timers, id)
		}
	}
	s.byRoom[roomID] = remaining
}

// isExpired 回報訊息在 now 時點是否已到期。
// 讀取路徑也會過濾到期訊息，即使計時器還沒來得及觸發，
// 「過了到期時點就查不到」的保證仍然成立。
func isExpired(msg *models.Message, now time.Time) bool {
	return msg.ExpiresAt != nil && !now.Before(*msg.ExpiresAt)
}
