package rooms

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go-chat/backend/models"

	"github.com/google/uuid"
)

// 聊天室代碼使用的字元集與長度
const (
	codeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength = 6
)

// DefaultTypingTTL 是輸入指示的存活時間，每次 SetTyping 重新起算
const DefaultTypingTTL = 3 * time.Second

const maxNicknameLength = 30

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

// typingEntry 是一筆輸入指示，expiresAt 之後視為已消失
type typingEntry struct {
	nickname  string
	expiresAt time.Time
	timer     *time.Timer
}

// Store 是聊天室目錄：持有所有聊天室、代碼索引與輸入指示狀態。
// 在程式啟動時建立一次，以依賴注入的方式傳給需要它的元件；
// 所有操作都在內部鎖的保護下完成，跨聊天室的操作彼此不互相阻塞。
// 交到呼叫端手上的聊天室與參與者一律是深拷貝快照。
type Store struct {
	mu        sync.RWMutex
	rooms     map[string]*models.Room
	codeIndex map[string]string                      // code -> roomID
	typing    map[string]map[string]*typingEntry     // roomID -> participantID -> entry
	typingTTL time.Duration
	onTypingExpired func(roomID string) // 輸入指示到期時通知事件層重播 typing:update
	closed    bool
}

// NewStore 建立一個空的聊天室目錄
func NewStore() *Store {
	return &Store{
		rooms:     make(map[string]*models.Room),
		codeIndex: make(map[string]string),
		typing:    make(map[string]map[string]*typingEntry),
		typingTTL: DefaultTypingTTL,
	}
}

// SetTypingTTL 覆寫輸入指示的存活時間(測試用)
func (s *Store) SetTypingTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingTTL = ttl
}

// OnTypingExpired 註冊輸入指示到期時的回呼，回呼會在鎖外被呼叫
func (s *Store) OnTypingExpired(fn func(roomID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTypingExpired = fn
}

// StableParticipantID 由聊天室與暱稱推導出穩定參與者 ID。
// 頁面重新整理後用同樣的暱稱重連，會得到同一個 ID。
func StableParticipantID(roomID, nickname string) string {
	return roomID + ":" + strings.ToLower(strings.TrimSpace(nickname))
}

// ValidateNickname 檢查暱稱是否可用。
// 冒號是保留字元：穩定參與者 ID 與私訊對話 ID 都以它做分隔。
func ValidateNickname(nickname string) error {
	trimmed := strings.TrimSpace(nickname)
	if trimmed == "" || len(trimmed) > maxNicknameLength {
		return models.ErrInvalidNickname
	}
	if strings.Contains(trimmed, ":") {
		return models.ErrInvalidNickname
	}
	return nil
}

// ValidateCode 檢查字串是否符合聊天室代碼格式
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return models.ErrInvalidRoomCode
	}
	return nil
}

// CreateRoom 建立一個新聊天室並配發全域唯一的 6 位代碼。
// 代碼以隨機抽取產生，撞到現有代碼就重抽，直到唯一為止。
func (s *Store) CreateRoom(capacity int) (*models.Room, error) {
	if capacity <= 0 {
		capacity = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.generateUniqueCodeLocked()
	if err != nil {
		return nil, models.ErrServerError
	}

	room := &models.Room{
		ID:           uuid.New().String(),
		Code:         code,
		Capacity:     capacity,
		IsLocked:     false,
		CreatedAt:    time.Now(),
		Participants: make(map[string]*models.Participant),
		Moderators:   make(map[string]bool),
	}
	s.rooms[room.ID] = room
	s.codeIndex[code] = room.ID
	return room.Clone(), nil
}

// generateUniqueCodeLocked 產生一個未被使用的聊天室代碼，呼叫前必須持有寫鎖
func (s *Store) generateUniqueCodeLocked() (string, error) {
	max := big.NewInt(int64(len(codeChars)))
	for {
		code := make([]byte, CodeLength)
		for i := range code {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			code[i] = codeChars[n.Int64()]
		}
		if _, taken := s.codeIndex[string(code)]; !taken {
			return string(code), nil
		}
	}
}

// GetRoom 依 ID 取得聊天室
func (s *Store) GetRoom(roomID string) (*models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	return room.Clone(), true
}

// GetRoomByCode 依代碼解析聊天室，代碼不分大小寫
func (s *Store) GetRoomByCode(code string) (*models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.codeIndex[strings.ToUpper(code)]
	if !ok {
		return nil, false
	}
	return s.rooms[roomID].Clone(), true
}

// DeleteRoom 顯式拆除聊天室(聊天室不會被自動回收)
func (s *Store) DeleteRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(s.codeIndex, room.Code)
	delete(s.rooms, roomID)
	for _, entry := range s.typing[roomID] {
		entry.timer.Stop()
	}
	delete(s.typing, roomID)
}

// AddParticipant 把參與者加入聊天室。
// 已達容量上限時回傳 ROOM_FULL 且不做任何變動；以穩定 ID 重複加入
// (斷線重連)則是更新而非重複插入。第一位加入者自動成為版主。
func (s *Store) AddParticipant(roomID string, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	if existing, ok := room.Participants[p.ID]; ok {
		// 重連：更新連線 ID，保留原本的加入時間
		existing.ConnectionID = p.ConnectionID
		existing.Nickname = p.Nickname
		return nil
	}

	if len(room.Participants) >= room.Capacity {
		return models.ErrRoomFull
	}

	np := p.Clone()
	if np.JoinedAt.IsZero() {
		np.JoinedAt = time.Now()
	}
	room.Participants[np.ID] = np
	if len(room.Participants) == 1 {
		room.Moderators[np.ID] = true
	}
	return nil
}

// RemoveParticipant 把參與者移出聊天室，目標不存在時不視為錯誤
func (s *Store) RemoveParticipant(roomID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(room.Participants, participantID)
	if entries, ok := s.typing[roomID]; ok {
		if entry, ok := entries[participantID]; ok {
			entry.timer.Stop()
			delete(entries, participantID)
		}
	}
}

// HasParticipant 回報參與者目前是否在聊天室中。
// 與計時器競速的操作(例如寬限期到期的同時送出訊息)要先用它確認成員資格。
func (s *Store) HasParticipant(roomID, participantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = room.Participants[participantID]
	return ok
}

// Participants 回傳聊天室的參與者列表，依加入時間排序
func (s *Store) Participants(roomID string) []*models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	list := make([]*models.Participant, 0, len(room.Participants))
	for _, p := range room.Participants {
		list = append(list, p.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list
}

// ParticipantCount 回傳聊天室目前的參與者人數
func (s *Store) ParticipantCount(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return 0
	}
	return len(room.Participants)
}

// IsModerator 回報參與者是否為該聊天室的版主
func (s *Store) IsModerator(roomID, participantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	return room.Moderators[participantID]
}

// AddModerator 把參與者加入版主集合(僅限現任版主操作)
func (s *Store) AddModerator(roomID, requesterID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}
	if !room.Moderators[requesterID] {
		return models.ErrUnauthorized
	}
	if _, ok := room.Participants[participantID]; !ok {
		return models.ErrUserNotFound
	}
	room.Moderators[participantID] = true
	return nil
}

// SetLocked 切換聊天室的鎖定狀態(僅限版主)。
// 鎖定期間只有版主能發送非系統消息，該限制在發送當下由事件層檢查。
func (s *Store) SetLocked(roomID, requesterID string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}
	if !room.Moderators[requesterID] {
		return models.ErrUnauthorized
	}
	room.IsLocked = locked
	return nil
}

// IsLocked 回報聊天室是否處於鎖定狀態
func (s *Store) IsLocked(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	return room.IsLocked
}

// RegenerateRoomCode 重新產生聊天室代碼(僅限版主)。
// 代碼索引中的舊代碼會被原子地換成新代碼，舊代碼立即無法解析，
// 參與者與訊息完全不受影響。
func (s *Store) RegenerateRoomCode(roomID, requesterID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return "", models.ErrRoomNotFound
	}
	if !room.Moderators[requesterID] {
		return "", models.ErrUnauthorized
	}

	code, err := s.generateUniqueCodeLocked()
	if err != nil {
		return "", models.ErrServerError
	}
	delete(s.codeIndex, room.Code)
	room.Code = code
	s.codeIndex[code] = roomID
	return code, nil
}

// SetAway 設定參與者的離開狀態
func (s *Store) SetAway(roomID, participantID string, away bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}
	p, ok := room.Participants[participantID]
	if !ok {
		return models.ErrUserNotFound
	}
	p.Away = away
	return nil
}

// Close 停止所有輸入指示計時器。關閉後的目錄不再接受新的輸入指示。
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, entries := range s.typing {
		for _, entry := range entries {
			entry.timer.Stop()
		}
	}
	s.typing = make(map[string]map[string]*typingEntry)
}
