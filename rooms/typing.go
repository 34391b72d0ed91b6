package rooms

import (
	"time"

	"go-chat/backend/models"
)

// SetTyping 記錄參與者正在輸入。
// 輸入指示在最近一次呼叫的 TTL 之後消失；重複呼叫會取消舊計時器並
// 重新起算(防抖)，而不是固定間隔。
func (s *Store) SetTyping(roomID, participantID, nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, ok := s.rooms[roomID]; !ok {
		return
	}

	entries, ok := s.typing[roomID]
	if !ok {
		entries = make(map[string]*typingEntry)
		s.typing[roomID] = entries
	}

	expiresAt := time.Now().Add(s.typingTTL)
	if entry, ok := entries[participantID]; ok {
		entry.timer.Stop()
		entry.nickname = nickname
		entry.expiresAt = expiresAt
		entry.timer = s.armTypingTimer(roomID, participantID)
		return
	}

	entry := &typingEntry{nickname: nickname, expiresAt: expiresAt}
	entry.timer = s.armTypingTimer(roomID, participantID)
	entries[participantID] = entry
}

// armTypingTimer 安排到期清除，呼叫前必須持有寫鎖
func (s *Store) armTypingTimer(roomID, participantID string) *time.Timer {
	return time.AfterFunc(s.typingTTL, func() {
		s.expireTyping(roomID, participantID)
	})
}

// expireTyping 在計時器觸發時清掉到期的輸入指示。
// 計時器觸發與 SetTyping 重新起算可能競速，所以要再確認 expiresAt 真的已過。
func (s *Store) expireTyping(roomID, participantID string) {
	s.mu.Lock()
	entry, ok := s.typing[roomID][participantID]
	if !ok || time.Now().Before(entry.expiresAt) {
		s.mu.Unlock()
		return
	}
	delete(s.typing[roomID], participantID)
	callback := s.onTypingExpired
	s.mu.Unlock()

	if callback != nil {
		callback(roomID)
	}
}

// ClearTyping 立即清掉參與者的輸入指示(送出訊息時呼叫)
func (s *Store) ClearTyping(roomID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.typing[roomID][participantID]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(s.typing[roomID], participantID)
}

// GetTypingUsers 回傳目前尚未到期的輸入指示
func (s *Store) GetTypingUsers(roomID string) []models.TypingUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	users := make([]models.TypingUser, 0)
	for participantID, entry := range s.typing[roomID] {
		if now.Before(entry.expiresAt) {
			users = append(users, models.TypingUser{
				ParticipantID: participantID,
				Nickname:      entry.nickname,
			})
		}
	}
	return users
}
