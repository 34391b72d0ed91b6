package messages

import (
	"time"

	"go-chat/backend/models"
)

// 到期排程：每則帶有到期時間的訊息配一個計時器，觸發時把訊息從儲存中
// 無痕移除。到期移除是刻意靜默的——不發出任何刪除事件，客戶端不需要
// 也不會知道背景清理發生過；這與顯式刪除(必須通知客戶端)形成對比。

// SetExpiry 設定或清除訊息的到期時間。
// 重新排程是冪等的：先取消該訊息既有的計時器，再視需要重新安排；
// expiresAt 為 nil 時訊息改為永不過期。
func (s *Store) SetExpiry(id string, expiresAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return
	}
	msg.ExpiresAt = expiresAt
	s.scheduleLocked(msg)
}

// scheduleLocked 為訊息安排到期計時器，呼叫前必須持有寫鎖。
// 既有的計時器一律先取消，避免快速重排造成重複移除。
func (s *Store) scheduleLocked(msg *models.Message) {
	if timer, ok := s.timers[msg.ID]; ok {
		timer.Stop()
		delete(s.timers, msg.ID)
	}
	if s.closed || msg.ExpiresAt == nil {
		return
	}

	id := msg.ID
	s.timers[id] = time.AfterFunc(time.Until(*msg.ExpiresAt), func() {
		s.removeExpired(id)
	})
}

// removeExpired 在計時器觸發時移除到期訊息。
// SetExpiry 可能在觸發與取鎖之間把到期時間往後挪，所以要再確認
// 訊息真的已到期才移除。
func (s *Store) removeExpired(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, id)
	msg, ok := s.messages[id]
	if !ok || !isExpired(msg, time.Now()) {
		return
	}

	delete(s.messages, id)
	ids := s.byRoom[msg.RoomID]
	for i, mid := range ids {
		if mid == id {
			s.byRoom[msg.RoomID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// Close 取消所有待觸發的到期計時器，避免行程關閉時留下懸空回呼
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
