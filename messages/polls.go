package messages

import (
	"strings"
	"time"

	"go-chat/backend/models"

	"github.com/google/uuid"
)

// CreatePollMessage 建立並保存一則投票消息。
// 問題為空或選項少於兩個時回傳 INVALID_POLL；選項 ID 由儲存層配發。
func (s *Store) CreatePollMessage(roomID, senderID, senderName string, question string, options []string, allowMultiple bool) (*models.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(options) < 2 {
		return nil, models.ErrInvalidPoll
	}

	poll := &models.Poll{
		Question:      question,
		Options:       make([]*models.PollOption, 0, len(options)),
		AllowMultiple: allowMultiple,
	}
	for _, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, models.ErrInvalidPoll
		}
		poll.Options = append(poll.Options, &models.PollOption{
			ID:    uuid.New().String(),
			Text:  text,
			Votes: make([]string, 0),
		})
	}

	msg := newMessage(roomID, senderID, senderName, question, models.MessageTypePoll)
	msg.Poll = poll

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl > 0 {
		expiresAt := msg.Timestamp.Add(s.ttl)
		msg.ExpiresAt = &expiresAt
	}
	s.storeLocked(msg)
	return msg.Clone(), nil
}

// VotePoll 對投票消息投下一票。
// 已關閉的投票回傳 POLL_CLOSED。單選投票採取代語意：先把投票者
// 從其他所有選項的票列中移除，再加入所選選項——這兩步在同一把鎖
// 內完成，外部讀取不會觀察到中間狀態。多選投票則是每個選項最多
// 一票、跨選項互不影響，重複投同一選項為冪等。
func (s *Store) VotePoll(id, optionID, userID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) || msg.Poll == nil {
		return nil, models.ErrMessageNotFound
	}
	poll := msg.Poll
	if poll.IsClosed {
		return nil, models.ErrPollClosed
	}

	var target *models.PollOption
	for _, opt := range poll.Options {
		if opt.ID == optionID {
			target = opt
			break
		}
	}
	if target == nil {
		return nil, models.ErrInvalidPoll
	}

	if !poll.AllowMultiple {
		for _, opt := range poll.Options {
			if opt == target {
				continue
			}
			opt.Votes = removeVote(opt.Votes, userID)
		}
	}

	for _, uid := range target.Votes {
		if uid == userID {
			return msg.Clone(), nil
		}
	}
	target.Votes = append(target.Votes, userID)
	return msg.Clone(), nil
}

// ClosePoll 關閉投票，之後的投票一律被拒絕。
// 只有投票的建立者或版主能關閉。
func (s *Store) ClosePoll(id, requesterID string, requesterIsModerator bool) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok || isExpired(msg, time.Now()) || msg.Poll == nil {
		return nil, models.ErrMessageNotFound
	}
	if msg.SenderID != requesterID && !requesterIsModerator {
		return nil, models.ErrUnauthorized
	}

	msg.Poll.IsClosed = true
	return msg.Clone(), nil
}

func removeVote(votes []string, userID string) []string {
	for i, uid := range votes {
		if uid == userID {
			return append(votes[:i], votes[i+1:]...)
		}
	}
	return votes
}
