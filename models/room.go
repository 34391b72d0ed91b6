package models

import (
	"time"
)

// Participant 代表聊天室中的一位參與者。
// ID 是由聊天室與暱稱推導出的穩定識別碼，與短暫的連線 ID 無關，
// 因此頁面重新整理後仍會被辨識為同一個參與者。
type Participant struct {
	ID           string    `json:"id"`
	Nickname     string    `json:"nickname"`
	JoinedAt     time.Time `json:"joinedAt"`
	ConnectionID string    `json:"-"`
	Away         bool      `json:"away"`
}

// Room 代表一個聊天室。
// Code 是 6 位英數字的短代碼，全域唯一且可由版主重新產生；
// 重新產生後舊代碼立即失效，其餘狀態(參與者、訊息)完全保留。
type Room struct {
	ID           string                  `json:"id"`
	Code         string                  `json:"code"`
	Capacity     int                     `json:"capacity"`
	IsLocked     bool                    `json:"isLocked"`
	CreatedAt    time.Time               `json:"createdAt"`
	Participants map[string]*Participant `json:"-"`
	Moderators   map[string]bool         `json:"-"`
}

// Clone 回傳參與者的拷貝
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Clone 回傳聊天室的深拷貝，參與者與版主集合一併複製
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Participants = make(map[string]*Participant, len(r.Participants))
	for id, p := range r.Participants {
		c.Participants[id] = p.Clone()
	}
	c.Moderators = make(map[string]bool, len(r.Moderators))
	for id, ok := range r.Moderators {
		c.Moderators[id] = ok
	}
	return &c
}

// TypingUser 代表一位正在輸入的參與者(供 typing:update 廣播使用)
type TypingUser struct {
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
}
