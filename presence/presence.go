package presence

import (
	"sync"
	"time"
)

// DefaultGracePeriod 是斷線後保留參與者身分的寬限時間
const DefaultGracePeriod = 3 * time.Second

// State 是參與者身分的連線狀態。
// 狀態機：Connected --斷線--> GracePeriod --同身分重連--> Connected；
// GracePeriod --計時器到期--> Removed(恰好廣播一次離開通知)。
type State int

const (
	StateConnected State = iota
	StateGracePeriod
	StateRemoved
)

// Session 把一條活躍連線對應到參與者身分
type Session struct {
	ConnectionID  string
	ParticipantID string // 穩定參與者 ID(聊天室+暱稱推導)，與連線 ID 無關
	RoomID        string
	Nickname      string
	AccountID     string // 選配的持久帳號 ID，匿名參與者為空
}

// Coordinator 管理連線與參與者身分的對應，以及斷線寬限計時器。
// 斷線不會立刻移除參與者：先進入寬限期吸收頁面重新整理造成的快速
// 重連，寬限期內重連則取消計時器、永遠不廣播離開通知；寬限期滿才
// 真正移除並恰好通知一次。
type Coordinator struct {
	mu          sync.Mutex
	sessions    map[string]*Session        // connectionID -> session
	byParticipant map[string]map[string]bool // participantID -> 活躍 connectionID 集合
	states      map[string]State           // participantID -> 狀態
	graceTimers map[string]*time.Timer     // participantID -> 寬限計時器
	gracePeriod time.Duration
	onLeave     func(roomID, participantID, nickname string)
	closed      bool
}

// NewCoordinator 建立連線協調器。onLeave 會在寬限期滿、參與者真正
// 離開時於鎖外被呼叫，每個身分至多一次。
func NewCoordinator(onLeave func(roomID, participantID, nickname string)) *Coordinator {
	return &Coordinator{
		sessions:      make(map[string]*Session),
		byParticipant: make(map[string]map[string]bool),
		states:        make(map[string]State),
		graceTimers:   make(map[string]*time.Timer),
		gracePeriod:   DefaultGracePeriod,
		onLeave:       onLeave,
	}
}

// SetGracePeriod 覆寫寬限時間(測試用)
func (c *Coordinator) SetGracePeriod(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gracePeriod = d
}

// Register 登記一條新連線。
// 若同一個穩定參與者 ID 正處於寬限期(頁面重新整理)，取消寬限計時器
// 並回傳 reconnected=true，呼叫端應跳過加入通知。
func (c *Coordinator) Register(sess *Session) (reconnected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	if timer, ok := c.graceTimers[sess.ParticipantID]; ok {
		timer.Stop()
		delete(c.graceTimers, sess.ParticipantID)
		reconnected = true
	}

	c.sessions[sess.ConnectionID] = sess
	conns, ok := c.byParticipant[sess.ParticipantID]
	if !ok {
		conns = make(map[string]bool)
		c.byParticipant[sess.ParticipantID] = conns
	}
	conns[sess.ConnectionID] = true
	c.states[sess.ParticipantID] = StateConnected
	return reconnected
}

// SessionByConnection 取得連線對應的身分
func (c *Coordinator) SessionByConnection(connectionID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[connectionID]
	return sess, ok
}

// StateOf 回傳參與者身分目前的狀態(身分未知時視為 Removed)
func (c *Coordinator) StateOf(participantID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[participantID]
	if !ok {
		return StateRemoved
	}
	return state
}

// Disconnect 處理連線中斷。
// 該身分仍有其他活躍連線(多分頁)時不做任何事；最後一條連線中斷才
// 進入寬限期。重新武裝前一律先取消既有計時器，避免快速斷線重連的
// 循環造成重複移除。
func (c *Coordinator) Disconnect(connectionID string) {
	c.mu.Lock()

	sess, ok := c.sessions[connectionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, connectionID)

	conns := c.byParticipant[sess.ParticipantID]
	delete(conns, connectionID)
	if len(conns) > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.byParticipant, sess.ParticipantID)

	if c.closed {
		c.mu.Unlock()
		return
	}

	if timer, ok := c.graceTimers[sess.ParticipantID]; ok {
		timer.Stop()
	}
	c.states[sess.ParticipantID] = StateGracePeriod
	participantID, roomID, nickname := sess.ParticipantID, sess.RoomID, sess.Nickname
	c.graceTimers[participantID] = time.AfterFunc(c.gracePeriod, func() {
		c.expireGrace(roomID, participantID, nickname)
	})
	c.mu.Unlock()
}

// expireGrace 在寬限期滿時把身分轉為 Removed 並觸發離開回呼。
// 計時器觸發與重連可能競速：狀態已不是 GracePeriod 就什麼都不做，
// 確保離開通知至多發出一次。
func (c *Coordinator) expireGrace(roomID, participantID, nickname string) {
	c.mu.Lock()
	if c.states[participantID] != StateGracePeriod {
		c.mu.Unlock()
		return
	}
	delete(c.graceTimers, participantID)
	delete(c.states, participantID)
	callback := c.onLeave
	c.mu.Unlock()

	if callback != nil {
		callback(roomID, participantID, nickname)
	}
}

// LeaveNow 處理顯式離開：移除連線與身分，不經過寬限期。
// 回傳被移除的身分，供呼叫端立刻廣播離開通知。
func (c *Coordinator) LeaveNow(connectionID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[connectionID]
	if !ok {
		return nil, false
	}
	delete(c.sessions, connectionID)

	conns := c.byParticipant[sess.ParticipantID]
	delete(conns, connectionID)
	if len(conns) > 0 {
		// 同身分還有其他分頁在線上，身分不移除
		return sess, false
	}
	delete(c.byParticipant, sess.ParticipantID)

	if timer, ok := c.graceTimers[sess.ParticipantID]; ok {
		timer.Stop()
		delete(c.graceTimers, sess.ParticipantID)
	}
	delete(c.states, sess.ParticipantID)
	return sess, true
}

// Close 取消所有寬限計時器。關閉後不再登記新連線，也不再觸發離開回呼。
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, timer := range c.graceTimers {
		timer.Stop()
		delete(c.graceTimers, id)
	}
}
