package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-chat/backend/ai"
	"go-chat/backend/ai/mock_ai"
	"go-chat/backend/dms"
	"go-chat/backend/messages"
	"go-chat/backend/models"
	"go-chat/backend/rooms"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// testEnv 把閘道和它的依賴組起來，跑在 httptest 伺服器上
type testEnv struct {
	rooms    *rooms.Store
	messages *messages.Store
	dms      *dms.Store
	gateway  *Gateway
	server   *httptest.Server
}

func newTestEnv(t *testing.T, aiClient ai.Client) *testEnv {
	t.Helper()

	env := &testEnv{
		rooms:    rooms.NewStore(),
		messages: messages.NewStore(0),
		dms:      dms.NewStore(),
	}
	env.gateway = NewGateway(env.rooms, env.messages, env.dms, aiClient, NewHub())
	env.server = httptest.NewServer(http.HandlerFunc(env.gateway.ServeWS))

	t.Cleanup(func() {
		env.server.Close()
		env.gateway.Close()
		env.messages.Close()
		env.rooms.Close()
	})
	return env
}

// testClient 是一個測試用的 WebSocket 客戶端
type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (env *testEnv) dial(t *testing.T) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(event string, data any) {
	c.t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(InEvent{Event: event, Data: payload}))
}

// waitFor 讀取事件直到遇到指定名稱，其他事件(參與者列表等)直接略過
func (c *testClient) waitFor(event string) json.RawMessage {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		c.conn.SetReadDeadline(deadline)
		var out struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := c.conn.ReadJSON(&out); err != nil {
			c.t.Fatalf("等待事件 %q 時連線讀取失敗: %v", event, err)
		}
		if out.Event == event {
			return out.Data
		}
	}
}

func (c *testClient) join(roomCode, nickname string) roomJoinedPayload {
	c.t.Helper()
	c.send(EvtJoinRoom, map[string]string{"roomCode": roomCode, "nickname": nickname})
	var joined roomJoinedPayload
	require.NoError(c.t, json.Unmarshal(c.waitFor(EvtRoomJoined), &joined))
	return joined
}

func (c *testClient) expectError(code string) {
	c.t.Helper()
	var payload ErrorPayload
	require.NoError(c.t, json.Unmarshal(c.waitFor(EvtError), &payload))
	assert.Equal(c.t, code, payload.Code)
}

func TestJoinRoomAndBroadcast(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(10)

	alice := env.dial(t)
	joined := alice.join(room.Code, "Alice")
	assert.Equal(t, room.ID, joined.RoomID)
	assert.True(t, joined.IsModerator, "第一位加入者應為版主")
	assert.Len(t, joined.Participants, 1)

	bob := env.dial(t)
	bobJoined := bob.join(room.Code, "Bob")
	assert.False(t, bobJoined.IsModerator)
	// 快照應包含 alice 的加入系統訊息
	assert.NotEmpty(t, bobJoined.Messages)

	// alice 會收到 bob 的加入系統訊息
	var sysMsg models.Message
	require.NoError(t, json.Unmarshal(alice.waitFor(EvtMessageNew), &sysMsg))
	assert.Equal(t, models.MessageTypeSystem, sysMsg.Type)
	assert.Contains(t, sysMsg.Content, "Bob")

	// bob 發訊息，雙方都收到
	bob.send(EvtSendMessage, map[string]string{"content": "大家好"})
	var msg models.Message
	require.NoError(t, json.Unmarshal(alice.waitFor(EvtMessageNew), &msg))
	assert.Equal(t, "大家好", msg.Content)
	assert.Equal(t, models.MessageTypeNormal, msg.Type)
}

func TestJoinValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	c := env.dial(t)
	c.send(EvtJoinRoom, map[string]string{"roomCode": "ABC123", "nickname": "   "})
	c.expectError(models.CodeInvalidNickname)

	// 冒號是保留字元，不能出現在暱稱中
	c.send(EvtJoinRoom, map[string]string{"roomCode": "ABC123", "nickname": "a:b"})
	c.expectError(models.CodeInvalidNickname)

	c.send(EvtJoinRoom, map[string]string{"roomCode": "short", "nickname": "Alice"})
	c.expectError(models.CodeInvalidRoomCode)

	c.send(EvtJoinRoom, map[string]string{"roomCode": "ZZZZZZ", "nickname": "Alice"})
	c.expectError(models.CodeRoomNotFound)
}

func TestJoinRoomFull(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(1)

	alice := env.dial(t)
	alice.join(room.Code, "Alice")

	bob := env.dial(t)
	bob.send(EvtJoinRoom, map[string]string{"roomCode": room.Code, "nickname": "Bob"})
	bob.expectError(models.CodeRoomFull)
}

func TestLockedRoomBlocksNonModerator(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(10)

	mod := env.dial(t)
	mod.join(room.Code, "Mod")
	member := env.dial(t)
	member.join(room.Code, "Member")

	mod.send(EvtLockRoom, nil)
	member.waitFor(EvtRoomLocked)

	// 一般成員在鎖定期間發送被拒，版主不受限
	member.send(EvtSendMessage, map[string]string{"content": "被擋下"})
	member.expectError(models.CodeRoomLocked)

	mod.send(EvtSendMessage, map[string]string{"content": "版主通行"})
	var msg models.Message
	require.NoError(t, json.Unmarshal(member.waitFor(EvtMessageNew), &msg))
	assert.Equal(t, "版主通行", msg.Content)
}

func TestModeratorOnlyOperations(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(10)

	mod := env.dial(t)
	mod.join(room.Code, "Mod")
	member := env.dial(t)
	member.join(room.Code, "Member")

	member.send(EvtLockRoom, nil)
	member.expectError(models.CodeUnauthorized)

	member.send(EvtRegenerateCode, nil)
	member.expectError(models.CodeUnauthorized)

	member.send(EvtClearMessages, map[string]bool{"preserveSystem": true})
	member.expectError(models.CodeUnauthorized)

	member.send(EvtSendFake, map[string]string{"content": "x", "spoofSource": "Mod"})
	member.expectError(models.CodeUnauthorized)

	// 版主重生代碼，全室收到新代碼且舊代碼失效
	mod.send(EvtRegenerateCode, nil)
	var code map[string]string
	require.NoError(t, json.Unmarshal(member.waitFor(EvtRoomCode), &code))
	assert.Len(t, code["code"], rooms.CodeLength)
	_, ok := env.rooms.GetRoomByCode(room.Code)
	assert.False(t, ok)
}

func TestFakeMessageBroadcastOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(10)

	mod := env.dial(t)
	mod.join(room.Code, "Mod")
	member := env.dial(t)
	member.join(room.Code, "Member")

	mod.send(EvtSendFake, map[string]string{"content": "假消息", "spoofSource": "Member"})

	var msg models.Message
	require.NoError(t, json.Unmarshal(member.waitFor(EvtMessageNew), &msg))
	assert.Equal(t, models.MessageTypeFake, msg.Type)
	assert.Equal(t, "假消息", msg.Content)

	// 偽裝消息不落地：歷史中只有系統加入訊息
	for _, m := range env.messages.GetMessages(room.ID) {
		assert.NotEqual(t, models.MessageTypeFake, m.Type)
	}
}

func TestDMFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(10)

	alice := env.dial(t)
	alice.join(room.Code, "Alice")
	bob := env.dial(t)
	bob.join(room.Code, "Bob")

	alice.send(EvtSendDM, map[string]string{"toUsername": "Bob", "content": "悄悄話"})

	var dm models.Message
	require.NoError(t, json.Unmarshal(bob.waitFor(EvtDMNew), &dm))
	assert.Equal(t, "悄悄話", dm.Content)
	assert.Equal(t, "alice", dm.SenderID)

	// 收件者標記已讀，回條送回發送者
	bob.send(EvtMarkDMRead, map[string]string{"messageId": dm.ID})
	var read dmReadPayload
	require.NoError(t, json.Unmarshal(alice.waitFor(EvtDMRead), &read))
	assert.Equal(t, []string{dm.ID}, read.MessageIDs)
	assert.Equal(t, "bob", read.Reader)

	// 只有發送者能刪除
	bob.send(EvtDeleteDM, map[string]string{"messageId": dm.ID})
	bob.expectError(models.CodeUnauthorized)

	alice.send(EvtDeleteDM, map[string]string{"messageId": dm.ID})
	var deleted models.Message
	require.NoError(t, json.Unmarshal(bob.waitFor(EvtDMDeleted), &deleted))
	assert.True(t, deleted.IsDeleted)

	// 收件者名稱走和暱稱一樣的驗證，保留字元被擋下
	alice.send(EvtSendDM, map[string]string{"toUsername": "bo:b", "content": "x"})
	alice.expectError(models.CodeInvalidNickname)
}

func TestAskAIBroadcastsReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAI := mock_ai.NewMockClient(ctrl)
	mockAI.EXPECT().
		Reply(gomock.Any(), gomock.Any()).
		Return("我是 AI 的回覆", nil)

	env := newTestEnv(t, mockAI)
	room, _ := env.rooms.CreateRoom(10)

	alice := env.dial(t)
	alice.join(room.Code, "Alice")
	bob := env.dial(t)
	bob.join(room.Code, "Bob")

	alice.send(EvtAskAI, map[string]string{"content": "你是誰?"})

	// 先收到本人的提問，再收到 AI 回覆
	var question models.Message
	require.NoError(t, json.Unmarshal(bob.waitFor(EvtMessageNew), &question))
	assert.Equal(t, "你是誰?", question.Content)

	var reply models.Message
	require.NoError(t, json.Unmarshal(bob.waitFor(EvtMessageNew), &reply))
	assert.Equal(t, models.MessageTypeAI, reply.Type)
	assert.Equal(t, "我是 AI 的回覆", reply.Content)
	assert.Equal(t, "AI 夥伴", reply.SenderName)
}

func TestReconnectWithinGraceSkipsJoinNotice(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gateway.Presence().SetGracePeriod(500 * time.Millisecond)
	room, _ := env.rooms.CreateRoom(10)

	watcher := env.dial(t)
	watcher.join(room.Code, "Watcher")

	alice := env.dial(t)
	alice.join(room.Code, "Alice")
	watcher.waitFor(EvtMessageNew) // alice 的加入通知

	// 模擬頁面重新整理：直接斷線再以同一暱稱重連
	alice.conn.Close()
	alice2 := env.dial(t)
	alice2.join(room.Code, "Alice")

	// 寬限期內重連不應產生加入或離開通知
	watcher.send(EvtSendMessage, map[string]string{"content": "探測"})
	var msg models.Message
	require.NoError(t, json.Unmarshal(watcher.waitFor(EvtMessageNew), &msg))
	assert.Equal(t, "探測", msg.Content, "重連不應插入任何系統訊息")
	assert.Equal(t, 2, env.rooms.ParticipantCount(room.ID))
}

func TestDisconnectGraceExpiresToLeave(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gateway.Presence().SetGracePeriod(50 * time.Millisecond)
	room, _ := env.rooms.CreateRoom(10)

	watcher := env.dial(t)
	watcher.join(room.Code, "Watcher")

	alice := env.dial(t)
	alice.join(room.Code, "Alice")
	watcher.waitFor(EvtMessageNew)

	alice.conn.Close()

	// 寬限期滿後恰好一則離開通知
	var sysMsg models.Message
	require.NoError(t, json.Unmarshal(watcher.waitFor(EvtMessageNew), &sysMsg))
	assert.Equal(t, models.MessageTypeSystem, sysMsg.Type)
	assert.Contains(t, sysMsg.Content, "已離開聊天室")
	assert.Equal(t, 1, env.rooms.ParticipantCount(room.ID))
}

func TestSwitchRoomDetachesFromOldRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	roomA, _ := env.rooms.CreateRoom(10)
	roomB, _ := env.rooms.CreateRoom(10)

	watcher := env.dial(t)
	watcher.join(roomA.Code, "Watcher")

	alice := env.dial(t)
	alice.join(roomA.Code, "Alice")
	watcher.waitFor(EvtMessageNew) // alice 的加入通知

	// 同一條連線直接加入另一間聊天室，舊聊天室要先走完整的離開流程
	alice.join(roomB.Code, "Alice")
	alice.waitFor(EvtMessageNew) // 自己在新聊天室的加入通知

	var leave models.Message
	require.NoError(t, json.Unmarshal(watcher.waitFor(EvtMessageNew), &leave))
	assert.Equal(t, models.MessageTypeSystem, leave.Type)
	assert.Contains(t, leave.Content, "已離開聊天室")
	assert.Equal(t, 1, env.rooms.ParticipantCount(roomA.ID))
	assert.Equal(t, 1, env.rooms.ParticipantCount(roomB.ID))

	// 切換後不再收到舊聊天室的廣播
	watcher.send(EvtSendMessage, map[string]string{"content": "舊房訊息"})
	watcher.waitFor(EvtMessageNew)
	alice.send(EvtSendMessage, map[string]string{"content": "新房訊息"})
	var msg models.Message
	require.NoError(t, json.Unmarshal(alice.waitFor(EvtMessageNew), &msg))
	assert.Equal(t, "新房訊息", msg.Content)
}

func TestPollOverWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(10)

	alice := env.dial(t)
	alice.join(room.Code, "Alice")
	bob := env.dial(t)
	bob.join(room.Code, "Bob")

	alice.send(EvtSendPoll, map[string]any{
		"question": "午餐吃什麼?",
		"options":  []string{"拉麵", "咖哩"},
	})

	var poll models.Message
	require.NoError(t, json.Unmarshal(bob.waitFor(EvtMessageNew), &poll))
	require.NotNil(t, poll.Poll)
	require.Len(t, poll.Poll.Options, 2)

	bob.send(EvtVotePoll, map[string]string{"messageId": poll.ID, "optionId": poll.Poll.Options[0].ID})
	var voted models.Message
	require.NoError(t, json.Unmarshal(alice.waitFor(EvtPollVoted), &voted))
	assert.Len(t, voted.Poll.Options[0].Votes, 1)

	alice.send(EvtClosePoll, map[string]string{"messageId": poll.ID})
	bob.waitFor(EvtPollClosed)

	bob.send(EvtVotePoll, map[string]string{"messageId": poll.ID, "optionId": poll.Poll.Options[1].ID})
	bob.expectError(models.CodePollClosed)
}

func TestInvalidPollRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	room, _ := env.rooms.CreateRoom(10)

	alice := env.dial(t)
	alice.join(room.Code, "Alice")

	alice.send(EvtSendPoll, map[string]any{"question": "?", "options": []string{"唯一"}})
	alice.expectError(models.CodeInvalidPoll)
}
