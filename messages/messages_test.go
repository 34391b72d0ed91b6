package messages

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go-chat/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMessageAssignsUniqueIDs(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)
		assert.False(t, seen[msg.ID], "訊息 ID 不應重複")
		seen[msg.ID] = true
		assert.False(t, msg.Timestamp.IsZero())
	}
	assert.Len(t, store.GetMessages("room1"), 100)
}

func TestMessageExpiresSilently(t *testing.T) {
	store := NewStore(50 * time.Millisecond)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "ephemeral", models.MessageTypeNormal)
	assert.NotNil(t, msg.ExpiresAt)
	assert.Len(t, store.GetMessages("room1"), 1)

	time.Sleep(120 * time.Millisecond)

	// 到期後訊息無痕消失：不是軟刪除，是完全查不到
	assert.Empty(t, store.GetMessages("room1"))
	_, ok := store.GetMessage(msg.ID)
	assert.False(t, ok)
}

func TestReadPathFiltersExpiredBeforeTimerFires(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)

	// 到期時間設在過去：即使計時器還沒觸發，讀取也查不到
	past := time.Now().Add(-time.Second)
	store.mu.Lock()
	store.messages[msg.ID].ExpiresAt = &past
	store.mu.Unlock()

	assert.Empty(t, store.GetMessages("room1"))
	_, ok := store.GetMessage(msg.ID)
	assert.False(t, ok)
}

func TestSetExpiryRearmIsIdempotent(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)

	// 快速重排多次，最後一次生效
	for i := 0; i < 5; i++ {
		at := time.Now().Add(time.Hour)
		store.SetExpiry(msg.ID, &at)
	}
	at := time.Now().Add(40 * time.Millisecond)
	store.SetExpiry(msg.ID, &at)

	time.Sleep(100 * time.Millisecond)
	_, ok := store.GetMessage(msg.ID)
	assert.False(t, ok, "最後設定的到期時間應生效")
}

func TestSetExpiryNilCancelsExpiration(t *testing.T) {
	store := NewStore(40 * time.Millisecond)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)
	store.SetExpiry(msg.ID, nil)

	time.Sleep(100 * time.Millisecond)
	_, ok := store.GetMessage(msg.ID)
	assert.True(t, ok, "取消到期後訊息應永久保留")
}

func TestEditMessageOwnerOnly(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "original", models.MessageTypeNormal)

	_, err := store.EditMessage(msg.ID, "hacked", "u2")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	edited, err := store.EditMessage(msg.ID, "updated", "u1")
	assert.NoError(t, err)
	assert.Equal(t, "updated", edited.Content)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt)
}

func TestEditWindowFromOriginalTimestamp(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "old", models.MessageTypeNormal)

	// 把時間戳調到時間窗之外，模擬 48 小時後
	store.mu.Lock()
	store.messages[msg.ID].Timestamp = time.Now().Add(-EditWindow - time.Minute)
	store.mu.Unlock()

	_, err := store.EditMessage(msg.ID, "too late", "u1")
	assert.ErrorIs(t, err, models.ErrEditWindowExpired)
}

func TestDeleteMessagePermissions(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "hello", models.MessageTypeNormal)

	// 非發送者也非版主
	_, err := store.DeleteMessage(msg.ID, "u2", false)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// 版主可刪除他人訊息
	deleted, err := store.DeleteMessage(msg.ID, "u2", true)
	assert.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, DeletedPlaceholder, deleted.Content)

	// 顯式刪除後記錄仍在(與到期的無痕移除不同)
	got, ok := store.GetMessage(msg.ID)
	assert.True(t, ok)
	assert.True(t, got.IsDeleted)
}

func TestReactions(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)

	_, err := store.AddReaction(msg.ID, "👍", "u1")
	assert.NoError(t, err)
	// 同一人重複按同一 emoji 是冪等操作
	_, err = store.AddReaction(msg.ID, "👍", "u1")
	assert.NoError(t, err)
	store.AddReaction(msg.ID, "👍", "u2")
	store.AddReaction(msg.ID, "❤️", "u1")

	got, _ := store.GetMessage(msg.ID)
	assert.Len(t, got.Reactions["👍"], 2)
	assert.Len(t, got.Reactions["❤️"], 1)

	// 最後一人移除後整組消失
	store.RemoveReaction(msg.ID, "❤️", "u1")
	got, _ = store.GetMessage(msg.ID)
	_, exists := got.Reactions["❤️"]
	assert.False(t, exists, "清空的反應組應整組移除")
	assert.Len(t, got.Reactions["👍"], 2)
}

func TestReturnedMessageIsDetachedSnapshot(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)

	// 後續操作不會改動先前交出去的訊息
	store.AddReaction(msg.ID, "👍", "u2")
	assert.Empty(t, msg.Reactions)

	// 反向亦然：改動交出去的訊息不影響儲存內容
	msg.Content = "改掉"
	got, _ := store.GetMessage(msg.ID)
	assert.Equal(t, "hi", got.Content)
	assert.Len(t, got.Reactions["👍"], 1)
}

func TestSerializeWhileReactionsMutate(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			store.AddReaction(msg.ID, "👍", fmt.Sprintf("u%d", i))
		}
	}()

	// 交出去的訊息是快照，序列化和進行中的反應寫入互不干擾
	for i := 0; i < 200; i++ {
		got, ok := store.GetMessage(msg.ID)
		require.True(t, ok)
		_, err := json.Marshal(got)
		require.NoError(t, err)
	}
	<-done
}

func TestPinRequiresModerator(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "important", models.MessageTypeNormal)

	// 發送者身分不授予釘選權
	_, err := store.PinMessage(msg.ID, "u1", false)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	pinned, err := store.PinMessage(msg.ID, "mod", true)
	assert.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.Len(t, store.GetPinnedMessages("room1"), 1)

	_, err = store.UnpinMessage(msg.ID, "mod", true)
	assert.NoError(t, err)
	assert.Empty(t, store.GetPinnedMessages("room1"))
}

func TestClearMessagesPreserveSystem(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	store.CreateMessage("room1", "u1", "alice", "hi", models.MessageTypeNormal)
	store.CreateMessage("room1", "系統訊息", "系統訊息", "alice 加入了聊天室", models.MessageTypeSystem)
	store.CreateMessage("room1", "u2", "bob", "yo", models.MessageTypeNormal)

	store.ClearMessages("room1", true)

	remaining := store.GetMessages("room1")
	assert.Len(t, remaining, 1)
	assert.Equal(t, models.MessageTypeSystem, remaining[0].Type)

	store.ClearMessages("room1", false)
	assert.Empty(t, store.GetMessages("room1"))
}

func TestFakeMessageNeverStored(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.InjectFakeMessage("room1", "看起來像真的", "alice")
	assert.Equal(t, models.MessageTypeFake, msg.Type)
	assert.NotEmpty(t, msg.ID)

	// 偽裝消息只廣播、不落地
	assert.Empty(t, store.GetMessages("room1"))
	_, ok := store.GetMessage(msg.ID)
	assert.False(t, ok)
}

func TestCreateFileMessage(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateFileMessage("room1", "u1", "alice", "/uploads/x.png", "photo.png", 2048, models.MessageTypeImage)
	assert.Equal(t, models.MessageTypeImage, msg.Type)
	assert.Equal(t, "/uploads/x.png", msg.FileURL)
	assert.Equal(t, "photo.png", msg.FileName)
	assert.EqualValues(t, 2048, msg.FileSize)
	assert.Len(t, store.GetMessages("room1"), 1)
}
