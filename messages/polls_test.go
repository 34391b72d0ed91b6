package messages

import (
	"testing"

	"go-chat/backend/models"

	"github.com/stretchr/testify/assert"
)

func TestCreatePollValidation(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	_, err := store.CreatePollMessage("room1", "u1", "alice", "  ", []string{"a", "b"}, false)
	assert.ErrorIs(t, err, models.ErrInvalidPoll, "空問題")

	_, err = store.CreatePollMessage("room1", "u1", "alice", "午餐吃什麼?", []string{"only"}, false)
	assert.ErrorIs(t, err, models.ErrInvalidPoll, "選項少於兩個")

	_, err = store.CreatePollMessage("room1", "u1", "alice", "午餐吃什麼?", []string{"a", " "}, false)
	assert.ErrorIs(t, err, models.ErrInvalidPoll, "空選項")

	msg, err := store.CreatePollMessage("room1", "u1", "alice", "午餐吃什麼?", []string{"拉麵", "咖哩"}, false)
	assert.NoError(t, err)
	assert.Equal(t, models.MessageTypePoll, msg.Type)
	assert.Len(t, msg.Poll.Options, 2)
	assert.NotEqual(t, msg.Poll.Options[0].ID, msg.Poll.Options[1].ID)
}

// findOption 依選項 ID 從投票消息中找出選項
func findOption(t *testing.T, msg *models.Message, optionID string) *models.PollOption {
	t.Helper()
	for _, opt := range msg.Poll.Options {
		if opt.ID == optionID {
			return opt
		}
	}
	t.Fatalf("找不到選項 %s", optionID)
	return nil
}

func TestVotePollSingleChoiceReplaces(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg, _ := store.CreatePollMessage("room1", "u1", "alice", "午餐吃什麼?", []string{"拉麵", "咖哩"}, false)
	idA, idB := msg.Poll.Options[0].ID, msg.Poll.Options[1].ID

	voted, err := store.VotePoll(msg.ID, idA, "u2")
	assert.NoError(t, err)
	assert.Equal(t, []string{"u2"}, findOption(t, voted, idA).Votes)

	// 單選：改投另一選項時舊票被移走，任何時點總票數不超過一票
	voted, err = store.VotePoll(msg.ID, idB, "u2")
	assert.NoError(t, err)
	assert.Empty(t, findOption(t, voted, idA).Votes)
	assert.Equal(t, []string{"u2"}, findOption(t, voted, idB).Votes)

	// 重複投同一選項為冪等
	voted, err = store.VotePoll(msg.ID, idB, "u2")
	assert.NoError(t, err)
	assert.Equal(t, []string{"u2"}, findOption(t, voted, idB).Votes)
}

func TestVotePollAllowMultiple(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg, _ := store.CreatePollMessage("room1", "u1", "alice", "想去哪些地方?", []string{"山", "海", "城市"}, true)
	idA, idB := msg.Poll.Options[0].ID, msg.Poll.Options[1].ID

	store.VotePoll(msg.ID, idA, "u2")
	voted, err := store.VotePoll(msg.ID, idB, "u2")
	assert.NoError(t, err)

	// 多選：跨選項互不影響
	assert.Equal(t, []string{"u2"}, findOption(t, voted, idA).Votes)
	assert.Equal(t, []string{"u2"}, findOption(t, voted, idB).Votes)
}

func TestVoteUnknownOption(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg, _ := store.CreatePollMessage("room1", "u1", "alice", "?", []string{"a", "b"}, false)
	_, err := store.VotePoll(msg.ID, "no-such-option", "u2")
	assert.ErrorIs(t, err, models.ErrInvalidPoll)
}

func TestClosePoll(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg, _ := store.CreatePollMessage("room1", "u1", "alice", "?", []string{"a", "b"}, false)

	// 非建立者也非版主不能關閉
	_, err := store.ClosePoll(msg.ID, "u2", false)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = store.ClosePoll(msg.ID, "u1", false)
	assert.NoError(t, err)

	// 關閉後的投票一律被拒
	_, err = store.VotePoll(msg.ID, msg.Poll.Options[0].ID, "u3")
	assert.ErrorIs(t, err, models.ErrPollClosed)
}

func TestVoteNonPollMessage(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	msg := store.CreateMessage("room1", "u1", "alice", "not a poll", models.MessageTypeNormal)
	_, err := store.VotePoll(msg.ID, "x", "u2")
	assert.ErrorIs(t, err, models.ErrMessageNotFound)
}
