package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaim/internal/models"
)

func TestConversationKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "7_3_9", ConversationKey(7, 9, 3))
	assert.Equal(t, ConversationKey(7, 3, 9), ConversationKey(7, 9, 3))
	assert.Equal(t, "chat_7_3_9", RoomName(ConversationKey(7, 3, 9)))
}

func TestParseConversationKey(t *testing.T) {
	item, a, b, err := ParseConversationKey("7_3_9")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 3, 9}, []int{item, a, b})

	for _, bad := range []string{"", "7_3", "7_9_3", "7_3_3", "x_3_9", "7_0_9", "7_3_9_1"} {
		_, _, _, err := ParseConversationKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestGroupConversationsKeepsLatestPerPair(t *testing.T) {
	at := func(min int) time.Time { return baseTime.Add(time.Duration(min) * time.Minute) }
	msgs := []models.Message{
		{ID: 1, SenderID: 2, RecipientID: 1, ItemID: 10, Content: "old", CreatedAt: at(1)},
		{ID: 2, SenderID: 1, RecipientID: 2, ItemID: 10, Content: "reply", CreatedAt: at(3), IsRead: false},
		{ID: 3, SenderID: 3, RecipientID: 1, ItemID: 10, Content: "other finder", CreatedAt: at(2)},
		{ID: 4, SenderID: 2, RecipientID: 1, ItemID: 11, Content: "different item", CreatedAt: at(5)},
		{ID: 5, SenderID: 2, RecipientID: 1, ItemID: 10, Content: "hidden", CreatedAt: at(9), DeletedByRecipient: true},
	}

	got := groupConversations(1, msgs)
	require.Len(t, got, 3)

	assert.Equal(t, "different item", got[0].LastMessage.Content)
	assert.Equal(t, "11_1_2", got[0].Key)
	assert.Equal(t, "reply", got[1].LastMessage.Content)
	assert.Equal(t, 2, got[1].CounterpartID)
	assert.Equal(t, 1, got[1].UnreadCount)
	assert.Equal(t, "other finder", got[2].LastMessage.Content)
	assert.Equal(t, 3, got[2].CounterpartID)
}

func TestGroupConversationsTieBreaksOnMessageID(t *testing.T) {
	same := baseTime
	msgs := []models.Message{
		{ID: 8, SenderID: 2, RecipientID: 1, ItemID: 10, CreatedAt: same},
		{ID: 9, SenderID: 3, RecipientID: 1, ItemID: 10, CreatedAt: same},
		{ID: 7, SenderID: 4, RecipientID: 1, ItemID: 10, CreatedAt: same},
	}

	for i := 0; i < 5; i++ {
		got := groupConversations(1, msgs)
		require.Len(t, got, 3)
		assert.Equal(t, []int{3, 2, 4}, []int{got[0].CounterpartID, got[1].CounterpartID, got[2].CounterpartID})
	}
}

func TestGroupConversationsEmpty(t *testing.T) {
	got := groupConversations(1, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
