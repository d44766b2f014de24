package inbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"reclaim/internal/mocks"
	"reclaim/internal/models"
	"reclaim/internal/repositories"
)

var baseTime = time.Date(2024, time.March, 5, 14, 0, 0, 0, time.UTC)

// memStore is an in-memory MessageRepository with the same flag semantics as
// the Postgres one. Each created message is one second newer than the last.
type memStore struct {
	mu   sync.Mutex
	msgs []models.Message
	next int64
}

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) Create(_ context.Context, in models.NewMessage) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	msg := models.Message{
		ID:          s.next,
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		ItemID:      in.ItemID,
		Content:     in.Content,
		ImagePath:   in.ImagePath,
		CreatedAt:   baseTime.Add(time.Duration(s.next) * time.Second),
	}
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *memStore) MarkRead(_ context.Context, recipientID int, scope models.ReadScope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.msgs {
		m := &s.msgs[i]
		if m.RecipientID != recipientID || m.IsRead {
			continue
		}
		if scope.ItemID != 0 && m.ItemID != scope.ItemID {
			continue
		}
		if scope.SenderID != 0 && m.SenderID != scope.SenderID {
			continue
		}
		if !scope.UpTo.IsZero() && m.CreatedAt.After(scope.UpTo) {
			continue
		}
		m.IsRead = true
		n++
	}
	return n, nil
}

func (s *memStore) SoftDeleteConversation(_ context.Context, userID, itemID, counterpartID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.msgs {
		m := &s.msgs[i]
		if m.ItemID != itemID {
			continue
		}
		switch {
		case m.SenderID == userID && m.RecipientID == counterpartID && !m.DeletedBySender:
			m.DeletedBySender = true
			n++
		case m.RecipientID == userID && m.SenderID == counterpartID && !m.DeletedByRecipient:
			m.DeletedByRecipient = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListForPair(_ context.Context, itemID, userA, userB, viewerID int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for _, m := range s.msgs {
		if m.ItemID != itemID || !m.VisibleTo(viewerID) {
			continue
		}
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			out = append(out, m)
		}
	}
	sortAscending(out)
	return out, nil
}

func (s *memStore) ListVisibleForUser(_ context.Context, userID int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for _, m := range s.msgs {
		if m.VisibleTo(userID) {
			out = append(out, m)
		}
	}
	sortAscending(out)
	return out, nil
}

func (s *memStore) CountUnread(_ context.Context, recipientID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.RecipientID == recipientID && !m.IsRead && !m.DeletedByRecipient {
			n++
		}
	}
	return n, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func sortAscending(msgs []models.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

var _ repositories.MessageRepository = (*memStore)(nil)

const (
	ownerID   = 1
	finderID  = 2
	privateID = 3
	walletID  = 10
	missingID = 404
)

var (
	testUsers = []models.User{
		{ID: ownerID, Username: "owner", DisplayName: "Olga Owner"},
		{ID: finderID, Username: "finder"},
		{ID: privateID, Username: "private"},
	}
	testItems = []models.Item{
		{ID: walletID, Title: "Lost wallet", Status: models.ItemLost, ReportedBy: ownerID, PhotoURL: "/media/wallet.jpg"},
	}
)

// newDirectory returns user and item mocks backed by testUsers and testItems.
// The private user refuses messages.
func newDirectory() (*mocks.UserRepositoryMock, *mocks.ItemRepositoryMock) {
	users := new(mocks.UserRepositoryMock)
	for _, u := range testUsers {
		users.On("GetUser", mock.Anything, u.ID).Return(u, nil).Maybe()
		users.On("GetProfile", mock.Anything, u.ID).
			Return(models.Profile{UserID: u.ID, AllowMessages: u.ID != privateID}, true, nil).Maybe()
	}
	users.On("GetUser", mock.Anything, missingID).Return(models.User{}, repositories.ErrUserNotFound).Maybe()
	users.On("BulkUsers", mock.Anything, mock.Anything).Return(testUsers, nil).Maybe()

	items := new(mocks.ItemRepositoryMock)
	for _, it := range testItems {
		items.On("GetItem", mock.Anything, it.ID).Return(it, nil).Maybe()
	}
	items.On("GetItem", mock.Anything, missingID).Return(models.Item{}, repositories.ErrItemNotFound).Maybe()
	items.On("BulkItems", mock.Anything, mock.Anything).Return(testItems, nil).Maybe()

	return users, items
}
