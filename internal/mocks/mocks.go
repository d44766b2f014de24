package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reclaim/internal/models"
	"reclaim/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, recipientID int, scope models.ReadScope) (int64, error) {
	args := m.Called(ctx, recipientID, scope)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteConversation(ctx context.Context, userID, itemID, counterpartID int) (int64, error) {
	args := m.Called(ctx, userID, itemID, counterpartID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) ListForPair(ctx context.Context, itemID, userA, userB, viewerID int) ([]models.Message, error) {
	args := m.Called(ctx, itemID, userA, userB, viewerID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListVisibleForUser(ctx context.Context, userID int) ([]models.Message, error) {
	args := m.Called(ctx, userID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, recipientID int) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) GetProfile(ctx context.Context, userID int) (models.Profile, bool, error) {
	args := m.Called(ctx, userID)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Bool(1), args.Error(2)
}

func (m *UserRepositoryMock) ProvisionUser(ctx context.Context, in models.NewUser) (models.UserWithProfile, error) {
	args := m.Called(ctx, in)
	var out models.UserWithProfile
	if val := args.Get(0); val != nil {
		out = val.(models.UserWithProfile)
	}
	return out, args.Error(1)
}

type ItemRepositoryMock struct {
	mock.Mock
}

func (m *ItemRepositoryMock) GetItem(ctx context.Context, itemID int) (models.Item, error) {
	args := m.Called(ctx, itemID)
	var item models.Item
	if val := args.Get(0); val != nil {
		item = val.(models.Item)
	}
	return item, args.Error(1)
}

func (m *ItemRepositoryMock) BulkItems(ctx context.Context, ids []int) ([]models.Item, error) {
	args := m.Called(ctx, ids)
	var items []models.Item
	if val := args.Get(0); val != nil {
		items = val.([]models.Item)
	}
	return items, args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Broadcast(room string, frame any) (int, error) {
	args := m.Called(room, frame)
	return args.Int(0), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MessageCreated(ctx context.Context, msg models.Message, sender models.User, recipient models.User, item models.Item) {
	m.Called(ctx, msg, sender, recipient, item)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ItemRepository = (*ItemRepositoryMock)(nil)
