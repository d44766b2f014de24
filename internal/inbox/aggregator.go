package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"reclaim/internal/models"
	"reclaim/internal/repositories"
)

// ConversationKey is the canonical identifier of the conversation between a
// and b about itemID. It does not depend on argument order.
func ConversationKey(itemID, a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d_%d", itemID, a, b)
}

// ParseConversationKey reverses ConversationKey.
func ParseConversationKey(key string) (itemID, a, b int, err error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed conversation id %q", key)
	}
	ids := make([]int, 3)
	for i, p := range parts {
		ids[i], err = strconv.Atoi(p)
		if err != nil || ids[i] <= 0 {
			return 0, 0, 0, fmt.Errorf("malformed conversation id %q", key)
		}
	}
	if ids[1] >= ids[2] {
		return 0, 0, 0, fmt.Errorf("malformed conversation id %q", key)
	}
	return ids[0], ids[1], ids[2], nil
}

// RoomName is the broadcast room of a conversation.
func RoomName(key string) string {
	return "chat_" + key
}

// Aggregator derives conversations from stored messages.
type Aggregator struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	items    repositories.ItemRepository
}

// NewAggregator builds an Aggregator.
func NewAggregator(messages repositories.MessageRepository, users repositories.UserRepository, items repositories.ItemRepository) *Aggregator {
	return &Aggregator{messages: messages, users: users, items: items}
}

// ListConversations returns the user's conversations, most recent first.
func (a *Aggregator) ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	msgs, err := a.messages.ListVisibleForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	summaries := groupConversations(userID, msgs)
	if len(summaries) == 0 {
		return summaries, nil
	}
	if err := a.decorate(ctx, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// groupConversations buckets msgs by (item, counterpart), keeps the latest
// message of each bucket and orders buckets by that message, newest first.
// Ties on timestamp fall back to the higher message id.
func groupConversations(userID int, msgs []models.Message) []models.ConversationSummary {
	type groupKey struct{ item, counterpart int }

	byKey := map[groupKey]*models.ConversationSummary{}
	for _, m := range msgs {
		if !m.VisibleTo(userID) {
			continue
		}
		k := groupKey{item: m.ItemID, counterpart: m.Counterpart(userID)}
		s, ok := byKey[k]
		if !ok {
			s = &models.ConversationSummary{
				Key:           ConversationKey(k.item, userID, k.counterpart),
				ItemID:        k.item,
				CounterpartID: k.counterpart,
				LastMessage:   m,
				LastMessageAt: m.CreatedAt,
			}
			byKey[k] = s
		} else if newer(m, s.LastMessage) {
			s.LastMessage = m
			s.LastMessageAt = m.CreatedAt
		}
		if m.RecipientID == userID && !m.IsRead {
			s.UnreadCount++
		}
	}

	out := make([]models.ConversationSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].LastMessage, out[j].LastMessage)
	})
	return out
}

func newer(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (a *Aggregator) decorate(ctx context.Context, summaries []models.ConversationSummary) error {
	userSet := map[int]struct{}{}
	itemSet := map[int]struct{}{}
	userIDs := make([]int, 0, len(summaries))
	itemIDs := make([]int, 0, len(summaries))
	for _, s := range summaries {
		if _, ok := userSet[s.CounterpartID]; !ok {
			userSet[s.CounterpartID] = struct{}{}
			userIDs = append(userIDs, s.CounterpartID)
		}
		if _, ok := itemSet[s.ItemID]; !ok {
			itemSet[s.ItemID] = struct{}{}
			itemIDs = append(itemIDs, s.ItemID)
		}
	}

	users, err := a.users.BulkUsers(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	items, err := a.items.BulkItems(ctx, itemIDs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	userByID := make(map[int]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	itemByID := make(map[int]models.Item, len(items))
	for _, it := range items {
		itemByID[it.ID] = it
	}

	for i := range summaries {
		if u, ok := userByID[summaries[i].CounterpartID]; ok {
			summaries[i].CounterpartUsername = u.Username
			summaries[i].CounterpartName = u.Name()
			summaries[i].CounterpartAvatarURL = u.AvatarURL
		}
		if it, ok := itemByID[summaries[i].ItemID]; ok {
			summaries[i].ItemTitle = it.Title
			summaries[i].ItemPhoto = it.PhotoURL
		}
	}
	return nil
}

// ResolveActive loads one conversation with its metadata. A pair with no
// messages yet still resolves to an empty thread as long as both the item and
// the counterpart exist.
func (a *Aggregator) ResolveActive(ctx context.Context, userID, itemID, counterpartID int) (models.ConversationDetail, error) {
	if counterpartID == userID {
		verr := &ValidationError{}
		verr.add("recipient_id", "cannot open a conversation with yourself")
		return models.ConversationDetail{}, verr
	}

	item, err := a.items.GetItem(ctx, itemID)
	if err != nil {
		return models.ConversationDetail{}, lookupError(err)
	}
	counterpart, err := a.users.GetUser(ctx, counterpartID)
	if err != nil {
		return models.ConversationDetail{}, lookupError(err)
	}

	msgs, err := a.messages.ListForPair(ctx, itemID, userID, counterpartID, userID)
	if err != nil {
		return models.ConversationDetail{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return models.ConversationDetail{
		Key:         ConversationKey(itemID, userID, counterpartID),
		Item:        item,
		Counterpart: counterpart,
		Messages:    msgs,
	}, nil
}

func lookupError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrItemNotFound), errors.Is(err, repositories.ErrUserNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}
