package inbox

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	"reclaim/internal/models"
	"reclaim/internal/observability"
	"reclaim/internal/repositories"
)

const maxContentRunes = 4000

// Broadcaster fans a frame out to the live subscribers of a room.
type Broadcaster interface {
	Broadcast(room string, frame any) (int, error)
}

// Notifier dispatches fire-and-forget notifications about new messages.
type Notifier interface {
	MessageCreated(ctx context.Context, msg models.Message, sender models.User, recipient models.User, item models.Item)
}

// Auditor records user actions that change what a user sees.
type Auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *int64)
}

// Target selects one conversation of the viewer.
type Target struct {
	ItemID        int
	CounterpartID int
}

// SendInput is a message submission from HTTP or websocket.
type SendInput struct {
	SenderID    int
	RecipientID int
	ItemID      int
	Content     string
	ImagePath   *string
	Source      string
}

// Sent is a stored message together with the frame that was broadcast for it.
type Sent struct {
	Message models.Message
	Frame   models.OutboundFrame
	Room    string
}

// Service orchestrates message submission, inbox views and archiving.
type Service struct {
	messages    repositories.MessageRepository
	users       repositories.UserRepository
	items       repositories.ItemRepository
	aggregator  *Aggregator
	broadcaster Broadcaster
	notifier    Notifier
	auditor     Auditor
}

// NewService wires a Service. notifier and auditor may be nil.
func NewService(messages repositories.MessageRepository, users repositories.UserRepository, items repositories.ItemRepository, broadcaster Broadcaster, notifier Notifier, auditor Auditor) *Service {
	return &Service{
		messages:    messages,
		users:       users,
		items:       items,
		aggregator:  NewAggregator(messages, users, items),
		broadcaster: broadcaster,
		notifier:    notifier,
		auditor:     auditor,
	}
}

// Aggregator exposes the read side.
func (s *Service) Aggregator() *Aggregator {
	return s.aggregator
}

func validateSend(in SendInput) error {
	verr := &ValidationError{}
	if in.SenderID <= 0 {
		verr.add("sender_id", "sender is required")
	}
	if in.RecipientID <= 0 {
		verr.add("recipient_id", "recipient is required")
	}
	if in.ItemID <= 0 {
		verr.add("item_id", "item is required")
	}
	if in.SenderID > 0 && in.SenderID == in.RecipientID {
		verr.add("recipient_id", "cannot message yourself")
	}
	hasImage := in.ImagePath != nil && strings.TrimSpace(*in.ImagePath) != ""
	if strings.TrimSpace(in.Content) == "" && !hasImage {
		verr.add("message", "message text or image is required")
	}
	if !utf8.ValidString(in.Content) || strings.ContainsRune(in.Content, 0) {
		verr.add("message", "must be valid UTF-8 text")
	} else if utf8.RuneCountInString(in.Content) > maxContentRunes {
		verr.add("message", fmt.Sprintf("message exceeds %d characters", maxContentRunes))
	}
	return verr.orNil()
}

// Send validates, persists and then publishes a message. Nothing is published
// when persistence fails; publish and notification failures are only logged.
func (s *Service) Send(ctx context.Context, in SendInput) (Sent, error) {
	if err := validateSend(in); err != nil {
		return Sent{}, err
	}

	item, err := s.items.GetItem(ctx, in.ItemID)
	if err != nil {
		return Sent{}, lookupError(err)
	}
	sender, err := s.users.GetUser(ctx, in.SenderID)
	if err != nil {
		return Sent{}, lookupError(err)
	}
	recipient, err := s.users.GetUser(ctx, in.RecipientID)
	if err != nil {
		return Sent{}, lookupError(err)
	}
	profile, found, err := s.users.GetProfile(ctx, recipient.ID)
	if err != nil {
		return Sent{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if found && !profile.AllowMessages {
		return Sent{}, fmt.Errorf("%w: %s does not accept messages", ErrPermissionDenied, recipient.Username)
	}

	var image *string
	if in.ImagePath != nil && strings.TrimSpace(*in.ImagePath) != "" {
		image = in.ImagePath
	}
	msg, err := s.messages.Create(ctx, models.NewMessage{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		ItemID:      item.ID,
		Content:     strings.TrimSpace(in.Content),
		ImagePath:   image,
	})
	if err != nil {
		return Sent{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	observability.IncMessagesCreated(in.Source)

	sent := Sent{
		Message: msg,
		Frame:   FrameFor(msg, sender),
		Room:    RoomName(ConversationKey(item.ID, sender.ID, recipient.ID)),
	}

	if s.broadcaster != nil {
		delivered, err := s.broadcaster.Broadcast(sent.Room, sent.Frame)
		if err != nil {
			observability.IncBroadcastFailure()
			log.Printf("broadcast failed room=%s message_id=%d: %v", sent.Room, msg.ID, err)
		} else if delivered == 0 {
			log.Printf("broadcast room=%s message_id=%d: no live subscribers", sent.Room, msg.ID)
		}
	}
	if s.notifier != nil {
		s.notifier.MessageCreated(ctx, msg, sender, recipient, item)
	}

	return sent, nil
}

// FrameFor builds the outbound websocket frame of a stored message.
func FrameFor(msg models.Message, sender models.User) models.OutboundFrame {
	return models.OutboundFrame{
		Message:        msg.Content,
		SenderID:       msg.SenderID,
		SenderUsername: sender.Username,
		Timestamp:      msg.CreatedAt.UTC().Format(models.TimestampLayout),
		MessageID:      msg.ID,
		Image:          msg.ImagePath,
	}
}

// View builds the inbox page for userID.
//
// With a target the thread is resolved (possibly empty) and, when it has
// messages, everything addressed to the viewer in it is marked read before
// the sidebar is aggregated. Without a target the most recent conversation is
// shown as active and nothing is marked read.
func (s *Service) View(ctx context.Context, userID int, target *Target) (models.InboxView, error) {
	var active *models.ConversationDetail

	if target != nil {
		detail, err := s.aggregator.ResolveActive(ctx, userID, target.ItemID, target.CounterpartID)
		if err != nil {
			return models.InboxView{}, err
		}
		if !detail.Empty() {
			if err := s.markThreadRead(ctx, userID, &detail); err != nil {
				return models.InboxView{}, err
			}
		}
		active = &detail
	}

	conversations, err := s.aggregator.ListConversations(ctx, userID)
	if err != nil {
		return models.InboxView{}, err
	}

	if active == nil && len(conversations) > 0 {
		latest := conversations[0]
		detail, err := s.aggregator.ResolveActive(ctx, userID, latest.ItemID, latest.CounterpartID)
		if err != nil {
			return models.InboxView{}, err
		}
		active = &detail
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return models.InboxView{}, err
	}

	return models.InboxView{Conversations: conversations, Active: active, UnreadCount: unread}, nil
}

func (s *Service) markThreadRead(ctx context.Context, userID int, detail *models.ConversationDetail) error {
	upTo := detail.Messages[len(detail.Messages)-1].CreatedAt
	if _, err := s.messages.MarkRead(ctx, userID, models.ReadScope{
		ItemID:   detail.Item.ID,
		SenderID: detail.Counterpart.ID,
		UpTo:     upTo,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	for i := range detail.Messages {
		m := &detail.Messages[i]
		if m.RecipientID == userID && !m.CreatedAt.After(upTo) {
			m.IsRead = true
		}
	}
	return nil
}

// Archive hides the conversation from userID only and returns how many
// messages were newly hidden. Repeating it archives nothing more.
func (s *Service) Archive(ctx context.Context, userID, itemID, counterpartID int, requestID string) (int64, error) {
	verr := &ValidationError{}
	if itemID <= 0 {
		verr.add("item_id", "item_id is required")
	}
	if counterpartID <= 0 {
		verr.add("recipient_id", "recipient_id is required")
	}
	if err := verr.orNil(); err != nil {
		return 0, err
	}

	if _, err := s.items.GetItem(ctx, itemID); err != nil {
		return 0, lookupError(err)
	}
	if _, err := s.users.GetUser(ctx, counterpartID); err != nil {
		return 0, lookupError(err)
	}

	archived, err := s.messages.SoftDeleteConversation(ctx, userID, itemID, counterpartID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if s.auditor != nil {
		uid := int64(userID)
		s.auditor.Emit(ctx, "INFO",
			"conversation archived item_id="+strconv.Itoa(itemID)+" counterpart_id="+strconv.Itoa(counterpartID)+" archived="+strconv.FormatInt(archived, 10),
			requestID, &uid)
	}
	return archived, nil
}

// UnreadCount is the number of unread messages the user still sees.
func (s *Service) UnreadCount(ctx context.Context, userID int) (int, error) {
	n, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return n, nil
}
