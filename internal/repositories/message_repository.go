package repositories

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"reclaim/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var messageColumns = []string{
	"id", "sender_id", "recipient_id", "item_id", "content", "image_path",
	"created_at", "is_read", "deleted_by_sender", "deleted_by_recipient",
}

// MessageRepository defines interactions for item-scoped chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg models.NewMessage) (models.Message, error)
	MarkRead(ctx context.Context, recipientID int, scope models.ReadScope) (int64, error)
	SoftDeleteConversation(ctx context.Context, userID, itemID, counterpartID int) (int64, error)
	ListForPair(ctx context.Context, itemID, userA, userB, viewerID int) ([]models.Message, error)
	ListVisibleForUser(ctx context.Context, userID int) ([]models.Message, error)
	CountUnread(ctx context.Context, recipientID int) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// visibleTo matches rows the viewer has not deleted from their own side.
func visibleTo(viewerID int) sq.Sqlizer {
	return sq.Or{
		sq.Eq{"sender_id": viewerID, "deleted_by_sender": false},
		sq.Eq{"recipient_id": viewerID, "deleted_by_recipient": false},
	}
}

// Create stores a message; id and timestamp are assigned by the database.
func (r *MessageRepo) Create(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	query, args, err := psql.Insert("messages").
		Columns("sender_id", "recipient_id", "item_id", "content", "image_path").
		Values(msg.SenderID, msg.RecipientID, msg.ItemID, msg.Content, msg.ImagePath).
		Suffix("RETURNING " + strings.Join(messageColumns, ", ")).
		ToSql()
	if err != nil {
		return models.Message{}, fmt.Errorf("build insert message: %w", err)
	}

	var stored models.Message
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&stored); err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return stored, nil
}

// MarkRead flips is_read for the recipient's unread messages within scope and
// returns how many rows changed. Calling it again is a no-op.
func (r *MessageRepo) MarkRead(ctx context.Context, recipientID int, scope models.ReadScope) (int64, error) {
	where := sq.And{sq.Eq{"recipient_id": recipientID, "is_read": false}}
	if scope.ItemID != 0 {
		where = append(where, sq.Eq{"item_id": scope.ItemID})
	}
	if scope.SenderID != 0 {
		where = append(where, sq.Eq{"sender_id": scope.SenderID})
	}
	if !scope.UpTo.IsZero() {
		where = append(where, sq.LtOrEq{"created_at": scope.UpTo})
	}

	query, args, err := psql.Update("messages").Set("is_read", true).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build mark read: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

// SoftDeleteConversation hides every message of (item, userID, counterpartID)
// from userID's side only. Rows already hidden are left untouched, so the
// returned count is the number of messages newly archived.
func (r *MessageRepo) SoftDeleteConversation(ctx context.Context, userID, itemID, counterpartID int) (archived int64, err error) {
	asSender, senderArgs, err := psql.Update("messages").
		Set("deleted_by_sender", true).
		Where(sq.Eq{"item_id": itemID, "sender_id": userID, "recipient_id": counterpartID, "deleted_by_sender": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build archive as sender: %w", err)
	}
	asRecipient, recipientArgs, err := psql.Update("messages").
		Set("deleted_by_recipient", true).
		Where(sq.Eq{"item_id": itemID, "sender_id": counterpartID, "recipient_id": userID, "deleted_by_recipient": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build archive as recipient: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []struct {
		query string
		args  []interface{}
	}{{asSender, senderArgs}, {asRecipient, recipientArgs}} {
		res, execErr := tx.ExecContext(ctx, stmt.query, stmt.args...)
		if execErr != nil {
			err = fmt.Errorf("archive conversation: %w", execErr)
			return 0, err
		}
		n, countErr := res.RowsAffected()
		if countErr != nil {
			err = countErr
			return 0, err
		}
		archived += n
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive: %w", err)
	}
	return archived, nil
}

// ListForPair returns the messages between userA and userB about itemID that
// viewerID can still see, oldest first.
func (r *MessageRepo) ListForPair(ctx context.Context, itemID, userA, userB, viewerID int) ([]models.Message, error) {
	pair := []int{userA, userB}
	query, args, err := psql.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"item_id": itemID, "sender_id": pair, "recipient_id": pair}).
		Where(visibleTo(viewerID)).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list pair: %w", err)
	}

	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, fmt.Errorf("list pair: %w", err)
	}
	return msgs, nil
}

// ListVisibleForUser returns every message the user sent or received and has
// not deleted, oldest first.
func (r *MessageRepo) ListVisibleForUser(ctx context.Context, userID int) ([]models.Message, error) {
	query, args, err := psql.Select(messageColumns...).
		From("messages").
		Where(visibleTo(userID)).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list visible: %w", err)
	}

	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, fmt.Errorf("list visible: %w", err)
	}
	return msgs, nil
}

// CountUnread counts unread messages addressed to the user that they still see.
func (r *MessageRepo) CountUnread(ctx context.Context, recipientID int) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("messages").
		Where(sq.Eq{"recipient_id": recipientID, "is_read": false, "deleted_by_recipient": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count unread: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
