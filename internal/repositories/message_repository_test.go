package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaim/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var sentAt = time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)

func messageRows() *sqlmock.Rows {
	return sqlmock.NewRows(messageColumns)
}

func TestMessageRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages (sender_id,recipient_id,item_id,content,image_path) VALUES ($1,$2,$3,$4,$5) RETURNING id, sender_id")).
		WithArgs(2, 1, 10, "Found it!", sqlmock.AnyArg()).
		WillReturnRows(messageRows().AddRow(5, 2, 1, 10, "Found it!", nil, sentAt, false, false, false))

	msg, err := repo.Create(context.Background(), models.NewMessage{SenderID: 2, RecipientID: 1, ItemID: 10, Content: "Found it!"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), msg.ID)
	assert.Equal(t, "Found it!", msg.Content)
	assert.Nil(t, msg.ImagePath)
	assert.False(t, msg.IsRead)
	assert.Equal(t, sentAt, msg.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoCreateFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery("INSERT INTO messages").WillReturnError(errors.New("check constraint"))

	_, err := repo.Create(context.Background(), models.NewMessage{SenderID: 2, RecipientID: 1, ItemID: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert message")
}

func TestMessageRepoMarkReadScoped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_read = $1 WHERE (is_read = $2 AND recipient_id = $3 AND item_id = $4 AND sender_id = $5 AND created_at <= $6)")).
		WithArgs(true, false, 1, 10, 2, sentAt).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.MarkRead(context.Background(), 1, models.ReadScope{ItemID: 10, SenderID: 2, UpTo: sentAt})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoMarkReadAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_read = $1 WHERE (is_read = $2 AND recipient_id = $3)")).
		WithArgs(true, false, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkRead(context.Background(), 1, models.ReadScope{})
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoSoftDeleteSetsOnlyCallerFlags(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET deleted_by_sender = $1 WHERE deleted_by_sender = $2 AND item_id = $3 AND recipient_id = $4 AND sender_id = $5")).
		WithArgs(true, false, 10, 2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET deleted_by_recipient = $1 WHERE deleted_by_recipient = $2 AND item_id = $3 AND recipient_id = $4 AND sender_id = $5")).
		WithArgs(true, false, 10, 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.SoftDeleteConversation(context.Background(), 1, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoSoftDeleteRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET deleted_by_sender").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE messages SET deleted_by_recipient").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	_, err := repo.SoftDeleteConversation(context.Background(), 1, 10, 2)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoListForPairOrdersChronologically(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WillReturnRows(messageRows().
			AddRow(1, 2, 1, 10, "one", nil, sentAt, true, false, false).
			AddRow(2, 1, 2, 10, "two", nil, sentAt.Add(time.Minute), false, false, false))

	msgs, err := repo.ListForPair(context.Background(), 10, 1, 2, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoListVisibleForUserFiltersByViewer(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`deleted_by_sender = \$1 AND sender_id = \$2\)? OR \(?deleted_by_recipient = \$3 AND recipient_id = \$4`).
		WithArgs(false, 1, false, 1).
		WillReturnRows(messageRows())

	msgs, err := repo.ListVisibleForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoCountUnread(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE deleted_by_recipient = $1 AND is_read = $2 AND recipient_id = $3")).
		WithArgs(false, false, 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountUnread(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
