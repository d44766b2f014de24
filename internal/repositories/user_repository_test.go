package repositories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaim/internal/models"
)

func TestUserRepoGetUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, email, display_name, avatar_url, created_at FROM users WHERE id = $1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(2, "finder", "f@example.com", "", "", sentAt))

	user, err := repo.GetUser(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "finder", user.Username)
	assert.Equal(t, "finder", user.Name())
}

func TestUserRepoGetUserNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("FROM users").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUser(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepoBulkUsersSkipsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	users, err := repo.BulkUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoBulkUsers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id IN ($1,$2) ORDER BY id")).
		WithArgs(2, 3).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "finder", "f@example.com", "Fay", "", sentAt).
			AddRow(3, "other", "o@example.com", "", "", sentAt))

	users, err := repo.BulkUsers(context.Background(), []int{2, 3})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Fay", users[0].Name())
}

func TestUserRepoGetProfileMissingIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles WHERE user_id = $1")).
		WithArgs(2).
		WillReturnError(sql.ErrNoRows)

	_, found, err := repo.GetProfile(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUserRepoGetProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("FROM user_profiles").
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow(2, "555-0101", "", false, true, sentAt))

	profile, found, err := repo.GetProfile(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, profile.AllowMessages)
}

func TestUserRepoProvisionUserCreatesProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (username,email,display_name) VALUES ($1,$2,$3) ON CONFLICT (username) DO NOTHING RETURNING")).
		WithArgs("finder", "f@example.com", "").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(7, "finder", "f@example.com", "", "", sentAt))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_profiles (user_id,contact_number) VALUES ($1,$2) RETURNING")).
		WithArgs(7, "555-0101").
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow(7, "555-0101", "", true, true, sentAt))
	mock.ExpectCommit()

	out, err := repo.ProvisionUser(context.Background(), models.NewUser{Username: " finder ", Email: "f@example.com", ContactNumber: "555-0101"})
	require.NoError(t, err)
	assert.Equal(t, 7, out.User.ID)
	assert.Equal(t, 7, out.Profile.UserID)
	assert.True(t, out.Profile.AllowMessages)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoProvisionUserTaken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectRollback()

	_, err := repo.ProvisionUser(context.Background(), models.NewUser{Username: "finder", Email: "f@example.com"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoProvisionUserProfileFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(7, "finder", "f@example.com", "", "", sentAt))
	mock.ExpectQuery("INSERT INTO user_profiles").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := repo.ProvisionUser(context.Background(), models.NewUser{Username: "finder", Email: "f@example.com"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
