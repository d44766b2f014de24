package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"reclaim/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

var userColumns = []string{"id", "username", "email", "display_name", "avatar_url", "created_at"}

var profileColumns = []string{"user_id", "contact_number", "bio", "allow_messages", "notify_email", "created_at"}

// UserRepository resolves and provisions accounts.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	BulkUsers(ctx context.Context, ids []int) ([]models.User, error)
	GetProfile(ctx context.Context, userID int) (models.Profile, bool, error)
	ProvisionUser(ctx context.Context, in models.NewUser) (models.UserWithProfile, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": userID}).ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("build get user: %w", err)
	}

	var user models.User
	err = r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches multiple users in one query. Unknown ids are skipped.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query, args, err := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": ids}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bulk users: %w", err)
	}

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("bulk users: %w", err)
	}
	return users, nil
}

// GetProfile returns the user's profile. found is false when the user has no
// profile row yet, which is not an error.
func (r *UserRepo) GetProfile(ctx context.Context, userID int) (profile models.Profile, found bool, err error) {
	query, args, err := psql.Select(profileColumns...).From("user_profiles").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return models.Profile{}, false, fmt.Errorf("build get profile: %w", err)
	}

	err = r.db.GetContext(ctx, &profile, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, false, nil
	}
	if err != nil {
		return models.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	return profile, true, nil
}

// ProvisionUser creates a user and its profile atomically.
func (r *UserRepo) ProvisionUser(ctx context.Context, in models.NewUser) (models.UserWithProfile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.UserWithProfile{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	userQuery, userArgs, err := psql.Insert("users").
		Columns("username", "email", "display_name").
		Values(strings.TrimSpace(in.Username), strings.TrimSpace(in.Email), strings.TrimSpace(in.DisplayName)).
		Suffix("ON CONFLICT (username) DO NOTHING RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return models.UserWithProfile{}, fmt.Errorf("build insert user: %w", err)
	}

	var out models.UserWithProfile
	if err = tx.QueryRowxContext(ctx, userQuery, userArgs...).StructScan(&out.User); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrUsernameTaken
			return models.UserWithProfile{}, err
		}
		return models.UserWithProfile{}, fmt.Errorf("insert user: %w", err)
	}

	profileQuery, profileArgs, err := psql.Insert("user_profiles").
		Columns("user_id", "contact_number").
		Values(out.User.ID, strings.TrimSpace(in.ContactNumber)).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).
		ToSql()
	if err != nil {
		return models.UserWithProfile{}, fmt.Errorf("build insert profile: %w", err)
	}
	if err = tx.QueryRowxContext(ctx, profileQuery, profileArgs...).StructScan(&out.Profile); err != nil {
		return models.UserWithProfile{}, fmt.Errorf("insert profile: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.UserWithProfile{}, err
	}
	return out, nil
}
