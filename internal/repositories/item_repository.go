package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"reclaim/internal/models"
)

var ErrItemNotFound = errors.New("item not found")

var itemColumns = []string{
	"id", "title", "description", "status", "photo_url", "location",
	"reported_by", "is_returned", "date_reported",
}

// ItemRepository resolves listings referenced by conversations.
type ItemRepository interface {
	GetItem(ctx context.Context, itemID int) (models.Item, error)
	BulkItems(ctx context.Context, ids []int) ([]models.Item, error)
}

// ItemRepo is a sqlx implementation of ItemRepository.
type ItemRepo struct {
	db *sqlx.DB
}

// NewItemRepo constructs an ItemRepo.
func NewItemRepo(db *sqlx.DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// GetItem fetches a single item.
func (r *ItemRepo) GetItem(ctx context.Context, itemID int) (models.Item, error) {
	query, args, err := psql.Select(itemColumns...).From("items").Where(sq.Eq{"id": itemID}).ToSql()
	if err != nil {
		return models.Item{}, fmt.Errorf("build get item: %w", err)
	}

	var item models.Item
	err = r.db.GetContext(ctx, &item, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, ErrItemNotFound
	}
	return item, err
}

// BulkItems fetches several items at once. Unknown ids are skipped.
func (r *ItemRepo) BulkItems(ctx context.Context, ids []int) ([]models.Item, error) {
	if len(ids) == 0 {
		return []models.Item{}, nil
	}
	query, args, err := psql.Select(itemColumns...).From("items").Where(sq.Eq{"id": ids}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bulk items: %w", err)
	}

	items := []models.Item{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("bulk items: %w", err)
	}
	return items, nil
}
