// internal/services/catalog.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/inkwell-backend/internal/repository"
)

// Item is what the payments flow needs to know about a post.
type Item struct {
	ID            uuid.UUID `json:"id"`
	SellerID      uuid.UUID `json:"seller_id"`
	Price         int64     `json:"price"`
	IsPurchasable bool      `json:"is_purchasable"`
	Title         string    `json:"title"`
}

// ItemSummary is the read projection embedded in purchase history.
type ItemSummary struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Slug  string    `json:"slug"`
}

// ItemCatalog is the boundary to the blog service that owns posts.
type ItemCatalog interface {
	GetPurchasableItem(ctx context.Context, itemID uuid.UUID) (*Item, error)
	GetItemSummaries(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]ItemSummary, error)
}

// PostCatalog reads items from the posts table.
type PostCatalog struct {
	store *repository.Store
}

func NewPostCatalog(store *repository.Store) *PostCatalog {
	return &PostCatalog{store: store}
}

// GetPurchasableItem returns ErrItemNotFound for unknown posts. A post that
// exists but is not for sale is returned with IsPurchasable false.
func (c *PostCatalog) GetPurchasableItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	post, err := c.store.Posts.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	return &Item{
		ID:            post.ID,
		SellerID:      post.AuthorID,
		Price:         post.Price,
		IsPurchasable: post.IsExclusive && post.Published && post.Price > 0,
		Title:         post.Title,
	}, nil
}

func (c *PostCatalog) GetItemSummaries(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]ItemSummary, error) {
	posts, err := c.store.Posts.FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	summaries := make(map[uuid.UUID]ItemSummary, len(posts))
	for _, post := range posts {
		summaries[post.ID] = ItemSummary{ID: post.ID, Title: post.Title, Slug: post.Slug}
	}
	return summaries, nil
}
