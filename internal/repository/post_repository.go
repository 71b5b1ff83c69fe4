// internal/repository/post_repository.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/inkwell-backend/internal/models"
)

type PostRepository struct {
	db *gorm.DB
}

func (r *PostRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *PostRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []models.Post
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error
	return posts, err
}
