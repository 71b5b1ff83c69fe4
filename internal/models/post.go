// internal/models/post.go
package models

import (
	"github.com/google/uuid"
)

// Post is the subset of a blog post the payments backend reads to price and
// attribute a sale. Posts are owned by the blog service.
type Post struct {
	BaseModel
	AuthorID    uuid.UUID `json:"author_id" gorm:"type:uuid;not null;index"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Slug        string    `json:"slug" gorm:"size:255;uniqueIndex"`
	IsExclusive bool      `json:"is_exclusive" gorm:"default:false"`
	Price       int64     `json:"price" gorm:"not null;default:0"`
	Published   bool      `json:"published" gorm:"default:false"`
}

func (Post) TableName() string {
	return "posts"
}
