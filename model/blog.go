package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	IdxBlogTitle    = "idx_blog_title"
	IdxBlogLikeUser = "idx_blog_like_user"
)

type Blog struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	Title      string         `gorm:"uniqueIndex:idx_blog_title;size:255;not null" json:"title"`
	Content    datatypes.JSON `json:"content"`
	Tags       datatypes.JSON `json:"tags"`
	Image      string         `gorm:"size:1024;not null;default:''" json:"image,omitempty"`
	AuthorID   uint           `gorm:"index;not null" json:"authorId"`
	AuthorName string         `gorm:"size:64;not null" json:"authorName"`
	Author     *User          `gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"author,omitempty"`
	LikeCount  int            `gorm:"not null;default:0" json:"likes"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (b *Blog) BeforeCreate(tx *gorm.DB) error {
	if b.ID == 0 {
		b.ID = GenerateID()
	}
	return nil
}

// BlogLike records that a user liked a blog, at most once per pair.
type BlogLike struct {
	ID        uint      `gorm:"primarykey,autoIncrement"`
	BlogID    uint      `gorm:"not null;uniqueIndex:idx_blog_like_user"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_blog_like_user"`
	Blog      *Blog     `gorm:"foreignKey:BlogID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time
}
