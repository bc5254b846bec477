package models

import "time"

// Post length limits.
const (
	PostTitleMaxLength = 200
	PostSlugMaxLength  = 220
)

// Post represents a blog article.
type Post struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Title     string      `gorm:"size:200;not null" json:"title"`
	Slug      string      `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	ImageURL  string      `gorm:"size:500" json:"image_url,omitempty"`
	Body      string      `gorm:"type:text;not null" json:"body"`
	Published bool        `gorm:"not null;index" json:"published"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Visits    []PostVisit `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// PostVisit records one view of a post by an authenticated user.
// Rows are append-only; repeat views produce repeat rows.
type PostVisit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID" json:"post,omitempty"`
	VisitedAt time.Time `gorm:"autoCreateTime;index" json:"visited_at"`
}
