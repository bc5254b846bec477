// Package models contains data structures for the application's domain models.
package models

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"
)

// UnusablePasswordPrefix marks a stored password that can never match.
// bcrypt hashes always start with "$2", so no input compares equal.
const UnusablePasswordPrefix = "!"

const unusablePasswordSuffixLength = 40

// User represents an account of the blog.
type User struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Username  string      `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string      `gorm:"size:254;index" json:"email"`
	FirstName string      `gorm:"size:150" json:"first_name"`
	LastName  string      `gorm:"size:150" json:"last_name"`
	Password  string      `gorm:"size:128;not null" json:"-"`
	IsStaff   bool        `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Visits    []PostVisit `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// SetUnusablePassword stores a marker that no password can ever match.
func (u *User) SetUnusablePassword() error {
	buf := make([]byte, unusablePasswordSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	suffix := base64.RawURLEncoding.EncodeToString(buf)[:unusablePasswordSuffixLength]
	u.Password = UnusablePasswordPrefix + suffix
	return nil
}

// HasUsablePassword reports whether password login is possible for the user.
func (u *User) HasUsablePassword() bool {
	return u.Password != "" && !strings.HasPrefix(u.Password, UnusablePasswordPrefix)
}
