package models

import "time"

// User is the directory view of an account.
type User struct {
	ID          int       `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Email       string    `db:"email" json:"-"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Profile holds per-user preferences relevant to messaging.
type Profile struct {
	UserID        int       `db:"user_id" json:"user_id"`
	ContactNumber string    `db:"contact_number" json:"contact_number,omitempty"`
	Bio           string    `db:"bio" json:"bio,omitempty"`
	AllowMessages bool      `db:"allow_messages" json:"allow_messages"`
	NotifyEmail   bool      `db:"notify_email" json:"notify_email"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// NewUser is the input of account provisioning.
type NewUser struct {
	Username      string `json:"username" binding:"required"`
	Email         string `json:"email" binding:"required"`
	DisplayName   string `json:"display_name"`
	ContactNumber string `json:"contact_number"`
}

// UserWithProfile is returned by provisioning so callers never observe a user without a profile.
type UserWithProfile struct {
	User    User    `json:"user"`
	Profile Profile `json:"profile"`
}

// Item statuses.
const (
	ItemLost  = "lost"
	ItemFound = "found"
)

// Item is a lost or found listing.
type Item struct {
	ID           int       `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description,omitempty"`
	Status       string    `db:"status" json:"status"`
	PhotoURL     string    `db:"photo_url" json:"photo_url,omitempty"`
	Location     string    `db:"location" json:"location,omitempty"`
	ReportedBy   int       `db:"reported_by" json:"reported_by"`
	IsReturned   bool      `db:"is_returned" json:"is_returned"`
	DateReported time.Time `db:"date_reported" json:"date_reported"`
}
