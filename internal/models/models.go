package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account
type User struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username     string         `gorm:"size:50" json:"username,omitempty"`
	Email        string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string         `gorm:"not null;size:255" json:"-"` // Never expose password hash
	IsActive     bool           `gorm:"default:true;index" json:"isActive"`
	LastLoginAt  *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate UUID if not set
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Profile returns the public snapshot of the user
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Email: u.Email, Username: u.Username}
}

// UserProfile is the immutable user snapshot attached to a Credential
type UserProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// RefreshToken represents a long-lived refresh token delivered as a cookie
type RefreshToken struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string         `gorm:"type:varchar(36);not null;index" json:"userId"`
	Token     string         `gorm:"uniqueIndex;not null;size:255" json:"-"` // Hashed token
	ExpiresAt time.Time      `gorm:"not null;index" json:"expiresAt"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	RevokedAt *time.Time     `gorm:"index" json:"revokedAt,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	User      User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate hook to generate UUID if not set
func (rt *RefreshToken) BeforeCreate(_ *gorm.DB) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	return nil
}

// IsValid checks if the refresh token is still valid
func (rt *RefreshToken) IsValid() bool {
	return rt.RevokedAt == nil && time.Now().Before(rt.ExpiresAt)
}

// Todo is a single task owned by a user. Identity is ID; every other field is mutable.
type Todo struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string         `gorm:"not null;size:200" json:"title"`
	Description *string        `gorm:"size:1000" json:"description"`
	Completed   bool           `gorm:"default:false;index" json:"completed"`
	OwnerID     string         `gorm:"type:varchar(36);not null;index" json:"userId"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate UUID if not set
func (t *Todo) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Clone returns a copy that shares no memory with t
func (t Todo) Clone() Todo {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	return t
}

// Apply copies the set fields of a patch onto the todo
func (t *Todo) Apply(patch UpdateTodoRequest) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		d := *patch.Description
		t.Description = &d
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
}

// CreateTodoRequest represents the request to create a new todo
type CreateTodoRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
}

// UpdateTodoRequest is a partial todo; nil fields are left untouched
type UpdateTodoRequest struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
	Completed   *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (r UpdateTodoRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Completed == nil
}

// GetTodosRequest is the body of POST /todos/get-todos
type GetTodosRequest struct {
	Page   int     `json:"page" binding:"omitempty,min=1"`
	Limit  int     `json:"limit" binding:"omitempty,min=1,max=100"`
	Skip   int     `json:"skip,omitempty" binding:"omitempty,min=0"`
	Search string  `json:"search,omitempty" binding:"max=200"`
	Filter *Filter `json:"filter,omitempty"`
}

// Pagination describes the page a list response belongs to
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
}

// TodosPayload is the data of a successful list response
type TodosPayload struct {
	Todos      []Todo     `json:"todos"`
	Pagination Pagination `json:"pagination"`
}

// Authentication DTOs

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"max=50"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"` // bcrypt max is 72 bytes
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthPayload is returned by login and register
type AuthPayload struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

// TokenPayload is returned by the refresh endpoint
type TokenPayload struct {
	Token string `json:"token"`
}
