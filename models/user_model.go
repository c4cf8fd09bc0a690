package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent    = "student"
	RoleTutor      = "tutor"
	RoleMentor     = "mentor"
	RoleResearcher = "researcher"
	RoleAdmin      = "admin"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Role     string    `gorm:"size:20;not null;default:'student'" json:"role"`
	IsActive bool      `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEarner reports whether the role can receive a share of a sale.
func IsEarner(role string) bool {
	switch role {
	case RoleTutor, RoleMentor, RoleResearcher:
		return true
	}
	return false
}
