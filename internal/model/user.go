package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of user roles. Anything outside these two
// constants is denied.
type Role string

const (
	RoleUser  Role = "user"  // can only manage own tasks
	RoleAdmin Role = "admin" // can manage all users and tasks
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	Username       string    `gorm:"uniqueIndex;not null"`
	FirstName      string
	LastName       string
	HashedPassword string    `gorm:"not null"`
	Role           Role      `gorm:"type:varchar(10);not null;default:'user'"`
	IsActive       bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}
