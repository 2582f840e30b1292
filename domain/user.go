package domain

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Username              string     `gorm:"column:username;not null" json:"username"`
	Email                 string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Password              string     `gorm:"column:password;not null;default:''" json:"-"`
	Role                  string     `gorm:"column:role;default:customer" json:"role"`
	IsVerified            bool       `gorm:"column:is_verified;default:false" json:"is_verified"`
	VerificationToken     *string    `gorm:"column:verification_token;uniqueIndex" json:"-"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at" json:"-"`
	GoogleID              *string    `gorm:"column:google_id;index" json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	Customer *Customer `gorm:"foreignKey:UserID" json:"customer,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func ValidRole(role string) bool {
	return role == RoleCustomer || role == RoleAdmin
}
