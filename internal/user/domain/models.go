// Package domain holds the minimal user record statement computation needs:
// identity and the account creation date every statement starts from.
package domain

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	Name         string    `gorm:"type:text" json:"name,omitempty"`
	CreationDate time.Time `gorm:"not null" json:"creationDate"`
	Blocked      bool      `gorm:"not null;default:false" json:"blocked,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
