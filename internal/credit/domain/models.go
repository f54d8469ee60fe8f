// Package domain holds one-time credit grants: fixed-validity credit handed
// out independently of any subscription (promotions, support goodwill,
// purchased hour packages).
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreditGrant is credit valid in [Date, ExpiryDate). A nil ExpiryDate means
// the grant never expires.
type CreditGrant struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"uid,string"`
	UserID      string       `gorm:"type:text;not null;index" json:"userId"`
	Amount      float64      `gorm:"not null" json:"amount"`
	Date        time.Time    `gorm:"not null" json:"date"`
	ExpiryDate  *time.Time   `gorm:"" json:"expiryDate,omitempty"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (CreditGrant) TableName() string { return "credit_grants" }
