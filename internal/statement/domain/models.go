// Package domain holds the persisted statement snapshot. Statements are
// recomputed from scratch on every read; snapshots exist so dashboards and
// the refresh worker can serve the last known state without recomputing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// StatementSnapshot is the latest reconciled statement for a user. Exactly
// one row per user; refreshes replace it.
type StatementSnapshot struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"uid,string"`
	UserID         string         `gorm:"type:text;not null;uniqueIndex" json:"userId"`
	StartDate      time.Time      `gorm:"not null" json:"startDate"`
	EndDate        time.Time      `gorm:"not null" json:"endDate"`
	Unlimited      bool           `gorm:"not null;default:false" json:"unlimited"`
	RemainingHours float64        `gorm:"not null;default:0" json:"remainingHours"`
	Credits        datatypes.JSON `gorm:"type:jsonb" json:"credits"`
	Debits         datatypes.JSON `gorm:"type:jsonb" json:"debits"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (StatementSnapshot) TableName() string { return "statement_snapshots" }
