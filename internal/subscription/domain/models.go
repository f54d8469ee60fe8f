// Package domain contains the subscription model and the pending-delta period
// logic used by statement computation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Subscription captures one span of plan coverage for a user. A subscription
// with no EndDate is open-ended. CancellationDate marks intent to stop
// renewal; EndDate marks the actual coverage boundary. Rows are never deleted,
// only superseded.
type Subscription struct {
	ID                     snowflake.ID      `gorm:"primaryKey" json:"uid,string"`
	UserID                 string            `gorm:"type:text;not null;index" json:"userId"`
	PlanID                 string            `gorm:"type:text;not null" json:"planId"`
	Amount                 float64           `gorm:"not null" json:"amount"`
	FirstMonthAmount       *float64          `gorm:"" json:"firstMonthAmount,omitempty"`
	StartDate              time.Time         `gorm:"not null;index" json:"startDate"`
	EndDate                *time.Time        `gorm:"" json:"endDate,omitempty"`
	CancellationDate       *time.Time        `gorm:"" json:"cancellationDate,omitempty"`
	PaymentReference       *string           `gorm:"type:text;index" json:"paymentReference,omitempty"`
	TeamSubscriptionSlotID *string           `gorm:"type:text;index" json:"teamSubscriptionSlotId,omitempty"`
	TeamMembershipID       *string           `gorm:"type:text" json:"teamMembershipId,omitempty"`
	PaymentData            datatypes.JSONMap `gorm:"type:jsonb" json:"-"`
	CreatedAt              time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt              time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// UID returns the stable string reference used on statement entries.
func (s *Subscription) UID() string { return s.ID.String() }

// IsOpenEnded reports whether the subscription has no coverage boundary.
func (s *Subscription) IsOpenEnded() bool { return s.EndDate == nil }

// IsCancelled reports whether the subscription will not renew.
func (s *Subscription) IsCancelled() bool { return s.CancellationDate != nil }

// CoversAt reports whether date falls inside [StartDate, EndDate).
func (s *Subscription) CoversAt(date time.Time) bool {
	if date.Before(s.StartDate) {
		return false
	}
	return s.EndDate == nil || date.Before(*s.EndDate)
}

// OverlapsPeriod reports whether the subscription overlaps [start, end).
func (s *Subscription) OverlapsPeriod(start, end time.Time) bool {
	if !s.StartDate.Before(end) {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(start)
}
