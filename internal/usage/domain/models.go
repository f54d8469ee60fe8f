// Package domain contains the workspace session model feeding debit
// projection.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// WorkspaceType classifies a session's workspace. Only regular workspaces are
// billed; prebuilds and probes run on the house.
type WorkspaceType string

const (
	WorkspaceTypeRegular  WorkspaceType = "regular"
	WorkspaceTypePrebuild WorkspaceType = "prebuild"
	WorkspaceTypeProbe    WorkspaceType = "probe"
)

// WorkspaceSession records one workspace instance run. StartedAt is nil while
// the instance is still provisioning; such sessions have not consumed anything
// yet. StoppingAt is set when shutdown begins, StoppedAt once it completed; a
// session with neither is still running.
type WorkspaceSession struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"uid,string"`
	UserID        string        `gorm:"type:text;not null;index" json:"userId"`
	WorkspaceID   string        `gorm:"type:text;not null;index" json:"workspaceId"`
	InstanceID    string        `gorm:"type:text;not null;uniqueIndex" json:"workspaceInstanceId"`
	WorkspaceType WorkspaceType `gorm:"type:text;not null;default:regular" json:"workspaceType"`
	ContextTitle  string        `gorm:"type:text" json:"contextTitle,omitempty"`
	ContextURL    string        `gorm:"type:text" json:"contextUrl,omitempty"`
	StartedAt     *time.Time    `gorm:"index" json:"startedAt,omitempty"`
	StoppingAt    *time.Time    `gorm:"" json:"stoppingAt,omitempty"`
	StoppedAt     *time.Time    `gorm:"" json:"stoppedAt,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (WorkspaceSession) TableName() string { return "workspace_sessions" }

// EffectiveEnd returns when the session stopped consuming: the stopping time
// when known, else the stopped time, else the zero value for a still-running
// session.
func (s *WorkspaceSession) EffectiveEnd() time.Time {
	if s.StoppingAt != nil {
		return *s.StoppingAt
	}
	if s.StoppedAt != nil {
		return *s.StoppedAt
	}
	return time.Time{}
}
