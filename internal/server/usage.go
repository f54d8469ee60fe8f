package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/smallbiznis/creditledger/internal/usage/domain"
	"github.com/smallbiznis/creditledger/pkg/db/pagination"
)

type startSessionRequest struct {
	WorkspaceID   string     `json:"workspaceId"`
	InstanceID    string     `json:"instanceId"`
	WorkspaceType string     `json:"workspaceType"`
	ContextTitle  string     `json:"contextTitle"`
	ContextURL    string     `json:"contextUrl"`
	StartedAt     *time.Time `json:"startedAt"`
	Pending       bool       `json:"pending"`
}

func (s *Server) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	workspaceType := usagedomain.WorkspaceTypeRegular
	if trimmed := strings.TrimSpace(req.WorkspaceType); trimmed != "" {
		workspaceType = usagedomain.WorkspaceType(trimmed)
	}

	resp, err := s.usageSvc.StartSession(c.Request.Context(), usagedomain.StartSessionRequest{
		UserID:        strings.TrimSpace(c.Param("user_id")),
		WorkspaceID:   strings.TrimSpace(req.WorkspaceID),
		InstanceID:    strings.TrimSpace(req.InstanceID),
		WorkspaceType: workspaceType,
		ContextTitle:  strings.TrimSpace(req.ContextTitle),
		ContextURL:    strings.TrimSpace(req.ContextURL),
		StartedAt:     req.StartedAt,
		Pending:       req.Pending,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordSessionIngested(c.Request.Context(), string(resp.WorkspaceType))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type stopSessionRequest struct {
	StoppedAt *time.Time `json:"stoppedAt"`
}

func (s *Server) StopSession(c *gin.Context) {
	var req stopSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.usageSvc.StopSession(c.Request.Context(), usagedomain.StopSessionRequest{
		InstanceID: strings.TrimSpace(c.Param("instance_id")),
		StoppedAt:  req.StoppedAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSessions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		StartDate string `form:"start_date"`
		EndDate   string `form:"end_date"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := strings.TrimSpace(c.Param("user_id"))

	user, err := s.userSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	startDate, err := parseOptionalTime(query.StartDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	endDate, err := parseOptionalTime(query.EndDate, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	start := user.CreationDate
	if startDate != nil {
		start = startDate.UTC()
	}
	end := time.Now().UTC()
	if endDate != nil {
		end = endDate.UTC()
	}

	sessions, err := s.usageSvc.ListSessionsInPeriod(c.Request.Context(), userID, start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if query.PageToken != "" {
		cursor, err := pagination.DecodeCursor(query.PageToken)
		if err != nil {
			AbortWithError(c, newValidationError("page_token", "invalid_page_token", "invalid page_token"))
			return
		}
		for i, session := range sessions {
			if session.ID.String() == cursor.ID {
				sessions = sessions[i+1:]
				break
			}
		}
	}

	pageInfo, page := pagination.BuildCursorPageInfo(sessions, query.PageSize, func(session usagedomain.WorkspaceSession) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: session.ID.String()})
		return token
	})

	c.JSON(http.StatusOK, gin.H{"data": page, "page_info": pageInfo})
}
