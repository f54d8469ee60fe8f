package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/creditledger/internal/subscription/domain"
)

type subscribeRequest struct {
	PlanID           string     `json:"planId"`
	StartDate        *time.Time `json:"startDate"`
	PaymentReference string     `json:"paymentReference"`
	FirstMonthAmount *float64   `json:"firstMonthAmount"`
}

func (s *Server) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start := time.Now().UTC()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}

	resp, err := s.subscriptionSvc.Subscribe(c.Request.Context(), subscriptiondomain.SubscribeRequest{
		UserID:           strings.TrimSpace(c.Param("user_id")),
		PlanID:           strings.TrimSpace(req.PlanID),
		StartDate:        start,
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		FirstMonthAmount: req.FirstMonthAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordSubscriptionEvent(c.Request.Context(), "subscribe", resp.PlanID)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type unsubscribeRequest struct {
	EndDate *time.Time `json:"endDate"`
}

func (s *Server) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	end := time.Now().UTC()
	if req.EndDate != nil {
		end = req.EndDate.UTC()
	}

	err := s.subscriptionSvc.Unsubscribe(c.Request.Context(), subscriptiondomain.UnsubscribeRequest{
		UserID:         strings.TrimSpace(c.Param("user_id")),
		SubscriptionID: strings.TrimSpace(c.Param("id")),
		EndDate:        end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordSubscriptionEvent(c.Request.Context(), "unsubscribe", "")
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"cancelled": true}})
}

// ListSubscriptions returns the gap-filled subscription history overlapping
// [start_date, end_date); with active=true it returns the not-yet-cancelled
// subscriptions at date instead.
func (s *Server) ListSubscriptions(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))

	user, err := s.userSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	active, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	if active != nil && *active {
		date, err := parseOptionalTime(c.Query("date"), true)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
			return
		}
		at := time.Now().UTC()
		if date != nil {
			at = date.UTC()
		}
		resp, err := s.subscriptionSvc.GetNotYetCancelledSubscriptions(c.Request.Context(), user, at)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	startDate, err := parseOptionalTime(c.Query("start_date"), false)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	endDate, err := parseOptionalTime(c.Query("end_date"), true)
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
	if !start.Before(end) {
		AbortWithError(c, newValidationError("start_date", "invalid_period", "start_date must precede end_date"))
		return
	}

	resp, err := s.subscriptionSvc.GetSubscriptionHistoryForUserInPeriod(c.Request.Context(), user, start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
