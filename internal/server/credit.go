package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/smallbiznis/creditledger/internal/credit/domain"
)

type grantCreditRequest struct {
	Amount      float64    `json:"amount"`
	Date        *time.Time `json:"date"`
	ExpiryDate  *time.Time `json:"expiryDate"`
	Description string     `json:"description"`
}

func (s *Server) GrantCredit(c *gin.Context) {
	var req grantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	resp, err := s.creditSvc.Grant(c.Request.Context(), creditdomain.GrantRequest{
		UserID:      strings.TrimSpace(c.Param("user_id")),
		Amount:      req.Amount,
		Date:        date,
		ExpiryDate:  req.ExpiryDate,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordCreditGranted(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCredits(c *gin.Context) {
	date, err := parseOptionalTime(c.Query("date"), true)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}
	at := time.Now().UTC()
	if date != nil {
		at = date.UTC()
	}

	resp, err := s.creditSvc.FindOpenCredits(c.Request.Context(), strings.TrimSpace(c.Param("user_id")), at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
