package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	statementdomain "github.com/smallbiznis/creditledger/internal/statement/domain"
)

func (s *Server) GetAccountStatement(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))

	endDate, err := parseOptionalTime(c.Query("end_date"), true)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}
	end := time.Now().UTC()
	if endDate != nil {
		end = endDate.UTC()
	}

	start := time.Now()
	resp, err := s.statementSvc.GetAccountStatement(c.Request.Context(), userID, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordStatementComputed(c.Request.Context(), "api")
		s.obsMetrics.RecordReconcileDuration(c.Request.Context(), "api", time.Since(start))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRemainingUsageHours(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))

	date, err := parseOptionalTime(c.Query("date"), true)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}
	numInstances, err := parseOptionalInt(c.Query("num_instances"))
	if err != nil || (numInstances != nil && *numInstances < 1) {
		AbortWithError(c, newValidationError("num_instances", "invalid_num_instances", "invalid num_instances"))
		return
	}
	considerNextPeriod, err := parseOptionalBool(c.Query("consider_next_period"))
	if err != nil {
		AbortWithError(c, newValidationError("consider_next_period", "invalid_consider_next_period", "invalid consider_next_period"))
		return
	}

	req := statementdomain.RemainingUsageRequest{
		UserID:       userID,
		NumInstances: 1,
	}
	if date != nil {
		req.Date = date.UTC()
	}
	if numInstances != nil {
		req.NumInstances = *numInstances
	}
	if considerNextPeriod != nil {
		req.ConsiderNextPeriod = *considerNextPeriod
	}

	resp, err := s.statementSvc.GetRemainingUsageHours(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RefreshStatement(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))

	endDate, err := parseOptionalTime(c.Query("end_date"), true)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}
	end := time.Now().UTC()
	if endDate != nil {
		end = endDate.UTC()
	}

	resp, err := s.statementSvc.RefreshStatement(c.Request.Context(), userID, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordStatementComputed(c.Request.Context(), "refresh")
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatementSnapshot(c *gin.Context) {
	resp, err := s.statementSvc.GetSnapshot(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
