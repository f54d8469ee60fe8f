package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/creditledger/internal/plan"
)

func (s *Server) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": plan.All()})
}
