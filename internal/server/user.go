package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/creditledger/internal/user/domain"
)

type createUserRequest struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreationDate *time.Time `json:"creationDate"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user := userdomain.User{
		ID:   strings.TrimSpace(req.ID),
		Name: strings.TrimSpace(req.Name),
	}
	if req.CreationDate != nil {
		user.CreationDate = req.CreationDate.UTC()
	}

	resp, err := s.userSvc.Create(c.Request.Context(), user)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetUserByID(c *gin.Context) {
	resp, err := s.userSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
