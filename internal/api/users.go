package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"college/internal/user"
)

type userRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Name   string `json:"name"`
	Role   string `json:"role" binding:"required,role"`
	Branch string `json:"branch" binding:"omitempty,department"`
	Year   string `json:"year" binding:"year_label"`
}

func (h *handler) upsertUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Users.Upsert(c.Request.Context(), user.User{
		Email:  req.Email,
		Name:   strings.TrimSpace(req.Name),
		Role:   req.Role,
		Branch: strings.ToUpper(strings.TrimSpace(req.Branch)),
		Year:   req.Year,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
