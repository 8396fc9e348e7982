package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"college/internal/apperr"
	"college/internal/validation"
)

var errInternal = apperr.Internal("internal server error")

// fail writes err as {code, message, fields}. Errors without a code are reported and hidden.
func (h *handler) fail(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Code == apperr.CodeInternal {
		if h.Reporter != nil {
			h.Reporter.Error("api: "+c.Request.Method+" "+c.FullPath(), err)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errInternal)
		return
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(e), e)
}

func (h *handler) badRequest(c *gin.Context, bindErr error) {
	h.fail(c, validation.Error(bindErr))
}
