package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"college/internal/apperr"
	"college/internal/attendance"
	"college/internal/auth"
	"college/internal/user"
)

var (
	errNotYours          = &apperr.Error{Code: apperr.CodePermissionDenied, Message: "students may only view their own attendance"}
	errMarkForOther      = &apperr.Error{Code: apperr.CodePermissionDenied, Message: "faculty may only mark their own lectures"}
	errAdminNeedsFaculty = apperr.Invalid("invalid request", apperr.FieldError{Field: "facultyEmail", Error: "this field is required"})
)

type markRequest struct {
	StudentEmail string `json:"studentEmail" binding:"required"`
	Subject      string `json:"subject" binding:"required"`
	IsPresent    *bool  `json:"isPresent" binding:"required"`
	FacultyEmail string `json:"facultyEmail"`
	Year         string `json:"year" binding:"required"`
}

// markingFaculty decides whose ledger a mark is written to. Faculty always mark as themselves;
// admins mark on behalf of the faculty they name.
func markingFaculty(c *gin.Context, requested string) (string, error) {
	claims, _ := auth.FromContext(c)
	requested = strings.TrimSpace(requested)
	if claims.Role == user.RoleAdmin {
		if requested == "" {
			return "", errAdminNeedsFaculty
		}
		return requested, nil
	}
	if requested != "" && !strings.EqualFold(requested, claims.Email) {
		return "", errMarkForOther
	}
	return claims.Email, nil
}

func (h *handler) markAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	facultyEmail, err := markingFaculty(c, req.FacultyEmail)
	if err != nil {
		h.fail(c, err)
		return
	}
	req.FacultyEmail = facultyEmail
	rec, err := h.Attendance.Mark(c.Request.Context(), attendance.MarkInput{
		StudentEmail: req.StudentEmail,
		Subject:      req.Subject,
		FacultyEmail: req.FacultyEmail,
		Year:         req.Year,
		Present:      *req.IsPresent,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) attendanceSummary(c *gin.Context) {
	email := c.Param("studentEmail")
	if claims, _ := auth.FromContext(c); claims.Role == user.RoleStudent && user.NormalizeEmail(claims.Email) != user.NormalizeEmail(email) {
		h.fail(c, errNotYours)
		return
	}
	summary, err := h.Attendance.Summary(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handler) attendanceRecords(c *gin.Context) {
	recs, err := h.Attendance.Records(c.Request.Context(), attendance.Filter{
		Subject:      c.Query("subject"),
		FacultyEmail: c.Query("facultyEmail"),
		Year:         c.Query("year"),
		Day:          c.Query("date"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}
