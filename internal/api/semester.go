package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"college/internal/semester"
)

type calendarDayRequest struct {
	Date        string `json:"date" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type semesterRequest struct {
	StartDate string               `json:"startDate" binding:"required"`
	EndDate   string               `json:"endDate" binding:"required"`
	Calendar  []calendarDayRequest `json:"calendar" binding:"dive"`
}

func (r semesterRequest) window() semester.Window {
	cal := make(semester.Calendar, 0, len(r.Calendar))
	for _, d := range r.Calendar {
		cal = append(cal, semester.CalendarDay{Date: d.Date, Description: d.Description, Type: d.Type})
	}
	return semester.Window{StartDate: r.StartDate, EndDate: r.EndDate, Calendar: cal}
}

func (h *handler) startSemester(c *gin.Context) {
	var req semesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s, err := h.Semesters.Start(c.Request.Context(), req.window())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *handler) updateSemester(c *gin.Context) {
	var req semesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s, err := h.Semesters.Update(c.Request.Context(), req.window())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handler) endSemester(c *gin.Context) {
	var req struct {
		IsYearDone bool `json:"isYearDone"`
	}
	// an empty body ends the semester without promotion
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err)
		return
	}
	res, err := h.Semesters.End(c.Request.Context(), req.IsYearDone)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) getSemester(c *gin.Context) {
	s, err := h.Semesters.Active(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
