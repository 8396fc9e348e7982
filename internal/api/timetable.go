package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"college/internal/apperr"
	"college/internal/timetable"
)

var errNoLecture = apperr.NotFound("No lecture found at the current time")

type slotRequest struct {
	Subject      string `json:"subject" binding:"required"`
	Faculty      string `json:"faculty" binding:"required"`
	FacultyEmail string `json:"facultyEmail" binding:"required"`
	Time         string `json:"time" binding:"required,clock12"`
	EndTime      string `json:"endTime"`
}

type weekRequest struct {
	Monday    []slotRequest `json:"monday" binding:"dive"`
	Tuesday   []slotRequest `json:"tuesday" binding:"dive"`
	Wednesday []slotRequest `json:"wednesday" binding:"dive"`
	Thursday  []slotRequest `json:"thursday" binding:"dive"`
	Friday    []slotRequest `json:"friday" binding:"dive"`
}

func (w weekRequest) week() timetable.Week {
	return timetable.Week{
		Monday:    slots(w.Monday),
		Tuesday:   slots(w.Tuesday),
		Wednesday: slots(w.Wednesday),
		Thursday:  slots(w.Thursday),
		Friday:    slots(w.Friday),
	}
}

func slots(in []slotRequest) timetable.Slots {
	out := make(timetable.Slots, 0, len(in))
	for _, s := range in {
		out = append(out, timetable.Slot{
			Subject:      s.Subject,
			Faculty:      s.Faculty,
			FacultyEmail: s.FacultyEmail,
			Time:         s.Time,
		})
	}
	return out
}

type addTimetableRequest struct {
	Year       string       `json:"year" binding:"required"`
	Department string       `json:"department" binding:"required,department"`
	Semester   string       `json:"semester" binding:"required"`
	Timetable  *weekRequest `json:"timetable" binding:"required"`
}

type editTimetableRequest struct {
	Year       string        `json:"year" binding:"required"`
	Department string        `json:"department" binding:"required,department"`
	Semester   string        `json:"semester" binding:"required"`
	Monday     []slotRequest `json:"monday" binding:"dive"`
	Tuesday    []slotRequest `json:"tuesday" binding:"dive"`
	Wednesday  []slotRequest `json:"wednesday" binding:"dive"`
	Thursday   []slotRequest `json:"thursday" binding:"dive"`
	Friday     []slotRequest `json:"friday" binding:"dive"`
}

func (h *handler) addTimetable(c *gin.Context) {
	var req addTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	key := timetable.Key{Year: req.Year, Department: req.Department, Semester: req.Semester}
	doc, err := h.Timetables.Create(c.Request.Context(), key, req.Timetable.week())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *handler) editTimetable(c *gin.Context) {
	var req editTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	key := timetable.Key{Year: req.Year, Department: req.Department, Semester: req.Semester}
	week := weekRequest{
		Monday:    req.Monday,
		Tuesday:   req.Tuesday,
		Wednesday: req.Wednesday,
		Thursday:  req.Thursday,
		Friday:    req.Friday,
	}.week()
	doc, err := h.Timetables.ReplaceWeek(c.Request.Context(), key, week)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *handler) getTimetables(c *gin.Context) {
	docs, err := h.Timetables.All(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *handler) currentLecture(c *gin.Context) {
	var uri struct {
		Department string `uri:"department" json:"department" binding:"required,department"`
		Email      string `uri:"email" json:"email" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}
	found, err := h.Lectures.FindCurrentLecture(c.Request.Context(), uri.Department, uri.Email, h.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	if found == nil {
		h.fail(c, errNoLecture)
		return
	}
	c.JSON(http.StatusOK, found)
}
