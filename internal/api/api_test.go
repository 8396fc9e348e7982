package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"college/internal/attendance"
	"college/internal/auth"
	"college/internal/config"
	"college/internal/notify"
	"college/internal/otp"
	"college/internal/queue"
	"college/internal/semester"
	"college/internal/store/memstore"
	"college/internal/timetable"
	"college/internal/user"
)

var ist = time.FixedZone("IST", 5*3600+1800)

var cfg = config.App{JWTIssuer: "college-test", JWTSigningKey: "test-key"}

type testServer struct {
	router http.Handler
	db     *memstore.DB
	queue  *queue.InMemory
	now    time.Time
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memstore.New()
	q := queue.NewInMemory(16)
	s := &testServer{db: db, queue: q, now: time.Date(2026, 10, 12, 10, 30, 0, 0, ist)}
	clock := func() time.Time { return s.now }

	semesters := semester.NewService(db.Semesters(), ist)
	s.router = NewRouter(cfg, Deps{
		Timetables: timetable.NewService(db.Timetables(), semesters),
		Lectures:   timetable.NewResolver(db.Timetables(), db.Users(), ist),
		Attendance: attendance.NewService(db.Ledger(), q, ist).WithClock(clock),
		Semesters:  semesters,
		Users:      db.Users(),
		OTP:        otp.NewService(otp.NewMemoryStore(clock), q, 10*time.Minute),
		Health:     map[string]HealthCheck{"db": func(context.Context) bool { return true }},
		Now:        clock,
	})
	return s
}

func token(t *testing.T, email, role string) string {
	t.Helper()
	tok, err := auth.Issue(email, role, cfg.JWTIssuer, cfg.JWTSigningKey, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fields  []struct {
		Field string `json:"field"`
		Error string `json:"error"`
	} `json:"fields"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var (
	semesterBody = gin.H{
		"startDate": "2026-07-01",
		"endDate":   "2026-11-30",
		"calendar":  []gin.H{{"date": "2026-10-20", "description": "Diwali", "type": "holiday"}},
	}
	timetableBody = gin.H{
		"year":       "first",
		"department": "CSE",
		"semester":   "first",
		"timetable": gin.H{
			"monday": []gin.H{
				{"subject": "Maths", "faculty": "Dr. Rao", "facultyEmail": "rao@x.edu", "time": "10:00 AM"},
			},
		},
	}
)

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	admin := token(t, "head@x.edu", user.RoleAdmin)
	for _, u := range []gin.H{
		{"email": "asha@x.edu", "name": "Asha", "role": "student", "branch": "cse", "year": "FE"},
		{"email": "ravi@x.edu", "name": "Ravi", "role": "student", "branch": "CSE", "year": "SE"},
		{"email": "rao@x.edu", "name": "Dr. Rao", "role": "faculty", "branch": "CSE"},
	} {
		w := s.do(t, http.MethodPost, "/api/users", admin, u)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/startSemester", admin, semesterBody).Code)
	w := s.do(t, http.MethodPost, "/api/add-timetable", admin, timetableBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/api/get-timetable", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode[errorBody](t, w).Code)

	faculty := token(t, "rao@x.edu", user.RoleFaculty)
	w = s.do(t, http.MethodPost, "/api/add-timetable", faculty, timetableBody)
	assert.Equal(t, http.StatusForbidden, w.Code)

	student := token(t, "asha@x.edu", user.RoleStudent)
	w = s.do(t, http.MethodGet, "/api/getCurrentLecture/CSE/rao@x.edu", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTimetableNeedsActiveSemester(t *testing.T) {
	s := newServer(t)
	admin := token(t, "head@x.edu", user.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/add-timetable", admin, timetableBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode[errorBody](t, w).Code)
}

func TestTimetableLifecycle(t *testing.T) {
	s := newServer(t)
	s.seed(t)
	admin := token(t, "head@x.edu", user.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/add-timetable", admin, timetableBody)
	assert.Equal(t, http.StatusBadRequest, w.Code, "duplicate cohort")
	assert.Equal(t, "ALREADY_EXISTS", decode[errorBody](t, w).Code)

	w = s.do(t, http.MethodGet, "/api/get-timetable", token(t, "asha@x.edu", user.RoleStudent), nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := decode[[]timetable.Timetable](t, w)
	require.Len(t, docs, 1)
	assert.Equal(t, "11:00 AM", docs[0].Monday[0].EndTime)

	w = s.do(t, http.MethodPut, "/api/edit-timetable", admin, gin.H{
		"year": "first", "department": "CSE", "semester": "first",
		"tuesday": []gin.H{{"subject": "Physics", "faculty": "Dr. Rao", "facultyEmail": "rao@x.edu", "time": "2:00 PM"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode[timetable.Timetable](t, w)
	assert.Empty(t, doc.Monday)
	assert.Equal(t, "3:00 PM", doc.Tuesday[0].EndTime)

	w = s.do(t, http.MethodPut, "/api/edit-timetable", admin, gin.H{"year": "second", "department": "CSE", "semester": "first"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableValidationFields(t *testing.T) {
	s := newServer(t)
	s.seed(t)
	admin := token(t, "head@x.edu", user.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/add-timetable", admin, gin.H{
		"year": "second", "department": "LAW", "semester": "first",
		"timetable": gin.H{"monday": []gin.H{{"subject": "Maths", "faculty": "A", "facultyEmail": "a@x.edu", "time": "10 AM"}}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	var fields []string
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"department", "timetable.monday[0].time"}, fields)

	w = s.do(t, http.MethodPost, "/api/add-timetable", admin, gin.H{
		"year": "second", "department": "CSE", "semester": "first",
		"timetable": gin.H{"friday": []gin.H{
			{"subject": "Maths", "faculty": "A", "facultyEmail": "a@x.edu", "time": "9:00 AM"},
			{"subject": "Chem", "faculty": "B", "facultyEmail": "b@x.edu", "time": "09:00 am"},
		}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body = decode[errorBody](t, w)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "friday[1].time", body.Fields[0].Field)

	w = s.do(t, http.MethodPost, "/api/add-timetable", admin, gin.H{
		"year": "second", "department": "CSE", "semester": "first",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	body = decode[errorBody](t, w)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "timetable", body.Fields[0].Field)

	// the rejected requests must not have claimed the cohort
	w = s.do(t, http.MethodGet, "/api/get-timetable", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, doc := range decode[[]timetable.Timetable](t, w) {
		assert.False(t, doc.Year == "second" && doc.Department == "CSE")
	}
}

func TestCurrentLecture(t *testing.T) {
	s := newServer(t)
	s.seed(t)
	faculty := token(t, "rao@x.edu", user.RoleFaculty)

	w := s.do(t, http.MethodGet, "/api/getCurrentLecture/cse/rao@x.edu", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[timetable.CurrentLecture](t, w)
	assert.Equal(t, "Maths", got.Lecture.Subject)
	require.Len(t, got.Students, 1)
	assert.Equal(t, "asha@x.edu", got.Students[0].Email)

	s.now = time.Date(2026, 10, 12, 11, 0, 0, 0, ist)
	w = s.do(t, http.MethodGet, "/api/getCurrentLecture/CSE/rao@x.edu", faculty, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No lecture found at the current time", decode[errorBody](t, w).Message)

	w = s.do(t, http.MethodGet, "/api/getCurrentLecture/LAW/rao@x.edu", faculty, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkAttendance(t *testing.T) {
	s := newServer(t)
	s.seed(t)
	faculty := token(t, "rao@x.edu", user.RoleFaculty)
	mark := gin.H{"studentEmail": "asha@x.edu", "subject": "Maths", "isPresent": false, "year": "first"}

	w := s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", faculty, mark)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decode[attendance.Record](t, w)
	assert.Equal(t, "rao@x.edu", rec.FacultyEmail)
	assert.Equal(t, "2026-10-12", rec.Day)
	assert.Len(t, rec.AbsentStudents, 1)

	w = s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", faculty, mark)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	student := token(t, "asha@x.edu", user.RoleStudent)
	w = s.do(t, http.MethodGet, "/api/getAttendanceForVisualiation/asha@x.edu", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.Summary{{Subject: "Maths", PresentDays: 0, TotalDays: 1}}, decode[user.Summary](t, w))

	w = s.do(t, http.MethodGet, "/api/getAttendanceForVisualiation/ravi@x.edu", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/attendance-records?subject=Maths&date=2026-10-12", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]attendance.Record](t, w), 1)

	msgs, err := s.queue.Consume(context.Background())
	require.NoError(t, err)
	select {
	case msg := <-msgs:
		assert.Equal(t, notify.TypeAbsence, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("absence notice not queued")
	}
}

func TestMarkRequiresPresence(t *testing.T) {
	s := newServer(t)
	s.seed(t)
	w := s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", token(t, "rao@x.edu", user.RoleFaculty),
		gin.H{"studentEmail": "asha@x.edu", "subject": "Maths", "year": "first"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "isPresent", decode[errorBody](t, w).Fields[0].Field)

	w = s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", token(t, "rao@x.edu", user.RoleFaculty),
		gin.H{"studentEmail": "ghost@x.edu", "subject": "Maths", "year": "first", "isPresent": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAttendanceFacultyIdentity(t *testing.T) {
	s := newServer(t)
	s.seed(t)
	faculty := token(t, "rao@x.edu", user.RoleFaculty)
	admin := token(t, "head@x.edu", user.RoleAdmin)
	mark := func(student, facultyEmail string) gin.H {
		return gin.H{"studentEmail": student, "subject": "Maths", "isPresent": true, "year": "first", "facultyEmail": facultyEmail}
	}

	w := s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", faculty, mark("asha@x.edu", "iyer@x.edu"))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PERMISSION_DENIED", decode[errorBody](t, w).Code)

	w = s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", faculty, mark("asha@x.edu", " RAO@x.edu "))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "rao@x.edu", decode[attendance.Record](t, w).FacultyEmail)

	w = s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", admin, mark("ravi@x.edu", ""))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "facultyEmail", decode[errorBody](t, w).Fields[0].Field)

	w = s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", admin, mark("ravi@x.edu", "iyer@x.edu"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "iyer@x.edu", decode[attendance.Record](t, w).FacultyEmail)

	student := token(t, "asha@x.edu", user.RoleStudent)
	w = s.do(t, http.MethodPost, "/api/makeStudentAbsentOrPresent", student, mark("asha@x.edu", ""))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSemesterLifecycle(t *testing.T) {
	s := newServer(t)
	admin := token(t, "head@x.edu", user.RoleAdmin)

	w := s.do(t, http.MethodGet, "/api/getSemester", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPut, "/api/updateSemester", admin, semesterBody)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/endSemester", admin, gin.H{"isYearDone": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.seed(t)
	w = s.do(t, http.MethodPost, "/api/startSemester", admin, semesterBody)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/startSemester", admin, gin.H{"startDate": "2026-07-01", "endDate": "2026-06-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/updateSemester", admin, gin.H{"startDate": "2026-07-01", "endDate": "2026-12-15"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-12-15", decode[semester.Semester](t, w).EndDate)

	w = s.do(t, http.MethodPost, "/api/endSemester", admin, gin.H{"isYearDone": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[semester.EndResult](t, w)
	assert.EqualValues(t, 1, res.TimetablesDeleted)
	assert.EqualValues(t, 2, res.UsersPromoted)

	w = s.do(t, http.MethodGet, "/api/get-timetable", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	asha, err := s.db.Users().ByEmail(context.Background(), "asha@x.edu")
	require.NoError(t, err)
	assert.Equal(t, user.YearSE, asha.Year)
}

func TestEndSemesterEmptyBody(t *testing.T) {
	s := newServer(t)
	s.seed(t)
	req := httptest.NewRequest(http.MethodPost, "/api/endSemester", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "head@x.edu", user.RoleAdmin))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, decode[semester.EndResult](t, w).UsersPromoted)
}

func TestOTPFlow(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/send-otp", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/send-otp", "", gin.H{"email": "asha@x.edu"})
	require.Equal(t, http.StatusAccepted, w.Code)

	msgs, err := s.queue.Consume(context.Background())
	require.NoError(t, err)
	msg := <-msgs
	var body notify.OTP
	require.NoError(t, json.Unmarshal(msg.Body, &body))

	w = s.do(t, http.MethodPost, "/api/verify-otp", "", gin.H{"email": "asha@x.edu", "otp": "abcdef"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/verify-otp", "", gin.H{"email": "asha@x.edu", "otp": body.Code})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/verify-otp", "", gin.H{"email": "asha@x.edu", "otp": body.Code})
	assert.Equal(t, http.StatusBadRequest, w.Code, "codes are single use")
}

func TestUploadProofUnconfigured(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodPost, "/api/upload-proof", token(t, "asha@x.edu", user.RoleStudent), gin.H{"data": "AAAA"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","db":true}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
