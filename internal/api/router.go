package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"college/internal/attendance"
	"college/internal/auth"
	"college/internal/cloudinary"
	"college/internal/config"
	"college/internal/httpmiddleware"
	"college/internal/logger"
	"college/internal/otp"
	"college/internal/semester"
	"college/internal/timetable"
	"college/internal/user"
	"college/internal/validation"
)

// Directory upserts users. It is satisfied by user.Repository and memstore.Users.
type Directory interface {
	Upsert(ctx context.Context, u user.User) (user.User, error)
}

// ProofStorage stores uploaded proofs and returns their public location.
type ProofStorage interface {
	UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
	UploadBase64(ctx context.Context, data string) (*cloudinary.UploadResult, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the services the routes call. Proofs may be nil when storage is not configured.
// A nil Limiter means a per-process token bucket at RATE_LIMIT_PER_MIN.
type Deps struct {
	Timetables *timetable.Service
	Lectures   *timetable.Resolver
	Attendance *attendance.Service
	Semesters  *semester.Service
	Users      Directory
	OTP        *otp.Service
	Proofs     ProofStorage
	Limiter    httpmiddleware.Limiter
	Health     map[string]HealthCheck
	Reporter   logger.Reporter
	Now        func() time.Time
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg config.App, d Deps) *gin.Engine {
	validation.Setup()
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	if d.Limiter == nil {
		d.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}
	limiter := httpmiddleware.Middleware(d.Limiter)
	requireUser := auth.RequireUser(cfg.JWTSigningKey, cfg.JWTIssuer)
	admin := auth.RequireRole(user.RoleAdmin)
	staff := auth.RequireRole(user.RoleFaculty, user.RoleAdmin)

	public := r.Group("/api", limiter)
	public.POST("/send-otp", h.sendOTP)
	public.POST("/verify-otp", h.verifyOTP)

	api := r.Group("/api", requireUser, limiter)

	api.POST("/add-timetable", admin, h.addTimetable)
	api.PUT("/edit-timetable", admin, h.editTimetable)
	api.GET("/get-timetable", h.getTimetables)
	api.GET("/getCurrentLecture/:department/:email", staff, h.currentLecture)

	api.POST("/makeStudentAbsentOrPresent", staff, h.markAttendance)
	api.GET("/getAttendanceForVisualiation/:studentEmail", h.attendanceSummary)
	api.GET("/attendance-records", staff, h.attendanceRecords)

	api.POST("/startSemester", admin, h.startSemester)
	api.PUT("/updateSemester", admin, h.updateSemester)
	api.POST("/endSemester", admin, h.endSemester)
	api.GET("/getSemester", h.getSemester)

	api.POST("/users", admin, h.upsertUser)
	api.POST("/upload-proof", h.uploadProof)

	return r
}

func (h *handler) healthz(c *gin.Context) {
	body := gin.H{}
	status := http.StatusOK
	for name, check := range h.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	body["status"] = "ok"
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
