package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"absensi/internal/account"
	"absensi/internal/attendance"
	"absensi/internal/config"
	"absensi/internal/httpmiddleware"
	"absensi/internal/identity"
	"absensi/internal/roster"
)

// RecordLister reads a student's attendance records.
type RecordLister interface {
	ListByStudent(ctx context.Context, studentID string, limit int) ([]attendance.Record, error)
}

// UserGetter loads one roster entry for role checks.
type UserGetter interface {
	Get(ctx context.Context, uid string) (*roster.User, error)
}

// Server owns the HTTP surface: account purge, diagnostic echo, student
// check-in, record listing, health and metrics.
type Server struct {
	Cfg          config.App
	Provider     identity.Provider
	Accounts     *account.Service
	CheckIns     *attendance.Service
	Records      RecordLister
	Users        UserGetter
	DBHealthy    func(ctx context.Context) bool
	RedisHealthy func(ctx context.Context) bool
	Log          *logrus.Logger
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(s.Cfg.RateLimitPerMin, s.Cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		ctx := c.Request.Context()
		dbOK := s.DBHealthy == nil || s.DBHealthy(ctx)
		redisOK := s.RedisHealthy == nil || s.RedisHealthy(ctx)
		status := http.StatusOK
		if !dbOK || !redisOK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "db": dbOK, "redis": redisOK})
	})

	r.POST("/v1/accounts/purge", s.handlePurge)

	authGroup := r.Group("/v1", s.requireAuth())
	authGroup.POST("/diag/echo", s.handleEcho)
	authGroup.POST("/checkins", s.handleCheckIn)
	authGroup.GET("/attendance", s.handleListAttendance)

	return r
}

// handlePurge deletes an account. The service owns the credential and role
// checks; this handler only maps its errors onto status codes.
func (s *Server) handlePurge(c *gin.Context) {
	var req struct {
		UID string `json:"uid"`
	}
	_ = c.ShouldBindJSON(&req)

	_, err := s.Accounts.Purge(c.Request.Context(), bearerToken(c), req.UID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "account deleted"})
	case errors.Is(err, account.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, account.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "target uid required"})
	case errors.Is(err, account.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		s.Log.WithError(err).Error("purge failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleEcho validates the authenticated transport path without touching
// storage.
func (s *Server) handleEcho(c *gin.Context) {
	var req struct {
		UID string `json:"uid"`
	}
	_ = c.ShouldBindJSON(&req)

	caller := c.GetString("uid")
	s.Log.WithFields(logrus.Fields{"caller_uid": caller, "target_uid": req.UID}).Info("diag echo")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "called with uid: " + req.UID})
}

func (s *Server) handleCheckIn(c *gin.Context) {
	var req struct {
		ScheduleID string `json:"schedule_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, recorded, err := s.CheckIns.CheckIn(c.Request.Context(), c.GetString("uid"), req.ScheduleID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"recorded": recorded, "status": rec.Status, "schedule_id": rec.ScheduleID})
	case errors.Is(err, attendance.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, attendance.ErrNotStudent):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		s.Log.WithError(err).Error("check-in failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleListAttendance returns the caller's records; teachers and admins
// may query any student via ?student_id=.
func (s *Server) handleListAttendance(c *gin.Context) {
	caller := c.GetString("uid")
	target := c.Query("student_id")
	if target == "" {
		target = caller
	}

	if target != caller {
		u, err := s.Users.Get(c.Request.Context(), caller)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if u == nil || (u.Role != roster.RoleTeacher && u.Role != roster.RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	records, err := s.Records.ListByStudent(c.Request.Context(), target, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// requireAuth enforces bearer tokens on the authenticated group and stores
// the verified subject uid on the context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		uid, err := s.Provider.VerifyToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("uid", uid)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
