package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"crewcheck/backend/config"
	"crewcheck/backend/internal/api/handler"
	"crewcheck/backend/internal/api/middleware"
	"crewcheck/backend/pkg/jwt"
	"crewcheck/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil（限流降级放行）
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthHandler(db))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr), middleware.RoleAuth("supervisor", "admin"))
	{
		// 班组核验
		crew := v1.Group("/crew-verifications")
		{
			crew.POST("", h.Crew.OpenVerification)
			crew.GET("/:id", h.Crew.GetVerification)
			crew.PUT("/:id/members/:user_id", h.Crew.UpdateMember)
			crew.POST("/:id/members/:user_id/toggle", h.Crew.ToggleConfirmed)
			crew.POST("/:id/members", h.Crew.AddMembers)
			crew.POST("/:id/submit",
				middleware.RateLimit(rdb, cfg.Crew.SubmitRateLimit, cfg.Crew.SubmitRateWindow, logger),
				h.Crew.Submit)
			crew.DELETE("/:id", h.Crew.CloseVerification)
			crew.GET("/:id/export", h.Export.ExportTimesheet)
		}

		// 考勤更正申请
		v1.GET("/jobs/:job_id/corrections", h.Crew.ListCorrections)
	}

	return r
}

// healthHandler 数据库可达时返回 ok；db 为 nil 时只报告进程存活
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
				err = sqlDB.PingContext(ctx)
				cancel()
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
