package health

import (
	"context"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/capture"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 2 * time.Second

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines    int    `json:"goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

type Stats struct {
	ActiveSessions    int          `json:"active_sessions"`
	TotalRequests     uint64       `json:"total_requests"`
	ActiveConnections int64        `json:"active_connections"`
	Runtime           RuntimeStats `json:"runtime"`
}

type Response struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type Handler struct {
	db      *gorm.DB
	redis   *redis.Client
	manager *capture.Manager
	version string
	started time.Time

	totalRequests     atomic.Uint64
	activeConnections atomic.Int64
}

func NewHandler(db *gorm.DB, redisClient *redis.Client, manager *capture.Manager, version string) *Handler {
	return &Handler{
		db:      db,
		redis:   redisClient,
		manager: manager,
		version: version,
		started: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/health/live", h.Live)
}

func (h *Handler) IncrementRequests()    { h.totalRequests.Add(1) }
func (h *Handler) IncrementConnections() { h.activeConnections.Add(1) }
func (h *Handler) DecrementConnections() { h.activeConnections.Add(-1) }

// Live is the liveness probe: the process answers, nothing else is checked.
func (h *Handler) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	components := map[string]ComponentStatus{
		"database": h.checkDatabase(ctx),
		"redis":    h.checkRedis(ctx),
	}

	overall := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			break
		}
		if comp.Status == StatusDegraded {
			overall = StatusDegraded
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := Response{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Stats: Stats{
			ActiveSessions:    h.manager.SessionCount(),
			TotalRequests:     h.totalRequests.Load(),
			ActiveConnections: h.activeConnections.Load(),
			Runtime: RuntimeStats{
				Goroutines:    runtime.NumGoroutine(),
				MemoryAllocMB: mem.Alloc / 1024 / 1024,
				NumGC:         mem.NumGC,
			},
		},
		Components: components,
	}

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}

	status := ComponentStatus{LatencyMs: time.Since(start).Milliseconds(), Status: StatusHealthy}
	if err != nil {
		status.Status = StatusUnhealthy
		status.Error = err.Error()
	}
	return status
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	err := h.redis.Ping(ctx).Err()

	status := ComponentStatus{LatencyMs: time.Since(start).Milliseconds(), Status: StatusHealthy}
	if err != nil {
		// Session registry and thumbnail cache degrade, capture still works.
		status.Status = StatusDegraded
		status.Error = err.Error()
	}
	return status
}
