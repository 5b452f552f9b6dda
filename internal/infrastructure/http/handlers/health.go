package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const readinessTimeout = 3 * time.Second

// HealthHandler handles GET /health, the liveness probe.
type HealthHandler struct {
	service string
}

func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.service,
	})
}

// Check probes one dependency. A nil error means healthy.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// MongoCheck pings the database the repositories write to.
func MongoCheck(db *mongo.Database) Check {
	return Check{Name: "mongodb", Probe: func(ctx context.Context) error {
		return db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	}}
}

// RedisCheck pings the permission cache.
func RedisCheck(rdb *redis.Client) Check {
	return Check{Name: "redis", Probe: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

// ReadinessHandler handles GET /health/ready.
type ReadinessHandler struct {
	checks []Check
}

func NewReadinessHandler(checks ...Check) *ReadinessHandler {
	sorted := append([]Check(nil), checks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &ReadinessHandler{checks: sorted}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(h.checks))
	healthy := true
	for _, chk := range h.checks {
		if err := chk.Probe(ctx); err != nil {
			deps[chk.Name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
			continue
		}
		deps[chk.Name] = dependencyStatus{Status: "ok"}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}

// Register mounts both probes on e.
func Register(e *echo.Echo, live *HealthHandler, ready *ReadinessHandler) {
	e.GET("/health", live.Liveness)
	e.GET("/health/ready", ready.Readiness)
}
