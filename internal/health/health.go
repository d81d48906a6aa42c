// Package health reports dependency status over HTTP and the standard gRPC
// health protocol.
package health

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"
)

// ServiceName is the name registered with the gRPC health server next to the
// overall ("") status.
const ServiceName = "fz.restaurant"

const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
	StatusDisabled    = "disabled"
)

type Component struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Healthy is false only when the database is down. Redis is optional.
func (r Report) Healthy() bool {
	return r.Components["database"].Status == StatusHealthy
}

type Checker struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewChecker builds a checker. rdb may be nil when redis is disabled.
func NewChecker(db *gorm.DB, rdb *redis.Client) *Checker {
	return &Checker{db: db, redis: rdb}
}

func (c *Checker) Check(ctx context.Context) Report {
	report := Report{
		Status:     StatusHealthy,
		Components: map[string]Component{},
		Timestamp:  time.Now().UTC(),
	}

	report.Components["database"] = c.checkDatabase(ctx)
	report.Components["redis"] = c.checkRedis(ctx)

	for _, comp := range report.Components {
		if comp.Status == StatusUnavailable {
			report.Status = StatusDegraded
		}
	}
	if !report.Healthy() {
		report.Status = StatusUnavailable
	}
	return report
}

func (c *Checker) checkDatabase(ctx context.Context) Component {
	if c.db == nil {
		return Component{Status: StatusUnavailable, Message: "database not configured"}
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return Component{Status: StatusUnavailable, Message: err.Error()}
	}
	start := time.Now()
	if err := sqlDB.PingContext(ctx); err != nil {
		return Component{Status: StatusUnavailable, Message: err.Error()}
	}
	return Component{Status: StatusHealthy, Latency: time.Since(start).String()}
}

func (c *Checker) checkRedis(ctx context.Context) Component {
	if c.redis == nil {
		return Component{Status: StatusDisabled}
	}
	start := time.Now()
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return Component{Status: StatusUnavailable, Message: err.Error()}
	}
	return Component{Status: StatusHealthy, Latency: time.Since(start).String()}
}

// Server exposes grpc.health.v1 with reflection. Its serving status follows
// the checker.
type Server struct {
	grpc    *grpc.Server
	health  *grpchealth.Server
	checker *Checker

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

func NewServer(checker *Checker) *Server {
	s := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &Server{
		grpc:    s,
		health:  hs,
		checker: checker,
		last:    healthpb.HealthCheckResponse_UNKNOWN,
	}
}

// Refresh runs one check and publishes the result.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if !s.checker.Check(ctx).Healthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.mu.Lock()
	changed := status != s.last
	s.last = status
	s.mu.Unlock()

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	if changed {
		log.WithField("status", status.String()).Info("Health status changed")
	}
	return status
}

// Watch refreshes the status every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			s.Refresh(checkCtx)
			cancel()
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
