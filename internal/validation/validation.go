package validation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Check probes one backing service
type Check func(ctx context.Context) error

// ServiceValidator checks the services the server depends on. Required
// services must pass at startup; every registered check is reported by
// the health endpoint.
type ServiceValidator struct {
	mu       sync.RWMutex
	checks   map[string]Check
	required map[string]bool
	timeout  time.Duration
}

// NewServiceValidator creates a validator
func NewServiceValidator() *ServiceValidator {
	return &ServiceValidator{
		checks:   make(map[string]Check),
		required: make(map[string]bool),
		timeout:  5 * time.Second,
	}
}

// Register adds a named check
func (sv *ServiceValidator) Register(name string, check Check, required bool) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.checks[name] = check
	sv.required[name] = required
}

// ValidateServices runs every required check and fails on the first error
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	for _, name := range sv.names() {
		sv.mu.RLock()
		check, required := sv.checks[name], sv.required[name]
		sv.mu.RUnlock()
		if !required {
			continue
		}

		logger.Log.Info("Validating service", zap.String("service", name))
		if err := sv.run(ctx, check); err != nil {
			return fmt.Errorf("required service %q validation failed: %w", name, err)
		}
	}
	return nil
}

// Status runs every check and reports "ok" or the error per service.
// healthy is false when a required service failed.
func (sv *ServiceValidator) Status(ctx context.Context) (status map[string]string, healthy bool) {
	status = make(map[string]string)
	healthy = true
	for _, name := range sv.names() {
		sv.mu.RLock()
		check, required := sv.checks[name], sv.required[name]
		sv.mu.RUnlock()

		if err := sv.run(ctx, check); err != nil {
			status[name] = err.Error()
			if required {
				healthy = false
			}
			continue
		}
		status[name] = "ok"
	}
	return status, healthy
}

func (sv *ServiceValidator) run(ctx context.Context, check Check) error {
	ctx, cancel := context.WithTimeout(ctx, sv.timeout)
	defer cancel()
	return check(ctx)
}

func (sv *ServiceValidator) names() []string {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	names := make([]string, 0, len(sv.checks))
	for name := range sv.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatabaseCheck pings the database
func DatabaseCheck(db *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Pinger is anything with a context-aware Ping, like the Redis client
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps a Pinger
func PingCheck(p Pinger) Check {
	return p.Ping
}

// KafkaCheck dials the first reachable broker
func KafkaCheck(brokers []string) Check {
	return func(ctx context.Context) error {
		var lastErr error
		for _, broker := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", broker)
			if err != nil {
				lastErr = err
				continue
			}
			return conn.Close()
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no brokers configured")
		}
		return fmt.Errorf("failed to reach kafka: %w", lastErr)
	}
}
