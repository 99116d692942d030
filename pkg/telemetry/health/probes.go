package health

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// Default probe names registered by the telemetry provider.
const (
	ProbeDependency = "dependency"
	ProbeToken      = "token"
	ProbeMemory     = "memory"
)

// DefaultMemoryThreshold is the heap size above which MemoryProbe reports
// degraded.
const DefaultMemoryThreshold uint64 = 512 << 20

// BreakerSettings configures the circuit breaker in front of a dependency.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the
	// breaker (default 3).
	MaxFailures uint32

	// Cooldown is how long the breaker stays open before a trial call
	// (default 30s).
	Cooldown time.Duration
}

// DependencyProbe pings a dependency through a circuit breaker. While the
// breaker is open the dependency is not called and the probe reports
// unhealthy.
func DependencyProbe(name string, ping func(ctx context.Context) error, settings BreakerSettings) Probe {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 3
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
	})

	return func(ctx context.Context) Result {
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, ping(ctx)
		})
		details := map[string]any{"breaker": cb.State().String()}
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				err = fmt.Errorf("%s unavailable: %w", name, err)
			}
			return Result{Status: StatusUnhealthy, Error: err.Error(), Details: details}
		}
		return Result{Status: StatusHealthy, Details: details}
	}
}

// TokenSelfTest signs and verifies an HS256 token with secret, exercising
// the token subsystem end to end.
func TokenSelfTest(secret []byte) Probe {
	return func(ctx context.Context) Result {
		if len(secret) == 0 {
			return Unhealthy(errors.New("token secret is not configured"))
		}

		now := time.Now()
		want := jwt.RegisteredClaims{
			Subject:   "sentinel-self-test",
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, want).SignedString(secret)
		if err != nil {
			return Unhealthy(fmt.Errorf("sign token: %w", err))
		}

		got := &jwt.RegisteredClaims{}
		_, err = jwt.ParseWithClaims(signed, got, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return Unhealthy(fmt.Errorf("verify token: %w", err))
		}
		if got.ID != want.ID || got.Subject != want.Subject {
			return Unhealthy(errors.New("token claims did not round-trip"))
		}
		return Healthy()
	}
}

// MemoryProbe reports degraded when the live heap exceeds threshold bytes.
func MemoryProbe(threshold uint64) Probe {
	return memoryProbe(threshold, func() uint64 {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.HeapAlloc
	})
}

func memoryProbe(threshold uint64, heap func() uint64) Probe {
	if threshold == 0 {
		threshold = DefaultMemoryThreshold
	}
	return func(ctx context.Context) Result {
		used := heap()
		res := Result{
			Status: StatusHealthy,
			Details: map[string]any{
				"heap_bytes":      used,
				"threshold_bytes": threshold,
			},
		}
		if used > threshold {
			res.Status = StatusDegraded
			res.Error = fmt.Sprintf("heap %d MB above threshold %d MB", used>>20, threshold>>20)
		}
		return res
	}
}
