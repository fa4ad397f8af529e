package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckAggregatesWorstStatus(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("primary-store", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusHealthy}
	})
	checker.Register("legacy-store", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded, Message: "slow"}
	})

	report := checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Components, 2)
}

func TestCheckUnhealthyDominates(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("ok", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusHealthy}
	})
	checker.Register("degraded", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded}
	})
	checker.Register("down", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUnhealthy}
	})

	report := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
}

func TestCheckSwallowsPanickingCheck(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("flaky", func(ctx context.Context) ComponentHealth {
		panic("boom")
	})

	report := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "health check panicked", report.Components[0].Message)
}

func TestLastResultTracksMostRecentCheck(t *testing.T) {
	checker := NewChecker(time.Second)
	assert.Nil(t, checker.LastResult())

	checker.Register("ok", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusHealthy}
	})
	checker.Check(context.Background())
	require := checker.LastResult()
	assert.NotNil(t, require)
	assert.Equal(t, StatusHealthy, require.Status)
}

func TestPingCheckWrapsError(t *testing.T) {
	check := PingCheck(func(ctx context.Context) error { return errors.New("unreachable") })
	result := check(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Equal(t, "unreachable", result.Message)
}

func TestUnregisterRemovesCheck(t *testing.T) {
	checker := NewChecker(time.Second)
	checker.Register("temp", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUnhealthy}
	})
	checker.Unregister("temp")

	report := checker.Check(context.Background())
	assert.Empty(t, report.Components)
	assert.Equal(t, StatusHealthy, report.Status)
}
