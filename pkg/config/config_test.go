package config

import (
	"testing"
	"time"

	"github.com/fatflowers/subsync/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestPlanKindByPriceID(t *testing.T) {
	cfg := &Config{Plans: []*Plan{
		{PriceID: "price_m", Kind: types.PlanKindMonthly},
		{PriceID: "price_l", Kind: types.PlanKindLifetime},
	}}

	require.Equal(t, types.PlanKindMonthly, cfg.PlanKindByPriceID("price_m"))
	require.Equal(t, types.PlanKindLifetime, cfg.PlanKindByPriceID("price_l"))
	require.Equal(t, types.PlanKind(""), cfg.PlanKindByPriceID("price_unknown"))
}

func TestStripeTimeoutDefault(t *testing.T) {
	c := StripeConfig{}
	require.Equal(t, 10*time.Second, c.Timeout())

	c.TimeoutSeconds = 3
	require.Equal(t, 3*time.Second, c.Timeout())
}

func TestAuditInterval(t *testing.T) {
	c := AuditConfig{IntervalMinutes: 360}
	require.Equal(t, 6*time.Hour, c.Interval())

	c.IntervalMinutes = 0
	require.Equal(t, time.Duration(0), c.Interval())
}
