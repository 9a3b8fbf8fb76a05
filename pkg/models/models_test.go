package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirroredCustomerCloneIsolation(t *testing.T) {
	original := &MirroredCustomer{
		CustomerID: "cust-1",
		BusinessInsights: BusinessInsights{
			Metrics:           map[string]string{"monthly_inbound_calls": "500"},
			MarketingChannels: []string{"google_ads"},
		},
	}

	clone := original.Clone()
	clone.BusinessInsights.Metrics["monthly_inbound_calls"] = "9999"
	clone.BusinessInsights.MarketingChannels[0] = "tiktok"

	assert.Equal(t, "500", original.BusinessInsights.Metrics["monthly_inbound_calls"])
	assert.Equal(t, "google_ads", original.BusinessInsights.MarketingChannels[0])
}

func TestUpdateProfileFieldUnknown(t *testing.T) {
	c := &MirroredCustomer{}
	assert.False(t, c.UpdateProfileField("not_a_field", "x"))
	assert.True(t, c.UpdateProfileField("job_title", "Director of Marketing"))
	assert.Equal(t, "Director of Marketing", c.JobTitle)
}

func TestEvaluationConfigNormalizeDefaults(t *testing.T) {
	cfg := EvaluationConfig{}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, DefaultCleanerWindowSize, cfg.CleanerWindowSize)
	assert.Equal(t, DefaultFunctionWindowSize, cfg.FunctionWindowSize)
}

func TestEvaluationConfigNormalizeRejectsSmallFunctionWindow(t *testing.T) {
	cfg := EvaluationConfig{CleanerWindowSize: 20, FunctionWindowSize: 5}
	assert.Error(t, cfg.Normalize())
}

func TestTokenUsageAddAndCost(t *testing.T) {
	a := TokenUsage{Input: 100, Output: 50, Total: 150}
	b := TokenUsage{Input: 10, Output: 5, Total: 15}
	sum := a.Add(b)
	assert.Equal(t, TokenUsage{Input: 110, Output: 55, Total: 165}, sum)

	p := Pricing{InputPerMToken: 0.10, OutputPerMToken: 0.40}
	cost := p.Cost(TokenUsage{Input: 1_000_000, Output: 1_000_000})
	assert.InDelta(t, 0.50, cost, 1e-9)
}
