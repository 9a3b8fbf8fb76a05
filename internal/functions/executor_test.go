package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenvoice/turnengine/pkg/models"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)
	return NewExecutor(reg)
}

func TestExecutor_UpdateProfileField(t *testing.T) {
	e := newTestExecutor(t)
	customer := &models.MirroredCustomer{CustomerID: "cust-1"}

	result := e.Execute(NameUpdateProfileField, map[string]any{
		"field":     "job_title",
		"new_value": "Director of Marketing",
	}, customer)

	require.True(t, result.Success)
	assert.Equal(t, "Director of Marketing", customer.JobTitle)
	assert.False(t, customer.UpdatedAt.IsZero())
}

func TestExecutor_LogMetric(t *testing.T) {
	e := newTestExecutor(t)
	customer := &models.MirroredCustomer{}

	result := e.Execute(NameLogMetric, map[string]any{
		"metric_name":  "monthly_inbound_calls",
		"value_string": "500",
	}, customer)

	require.True(t, result.Success)
	assert.Equal(t, "500", customer.BusinessInsights.Metrics["monthly_inbound_calls"])
}

func TestExecutor_RecordBusinessInsight(t *testing.T) {
	e := newTestExecutor(t)
	customer := &models.MirroredCustomer{}

	result := e.Execute(NameRecordBusinessInsight, map[string]any{
		"category":        "CHALLENGE",
		"insight_details": "struggling with lead volume",
	}, customer)

	require.True(t, result.Success)
	require.Len(t, customer.BusinessInsights.Insights, 1)
	assert.Equal(t, "CHALLENGE", customer.BusinessInsights.Insights[0].Category)
}

func TestExecutor_LogMarketingChannelsDeduplicates(t *testing.T) {
	e := newTestExecutor(t)
	customer := &models.MirroredCustomer{
		BusinessInsights: models.BusinessInsights{MarketingChannels: []string{"google_ads"}},
	}

	result := e.Execute(NameLogMarketingChannels, map[string]any{
		"channels": []any{"google_ads", "tiktok"},
	}, customer)

	require.True(t, result.Success)
	assert.Equal(t, []string{"google_ads", "tiktok"}, customer.BusinessInsights.MarketingChannels)
}

func TestExecutor_InitiateDemoCreationIsIdempotent(t *testing.T) {
	e := newTestExecutor(t)
	customer := &models.MirroredCustomer{}

	first := e.Execute(NameInitiateDemoCreation, map[string]any{}, customer)
	require.True(t, first.Success)
	firstTimestamp := customer.BusinessInsights.DemoCreationInitiated.Timestamp

	second := e.Execute(NameInitiateDemoCreation, map[string]any{}, customer)
	require.True(t, second.Success)
	assert.Equal(t, firstTimestamp, customer.BusinessInsights.DemoCreationInitiated.Timestamp)
}

func TestExecutor_UnknownFunction(t *testing.T) {
	e := newTestExecutor(t)
	result := e.Execute("delete_customer", map[string]any{}, &models.MirroredCustomer{})
	require.False(t, result.Success)
	assert.Equal(t, "unknown function", result.Error)
}

func TestExecutor_SchemaMismatch(t *testing.T) {
	e := newTestExecutor(t)
	result := e.Execute(NameUpdateProfileField, map[string]any{
		"field": "not_a_real_field",
	}, &models.MirroredCustomer{})
	require.False(t, result.Success)
	assert.NotEqual(t, "unknown function", result.Error)
}

func TestExecutor_NilCustomer(t *testing.T) {
	e := newTestExecutor(t)
	result := e.Execute(NameInitiateDemoCreation, map[string]any{}, nil)
	require.False(t, result.Success)
}

func TestRegistry_DeclarationsCoverCatalogue(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	decls := reg.Declarations()
	assert.Len(t, decls, 5)
}
