package functions

import (
	"fmt"
	"time"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// ExecutionResult is the outcome of one function-call execution.
type ExecutionResult struct {
	Success          bool
	Result           map[string]any
	Error            string
	ProcessingTimeMs int64
}

// Executor applies validated function calls to a MirroredCustomer. It holds
// no state of its own: every mutation lands directly on the caller-owned
// customer snapshot, in place on the evaluation's own MirroredCustomer.
type Executor struct {
	registry *Registry
}

// NewExecutor builds an Executor backed by registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute validates parameters against the named function's schema, applies
// the mutation to customer, and bumps customer.UpdatedAt on success. Unknown
// function name and schema-mismatched parameters both report success=false
// without mutating customer.
func (e *Executor) Execute(name string, parameters map[string]any, customer *models.MirroredCustomer) ExecutionResult {
	start := time.Now()
	if customer == nil {
		return ExecutionResult{Success: false, Error: "customer is required", ProcessingTimeMs: elapsedMs(start)}
	}

	if err := e.registry.Validate(name, parameters); err != nil {
		msg := err.Error()
		if msg == "unknown function" {
			return ExecutionResult{Success: false, Error: "unknown function", ProcessingTimeMs: elapsedMs(start)}
		}
		return ExecutionResult{Success: false, Error: fmt.Sprintf("invalid parameters: %v", err), ProcessingTimeMs: elapsedMs(start)}
	}

	result, err := e.apply(name, parameters, customer)
	if err != nil {
		return ExecutionResult{Success: false, Error: err.Error(), ProcessingTimeMs: elapsedMs(start)}
	}
	customer.UpdatedAt = time.Now()
	return ExecutionResult{Success: true, Result: result, ProcessingTimeMs: elapsedMs(start)}
}

func (e *Executor) apply(name string, parameters map[string]any, customer *models.MirroredCustomer) (map[string]any, error) {
	switch name {
	case NameUpdateProfileField:
		field, _ := parameters["field"].(string)
		value, _ := parameters["new_value"].(string)
		if !customer.UpdateProfileField(field, value) {
			return nil, fmt.Errorf("unsupported profile field %q", field)
		}
		return map[string]any{"field": field, "new_value": value}, nil

	case NameLogMetric:
		metric, _ := parameters["metric_name"].(string)
		value, _ := parameters["value_string"].(string)
		if customer.BusinessInsights.Metrics == nil {
			customer.BusinessInsights.Metrics = make(map[string]string)
		}
		customer.BusinessInsights.Metrics[metric] = value
		return map[string]any{"metric_name": metric, "value_string": value}, nil

	case NameRecordBusinessInsight:
		category, _ := parameters["category"].(string)
		details, _ := parameters["insight_details"].(string)
		insight := models.BusinessInsight{Category: category, Details: details, Timestamp: time.Now()}
		customer.BusinessInsights.Insights = append(customer.BusinessInsights.Insights, insight)
		return map[string]any{"category": category}, nil

	case NameLogMarketingChannels:
		channels := toStringSlice(parameters["channels"])
		customer.BusinessInsights.MarketingChannels = unionStrings(customer.BusinessInsights.MarketingChannels, channels)
		return map[string]any{"channels": customer.BusinessInsights.MarketingChannels}, nil

	case NameInitiateDemoCreation:
		if customer.BusinessInsights.DemoCreationInitiated != nil {
			// Idempotent re-call: success with no change.
			return map[string]any{"status": customer.BusinessInsights.DemoCreationInitiated.Status}, nil
		}
		customer.BusinessInsights.DemoCreationInitiated = &models.DemoCreationStatus{
			Status:    "initiated",
			Timestamp: time.Now(),
		}
		return map[string]any{"status": "initiated"}, nil

	default:
		return nil, fmt.Errorf("unknown function")
	}
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func unionStrings(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string{}, existing...)
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range additions {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
