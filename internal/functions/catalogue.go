// Package functions implements the closed catalogue of side-effectful
// actions the function-caller LLM may invoke against a MirroredCustomer,
// plus JSON-schema-subset validation of their parameters.
package functions

import "github.com/lumenvoice/turnengine/pkg/models"

const (
	NameUpdateProfileField    = "update_profile_field"
	NameLogMetric             = "log_metric"
	NameRecordBusinessInsight = "record_business_insight"
	NameLogMarketingChannels  = "log_marketing_channels"
	NameInitiateDemoCreation  = "initiate_demo_creation"
)

var profileFields = []string{
	"user_name", "job_title", "company_name", "company_description", "company_size", "company_sector",
}

var metricNames = []string{
	"monthly_website_visitors", "monthly_inbound_calls", "monthly_form_submissions",
}

var insightCategories = []string{"CHALLENGE", "GOAL", "MOTIVATION", "STRENGTH"}

// Declarations returns the tool declarations for every catalogued function,
// in the wire shape the LLM Gateway hands to the model as tool_schemas.
func Declarations() []models.ToolDeclaration {
	return []models.ToolDeclaration{
		{
			Name:        NameUpdateProfileField,
			Description: "Set a single top-level attribute on the customer's profile.",
			Parameters: models.ToolSchema{
				Type: "object",
				Properties: map[string]models.ToolSchema{
					"field":     {Type: "string", Enum: profileFields},
					"new_value": {Type: "string"},
				},
				Required: []string{"field", "new_value"},
			},
		},
		{
			Name:        NameLogMetric,
			Description: "Record a quantitative business metric the customer mentioned.",
			Parameters: models.ToolSchema{
				Type: "object",
				Properties: map[string]models.ToolSchema{
					"metric_name":  {Type: "string", Enum: metricNames},
					"value_string": {Type: "string"},
				},
				Required: []string{"metric_name", "value_string"},
			},
		},
		{
			Name:        NameRecordBusinessInsight,
			Description: "Record a qualitative observation about the customer's business.",
			Parameters: models.ToolSchema{
				Type: "object",
				Properties: map[string]models.ToolSchema{
					"category":        {Type: "string", Enum: insightCategories},
					"insight_details": {Type: "string"},
				},
				Required: []string{"category", "insight_details"},
			},
		},
		{
			Name:        NameLogMarketingChannels,
			Description: "Record the marketing channels the customer mentioned using.",
			Parameters: models.ToolSchema{
				Type: "object",
				Properties: map[string]models.ToolSchema{
					"channels": {Type: "array", Items: &models.ToolSchema{Type: "string"}},
				},
				Required: []string{"channels"},
			},
		},
		{
			Name:        NameInitiateDemoCreation,
			Description: "Mark that a product demo has been initiated for this customer. Idempotent.",
			Parameters: models.ToolSchema{
				Type: "object",
			},
		},
	}
}
