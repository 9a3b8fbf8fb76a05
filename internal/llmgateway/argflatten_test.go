package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenArguments_Scalars(t *testing.T) {
	raw := map[string]any{
		"name":    "Jordan",
		"count":   float64(3),
		"enabled": true,
		"missing": nil,
	}
	out := flattenArguments(raw)
	assert.Equal(t, "Jordan", out["name"])
	assert.Equal(t, float64(3), out["count"])
	assert.Equal(t, true, out["enabled"])
	assert.Nil(t, out["missing"])
}

func TestFlattenArguments_ScalarList(t *testing.T) {
	raw := map[string]any{
		"channels": []any{"sms", "email", "push"},
	}
	out := flattenArguments(raw)
	require.IsType(t, []string{}, out["channels"])
	assert.Equal(t, []string{"sms", "email", "push"}, out["channels"])
}

func TestFlattenArguments_MixedList(t *testing.T) {
	raw := map[string]any{
		"values": []any{"a", float64(2), map[string]any{"x": 1}},
	}
	out := flattenArguments(raw)
	require.IsType(t, []string{}, out["values"])
	list := out["values"].([]string)
	assert.Len(t, list, 3)
	assert.Equal(t, "a", list[0])
}

func TestFlattenArguments_NestedMap(t *testing.T) {
	raw := map[string]any{
		"address": map[string]any{
			"city":  "Austin",
			"zip":   float64(78701),
			"tags":  []any{"home"},
		},
	}
	out := flattenArguments(raw)
	nested, ok := out["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Austin", nested["city"])
	assert.Equal(t, []string{"home"}, nested["tags"])
}

func TestFlattenArguments_NilInput(t *testing.T) {
	assert.Nil(t, flattenArguments(nil))
}

func TestScalarToString(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{"hi", "hi", true},
		{true, "true", true},
		{float64(1.5), "1.5", true},
		{42, "42", true},
		{int64(7), "7", true},
		{map[string]any{}, "", false},
	}
	for _, c := range cases {
		got, ok := scalarToString(c.in)
		assert.Equal(t, c.ok, ok)
		if ok {
			assert.Equal(t, c.want, got)
		}
	}
}
