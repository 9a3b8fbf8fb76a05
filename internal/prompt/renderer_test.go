package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesPlaceholders(t *testing.T) {
	out, err := Render("Context: {call_context}\nRaw: {raw_text}", map[string]string{
		"call_context": "acme corp, 15 employees",
		"raw_text":     "we have fifdeen employees",
	})
	require.NoError(t, err)
	assert.Equal(t, "Context: acme corp, 15 employees\nRaw: we have fifdeen employees", out)
}

func TestRender_MissingPlaceholderIsError(t *testing.T) {
	_, err := Render("Hello {name}", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestRender_UnterminatedPlaceholderIsError(t *testing.T) {
	_, err := Render("Hello {name", map[string]string{"name": "x"})
	require.Error(t, err)
}

func TestRender_NoPlaceholders(t *testing.T) {
	out, err := Render("a static prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "a static prompt", out)
}

func TestRender_Deterministic(t *testing.T) {
	ctx := map[string]string{"a": "1", "b": "2"}
	first, err := Render("{a}-{b}-{a}", ctx)
	require.NoError(t, err)
	second, err := Render("{a}-{b}-{a}", ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "1-2-1", first)
}

func TestPlaceholders_DedupesInOrder(t *testing.T) {
	names := Placeholders("{b} and {a} and {b} again")
	assert.Equal(t, []string{"b", "a"}, names)
}
