package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandBothStyles(t *testing.T) {
	vars := map[string]any{"input": "hello", "count": 3}

	tests := []struct {
		in   string
		want string
	}{
		{"Answer: $input", "Answer: hello"},
		{"Answer: ${input}", "Answer: hello"},
		{"$count items", "3 items"},
		{"no placeholders", "no placeholders"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.in, vars))
		})
	}
}

func TestExpandWordBoundary(t *testing.T) {
	vars := map[string]any{"input": "x"}
	// $input must not match inside $inputMapping
	assert.Equal(t, "x vs $inputMapping", Expand("$input vs $inputMapping", vars))
}

func TestExpandMissingKeep(t *testing.T) {
	assert.Equal(t, "keep $missing", Expand("keep $missing", map[string]any{}))
}

func TestExpandMissingEmpty(t *testing.T) {
	e := NewExpander(WithMissingAction(MissingEmpty))
	got, err := e.Expand("drop [$missing]", nil)
	require.NoError(t, err)
	assert.Equal(t, "drop []", got)
}

func TestExpandMissingError(t *testing.T) {
	e := NewExpander(WithMissingAction(MissingError))
	_, err := e.Expand("${a} and ${b}", map[string]any{"a": 1})
	require.Error(t, err)

	var undef *UndefinedVariableError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, []string{"b"}, undef.Names)
}

func TestExpandStyleToggles(t *testing.T) {
	vars := map[string]any{"v": "x"}

	braceOnly := NewExpander(WithDollarStyle(false))
	got, err := braceOnly.Expand("${v} $v", vars)
	require.NoError(t, err)
	assert.Equal(t, "x $v", got)

	dollarOnly := NewExpander(WithBraceStyle(false))
	got, err = dollarOnly.Expand("${v} $v", vars)
	require.NoError(t, err)
	assert.Equal(t, "${v} x", got)
}

func TestExpandMap(t *testing.T) {
	vars := map[string]any{"host": "example.com", "expr": "2+2"}

	got := ExpandMap(map[string]any{
		"url":        "https://${host}/api",
		"expression": "$expr",
		"port":       8080,
		"nested":     map[string]any{"inner": "$host"},
	}, vars)

	assert.Equal(t, "https://example.com/api", got["url"])
	assert.Equal(t, "2+2", got["expression"])
	assert.Equal(t, 8080, got["port"])
	assert.Equal(t, "example.com", got["nested"].(map[string]any)["inner"])
}
