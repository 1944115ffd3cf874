package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncTool(t *testing.T) {
	echo := NewFunc("echo", "echoes its input", func(ctx context.Context, input map[string]any) (any, error) {
		return input["input"], nil
	})

	assert.Equal(t, "echo", echo.Name())
	assert.Equal(t, "echoes its input", echo.Description())

	result, err := echo.Invoke(context.Background(), map[string]any{"input": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", result)
}

func TestNewFuncPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewFunc("", "desc", func(ctx context.Context, input map[string]any) (any, error) { return nil, nil })
	})
	assert.Panics(t, func() {
		NewFunc("name", "desc", nil)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunc("calculator", "", func(ctx context.Context, input map[string]any) (any, error) {
		return 4, nil
	}))

	got, err := r.Get("calculator")
	require.NoError(t, err)
	assert.Equal(t, "calculator", got.Name())
	assert.True(t, r.Has("calculator"))
	assert.Equal(t, []string{"calculator"}, r.Names())

	_, err = r.Get("missing")
	require.Error(t, err)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Name)
}
