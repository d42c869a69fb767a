package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRadixRouterBasic(t *testing.T) {
	r := NewRadixRouter()
	handler := func(ctx any) {}
	r.Add("GET", "/", handler)
	r.Add("GET", "/hello", handler)
	r.Add("GET", "/hello/world", handler)

	tests := []struct {
		path        string
		shouldMatch bool
	}{
		{"/", true},
		{"/hello", true},
		{"/hello/world", true},
		{"/notfound", false},
	}

	for _, tt := range tests {
		h, _ := r.Find("GET", tt.path)
		assert.Equalf(t, tt.shouldMatch, h != nil, "path %s", tt.path)
	}
}

func TestRadixRouterPriority(t *testing.T) {
	r := NewRadixRouter()
	exactHandler := func(ctx any) {}
	paramHandler := func(ctx any) {}

	r.Add("GET", "/user/admin", exactHandler)
	r.Add("GET", "/user/:id", paramHandler)

	h, params := r.Find("GET", "/user/admin")
	require.NotNil(t, h)
	assert.Empty(t, params, "exact route should not produce params")

	h, params = r.Find("GET", "/user/123")
	require.NotNil(t, h)
	assert.Equal(t, "123", params["id"])
}

func TestRadixRouterMethodMismatch(t *testing.T) {
	r := NewRadixRouter()
	r.Add("GET", "/widgets", func(ctx any) {})

	h, _ := r.Find("POST", "/widgets")
	assert.Nil(t, h, "a route registered for GET must not match POST")
}

func TestRadixRouterParamMidPath(t *testing.T) {
	r := NewRadixRouter()
	r.Add("GET", "/users/:id/orders", func(ctx any) {})

	h, params := r.Find("GET", "/users/42/orders")
	require.NotNil(t, h)
	assert.Equal(t, "42", params["id"])

	h, _ = r.Find("GET", "/users/42")
	assert.Nil(t, h, "the trailing /orders segment is required")
}

func TestRadixRouterCatchAll(t *testing.T) {
	r := NewRadixRouter()
	r.Add("GET", "/static/*filepath", func(ctx any) {})

	h, params := r.Find("GET", "/static/css/site.css")
	require.NotNil(t, h)
	assert.Equal(t, "css/site.css", params["filepath"])
}

func TestRadixRouterMultipleParams(t *testing.T) {
	r := NewRadixRouter()
	r.Add("GET", "/repos/:owner/:name", func(ctx any) {})

	h, params := r.Find("GET", "/repos/coroserve/coroserve")
	require.NotNil(t, h)
	assert.Equal(t, "coroserve", params["owner"])
	assert.Equal(t, "coroserve", params["name"])
}

func BenchmarkRadixRouterStatic(b *testing.B) {
	r := NewRadixRouter()
	handler := func(ctx any) {}
	r.Add("GET", "/hello/world", handler)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/hello/world")
	}
}

func BenchmarkRadixRouterParam(b *testing.B) {
	r := NewRadixRouter()
	handler := func(ctx any) {}
	r.Add("GET", "/user/:id", handler)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/user/123")
	}
}
