package canonical

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	cases := map[string]any{
		"recipe_envelope": map[string]any{
			"body":    map[string]any{"title": "Soup", "description": "x", "is_public": true},
			"extra":   map[string]any{},
			"path":    "/api/v1/recipes/",
			"user_id": int64(1),
		},
		"ingredient_envelope": map[string]any{
			"body":    map[string]any{"name": "Flour", "quantity": 200.0, "unit": "g"},
			"extra":   map[string]any{"recipe_id": uint64(7)},
			"path":    "/api/v1/recipes/7/ingredients/",
			"user_id": int64(1),
		},
		"comment_envelope": map[string]any{
			"body":    map[string]any{"text": "Вкусно! <3 & \"ok\"\n"},
			"extra":   map[string]any{"recipe_id": 7},
			"path":    "/api/v1/recipes/7/comments/",
			"user_id": nil,
		},
		"mixed_controls": map[string]any{
			"b": []any{1, map[string]any{"z": nil, "a": false}},
			"a": " \x1f\x7f\t\b\f\\/",
			"é": []string{"x", "\u2028"},
			"Z": []any{},
		},
	}

	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Marshal(v)
			require.NoError(t, err)
			g.Assert(t, name, got)
		})
	}
}

func TestMarshal_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"title": "Soup", "description": "x", "is_public": true}
	b := map[string]any{}
	b["is_public"] = true
	b["title"] = "Soup"
	b["description"] = "x"

	for i := 0; i < 20; i++ {
		ab, err := Marshal(a)
		require.NoError(t, err)
		bb, err := Marshal(b)
		require.NoError(t, err)
		require.Equal(t, string(ab), string(bb))
	}
}

func TestMarshal_Floats(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{200.0, "200.0"},
		{0.1, "0.1"},
		{2.5, "2.5"},
		{math.Copysign(0, -1), "-0.0"},
		{1e16, "1e+16"},
		{1e15, "1000000000000000.0"},
		{1.5e16, "1.5e+16"},
		{1e-5, "1e-05"},
		{0.0001, "0.0001"},
		{1.234e-7, "1.234e-07"},
		{123456789.125, "123456789.125"},
		{1e100, "1e+100"},
		{3.0000000000000004, "3.0000000000000004"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		got, err := Marshal(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, string(got), "input %v", tt.in)
	}
}

func TestMarshal_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", -42, "-42"},
		{"uint64", uint64(18446744073709551615), "18446744073709551615"},
		{"json int", json.Number("12"), "12"},
		{"json float", json.Number("12.50"), "12.5"},
		{"json exp", json.Number("1e2"), "100.0"},
		{"empty object", map[string]any{}, "{}"},
		{"empty array", []any{}, "[]"},
		{"string map", map[string]string{"b": "2", "a": "1"}, `{"a":"1","b":"2"}`},
		{"html", "<a href='x'>&</a>", `"<a href='x'>&</a>"`},
		{"invalid utf8", "a\xffb", "\"a�b\""},
		{"nul", "\x00", `"\u0000"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(map[string]any{"x": struct{}{}})
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Marshal([]any{1, make(chan int)})
	require.ErrorIs(t, err, ErrUnsupportedType)

	require.Panics(t, func() { MustMarshal(struct{}{}) })
}
