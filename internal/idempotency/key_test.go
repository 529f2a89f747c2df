package idempotency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func uid(v int64) *int64 { return &v }

func soup(title string) map[string]any {
	return map[string]any{"title": title, "description": "x", "is_public": true}
}

// Expected keys were produced by the previous deployment and are already
// persisted, so they must never change.
func TestDerive_KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			name: "recipe user 1",
			in:   Input{Path: RecipesPath(), UserID: uid(1), Body: soup("Soup")},
			want: "4215bced-f841-5e8a-b4e2-a59323d7c3f2",
		},
		{
			name: "recipe user 2",
			in:   Input{Path: RecipesPath(), UserID: uid(2), Body: soup("Soup")},
			want: "6ce45b4d-a7fa-5e5f-ba1a-6fe2b3a8ed35",
		},
		{
			name: "recipe anonymous",
			in:   Input{Path: RecipesPath(), Body: soup("Soup")},
			want: "db82fa37-04f4-51a0-ba5b-5cdf0b35e40c",
		},
		{
			name: "recipe different title",
			in:   Input{Path: RecipesPath(), UserID: uid(1), Body: soup("Soup2")},
			want: "4a4e1199-2796-5b03-80aa-5267109f5368",
		},
		{
			name: "recipe null description",
			in: Input{Path: RecipesPath(), UserID: uid(1), Body: map[string]any{
				"title": "Soup", "description": nil, "is_public": true,
			}},
			want: "604b521d-870f-5c29-b78e-ae13285f6a51",
		},
		{
			name: "ingredient",
			in: Input{
				Path:   IngredientsPath(7),
				UserID: uid(1),
				Body:   map[string]any{"name": "Flour", "quantity": 200.0, "unit": "g"},
				Extra:  map[string]any{"recipe_id": uint64(7)},
			},
			want: "37aa523a-8bf9-5e37-b3c0-7780ab65672c",
		},
		{
			name: "ingredient fractional quantity",
			in: Input{
				Path:   IngredientsPath(7),
				UserID: uid(1),
				Body:   map[string]any{"name": "Flour", "quantity": 0.1, "unit": "g"},
				Extra:  map[string]any{"recipe_id": uint64(7)},
			},
			want: "863884d6-111b-5e2f-ab43-5550ecf4efb4",
		},
		{
			name: "comment recipe 7",
			in: Input{
				Path:   CommentsPath(7),
				UserID: uid(1),
				Body:   map[string]any{"text": "Вкусно! <3 & \"ok\"\n"},
				Extra:  map[string]any{"recipe_id": uint64(7)},
			},
			want: "2e2909a3-12e4-5d8d-ad0b-d8ed17686c34",
		},
		{
			name: "comment recipe 8",
			in: Input{
				Path:   CommentsPath(8),
				UserID: uid(1),
				Body:   map[string]any{"text": "Вкусно! <3 & \"ok\"\n"},
				Extra:  map[string]any{"recipe_id": uint64(8)},
			},
			want: "ec0a33fb-8992-59d7-aab6-c8bed6104430",
		},
		{
			name: "empty body",
			in:   Input{Path: RecipesPath(), UserID: uid(1)},
			want: "281406c5-0cb5-5ef5-a986-2ff4f6f643ce",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.in)
			require.Equal(t, tt.want, got.String())
			require.Equal(t, 5, int(got.Version()))
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	in := Input{Path: RecipesPath(), UserID: uid(1), Body: soup("Soup")}
	first := Derive(in)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Derive(Input{Path: RecipesPath(), UserID: uid(1), Body: soup("Soup")}))
	}
}

func TestDerive_Distinct(t *testing.T) {
	base := Input{
		Path:   IngredientsPath(7),
		UserID: uid(1),
		Body:   map[string]any{"name": "Flour", "quantity": 200.0, "unit": "g"},
		Extra:  map[string]any{"recipe_id": uint64(7)},
	}
	variants := []Input{
		{Path: IngredientsPath(8), UserID: base.UserID, Body: base.Body, Extra: base.Extra},
		{Path: base.Path, UserID: uid(2), Body: base.Body, Extra: base.Extra},
		{Path: base.Path, Body: base.Body, Extra: base.Extra},
		{Path: base.Path, UserID: base.UserID, Body: map[string]any{"name": "flour", "quantity": 200.0, "unit": "g"}, Extra: base.Extra},
		{Path: base.Path, UserID: base.UserID, Body: base.Body, Extra: map[string]any{"recipe_id": uint64(8)}},
	}
	seen := map[string]bool{Derive(base).String(): true}
	for _, v := range variants {
		k := Derive(v).String()
		require.False(t, seen[k], "collision for %+v", v)
		seen[k] = true
	}
}

func TestPaths(t *testing.T) {
	require.Equal(t, "/api/v1/recipes/", RecipesPath())
	require.Equal(t, "/api/v1/recipes/12/ingredients/", IngredientsPath(12))
	require.Equal(t, "/api/v1/recipes/12/comments/", CommentsPath(12))
}
