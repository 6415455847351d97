package recipegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_Generate(t *testing.T) {
	recipeJSON := `{"title":"Pad Thai","summary":"Street food classic","ingredients":["rice noodles","tamarind"],"directions":["soak noodles","stir fry"]}`

	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		res := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": recipeJSON}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(res))
	}))
	defer upstream.Close()

	svc := NewService(true, upstream.URL, "sk-test", zap.NewNop().Sugar())

	recipe, err := svc.Generate(context.Background(), "pad thai")
	require.NoError(t, err)
	assert.Equal(t, "Pad Thai", recipe.Title)
	assert.Len(t, recipe.Ingredients, 2)
	assert.Len(t, recipe.Directions, 2)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestService_Generate_Disabled(t *testing.T) {
	svc := NewService(false, "http://127.0.0.1:1", "", zap.NewNop().Sugar())

	_, err := svc.Generate(context.Background(), "pad thai")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestService_Generate_EmptyPrompt(t *testing.T) {
	svc := NewService(true, "http://127.0.0.1:1", "", zap.NewNop().Sugar())

	_, err := svc.Generate(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestService_Generate_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	svc := NewService(true, upstream.URL, "sk-test", zap.NewNop().Sugar())

	_, err := svc.Generate(context.Background(), "pad thai")
	assert.Error(t, err)
}
