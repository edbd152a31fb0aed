package engine_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalis-ai/legalis-go/internal/models"
)

func TestStoreFocus(t *testing.T) {
	var mu sync.Mutex
	body := []map[string]any{
		{"_id": "a", "title": "Alpha", "status": "active"},
		{"_id": "b", "title": "Bravo", "status": "active"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/assistant/sessions", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		writeJSON(t, w, okEnvelope(body))
	})
	eng := newTestEngine(t, mux, basicUser(0))
	require.NoError(t, eng.LoadAll(context.Background()))

	t.Run("set and clear", func(t *testing.T) {
		eng.SetCurrent(eng.Sessions()[1])
		cur := eng.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "b", cur.ID)

		eng.ClearCurrent()
		assert.Nil(t, eng.Current())
	})

	t.Run("focusing a listed session shares the stored entry", func(t *testing.T) {
		eng.SetCurrent(eng.Sessions()[0])

		mu.Lock()
		body = []map[string]any{
			{"_id": "a", "title": "Alpha renamed", "status": "active"},
			{"_id": "b", "title": "Bravo", "status": "active"},
		}
		mu.Unlock()
		require.NoError(t, eng.LoadAll(context.Background()))

		cur := eng.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "Alpha renamed", cur.Title)
	})

	t.Run("focus on an unlisted session is allowed", func(t *testing.T) {
		outsider := serverSession("x", "Not in list", models.CategoryTax, nil)
		eng.SetCurrent(&outsider)
		cur := eng.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "x", cur.ID)
		require.Len(t, eng.Sessions(), 2, "focusing does not insert into the list")
	})
}

func TestStoreHandsOutCopies(t *testing.T) {
	msg := models.Message{ID: "m1", Role: models.RoleUser, Content: "original"}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/assistant/sessions", func(w http.ResponseWriter, r *http.Request) {
		sess := serverSession("a", "Alpha", models.CategoryCivil, []models.Message{msg})
		writeJSON(t, w, okEnvelope([]models.Session{sess}))
	})
	eng := newTestEngine(t, mux, basicUser(0))
	require.NoError(t, eng.LoadAll(context.Background()))
	eng.SetCurrent(eng.Sessions()[0])

	got := eng.Sessions()[0]
	got.Title = "mutated"
	got.Messages[0].Content = "mutated"

	fresh := eng.Sessions()[0]
	assert.Equal(t, "Alpha", fresh.Title, "callers cannot mutate stored sessions")
	assert.Equal(t, "original", fresh.Messages[0].Content)

	cur := eng.Current()
	cur.Title = "mutated again"
	assert.Equal(t, "Alpha", eng.Current().Title)
}
