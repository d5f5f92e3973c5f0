package service

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

func decodeObject(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal(raw, &obj))
	return obj
}

func TestResourceService(t *testing.T) {
	t.Parallel()

	t.Run("create assigns an id", func(t *testing.T) {
		t.Parallel()
		s := &ResourceService{Store: memory.NewStore()}
		ctx := testContext()

		doc, err := s.Create(ctx, "students", json.RawMessage(`{"name":"Ada","id":"ignored"}`))
		require.NoError(t, err)

		obj := decodeObject(t, doc)
		require.Equal(t, "Ada", obj["name"])
		require.NotEqual(t, "ignored", obj["id"])

		got, err := s.Get(ctx, "students", obj["id"].(string))
		require.NoError(t, err)
		require.JSONEq(t, string(doc), string(got))
	})

	t.Run("list filters on top-level members", func(t *testing.T) {
		t.Parallel()
		s := &ResourceService{Store: memory.NewStore()}
		ctx := testContext()

		for _, body := range []string{
			`{"name":"Ada","grade":"7","year":2025}`,
			`{"name":"Brian","grade":"8","year":2025}`,
			`{"name":"Cleo","grade":"7","year":2024}`,
		} {
			_, err := s.Create(ctx, "students", json.RawMessage(body))
			require.NoError(t, err)
		}

		all, err := s.List(ctx, "students", nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "Ada", decodeObject(t, all[0])["name"])

		seventh, err := s.List(ctx, "students", url.Values{"grade": {"7"}})
		require.NoError(t, err)
		require.Len(t, seventh, 2)

		current, err := s.List(ctx, "students", url.Values{"grade": {"7"}, "year": {"2025"}})
		require.NoError(t, err)
		require.Len(t, current, 1)
		require.Equal(t, "Ada", decodeObject(t, current[0])["name"])

		none, err := s.List(ctx, "students", url.Values{"house": {"red"}})
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("update keeps the stored id", func(t *testing.T) {
		t.Parallel()
		s := &ResourceService{Store: memory.NewStore()}
		ctx := testContext()

		doc, err := s.Create(ctx, "subjects", json.RawMessage(`{"name":"Maths"}`))
		require.NoError(t, err)
		id := decodeObject(t, doc)["id"].(string)

		updated, err := s.Update(ctx, "subjects", id, json.RawMessage(`{"name":"Physics","id":"other"}`))
		require.NoError(t, err)
		obj := decodeObject(t, updated)
		require.Equal(t, id, obj["id"])
		require.Equal(t, "Physics", obj["name"])

		_, err = s.Update(ctx, "subjects", "missing", json.RawMessage(`{}`))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		s := &ResourceService{Store: memory.NewStore()}
		ctx := testContext()

		doc, err := s.Create(ctx, "exams", json.RawMessage(`{"name":"Midterm"}`))
		require.NoError(t, err)
		id := decodeObject(t, doc)["id"].(string)

		require.NoError(t, s.Delete(ctx, "exams", id))
		_, err = s.Get(ctx, "exams", id)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.Delete(ctx, "exams", id), store.ErrNotFound)
	})

	t.Run("malformed ids are not found", func(t *testing.T) {
		t.Parallel()
		s := &ResourceService{Store: memory.NewStore()}
		ctx := testContext()

		for _, id := range []string{"", "42", "../students"} {
			_, err := s.Get(ctx, "teachers", id)
			require.ErrorIs(t, err, store.ErrNotFound, id)
			require.ErrorIs(t, s.Delete(ctx, "teachers", id), store.ErrNotFound, id)
		}
	})

	t.Run("create many", func(t *testing.T) {
		t.Parallel()
		s := &ResourceService{Store: memory.NewStore()}
		ctx := testContext()

		docs, err := s.CreateMany(ctx, "exam-marks", []json.RawMessage{
			json.RawMessage(`{"student":"1","mark":71}`),
			json.RawMessage(`{"student":"2","mark":64}`),
		})
		require.NoError(t, err)
		require.Len(t, docs, 2)

		high, err := s.List(ctx, "exam-marks", url.Values{"mark": {"71"}})
		require.NoError(t, err)
		require.Len(t, high, 1)
	})

	t.Run("rejects unknown resources and non-objects", func(t *testing.T) {
		t.Parallel()
		s := &ResourceService{Store: memory.NewStore()}
		ctx := testContext()

		_, err := s.List(ctx, "parents", nil)
		require.ErrorIs(t, err, ErrUnknownResource)
		_, err = s.Get(ctx, "parents", "1")
		require.ErrorIs(t, err, ErrUnknownResource)
		require.ErrorIs(t, s.Delete(ctx, "parents", "1"), ErrUnknownResource)

		for _, body := range []string{`[1,2]`, `"text"`, `null`, `{`} {
			_, err := s.Create(ctx, "grades", json.RawMessage(body))
			require.ErrorIs(t, err, ErrInvalidDocument, body)
		}
	})
}
