package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

type fakeProfileStore struct {
	users      map[uuid.UUID]*User
	takenNames map[string]bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		users:      make(map[uuid.UUID]*User),
		takenNames: make(map[string]bool),
	}
}

func (f *fakeProfileStore) add(u *User) {
	f.users[u.ID] = u
	f.takenNames[u.Username] = true
}

func (f *fakeProfileStore) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (f *fakeProfileStore) UpdateProfile(_ context.Context, userID uuid.UUID, params UpdateProfileParams) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if params.Username != nil && *params.Username != u.Username {
		if f.takenNames[*params.Username] {
			return nil, ErrDuplicateUsername
		}
		delete(f.takenNames, u.Username)
		u.Username = *params.Username
		f.takenNames[u.Username] = true
	}
	if params.FirstName != nil {
		u.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		u.LastName = *params.LastName
	}
	u.UpdatedAt = time.Now()
	return u, nil
}

func currentUserProvider(u *User) CurrentUserProvider {
	return func(_ context.Context) (*User, bool) {
		return u, u != nil
	}
}

func seededUser() *User {
	return &User{
		ID:         uuid.New(),
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Username:   "adal",
		Email:      "ada@example.com",
		Role:       RoleUser,
		IsVerified: true,
	}
}

func TestMe(t *testing.T) {
	t.Run("returns the authenticated user without the password hash", func(t *testing.T) {
		store := newFakeProfileStore()
		u := seededUser()
		u.PasswordHash = "super-secret-hash"
		store.add(u)

		handler := NewHandler(store, currentUserProvider(u), validate.New())

		rec := httptest.NewRecorder()
		handler.Me(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "super-secret-hash")

		var got User
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "adal", got.Username)
	})

	t.Run("missing identity is 401", func(t *testing.T) {
		handler := NewHandler(newFakeProfileStore(), currentUserProvider(nil), validate.New())

		rec := httptest.NewRecorder()
		handler.Me(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUpdateMe(t *testing.T) {
	patch := func(handler *Handler, body map[string]any) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(body)
		rec := httptest.NewRecorder()
		handler.UpdateMe(rec, httptest.NewRequest(http.MethodPatch, "/users/me", bytes.NewReader(payload)))
		return rec
	}

	t.Run("updates provided fields only", func(t *testing.T) {
		store := newFakeProfileStore()
		u := seededUser()
		store.add(u)
		handler := NewHandler(store, currentUserProvider(u), validate.New())

		rec := patch(handler, map[string]any{"first_name": "Augusta"})

		require.Equal(t, http.StatusOK, rec.Code)

		var got User
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "Augusta", got.FirstName)
		assert.Equal(t, "Lovelace", got.LastName)
		assert.Equal(t, "adal", got.Username)
	})

	t.Run("taken username is 409", func(t *testing.T) {
		store := newFakeProfileStore()
		u := seededUser()
		store.add(u)
		other := seededUser()
		other.Username = "grace"
		store.add(other)
		handler := NewHandler(store, currentUserProvider(u), validate.New())

		rec := patch(handler, map[string]any{"username": "grace"})

		assert.Equal(t, http.StatusConflict, rec.Code)

		var body httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, httputil.CodeConflict, body.Code)
	})

	t.Run("invalid username is rejected", func(t *testing.T) {
		store := newFakeProfileStore()
		u := seededUser()
		store.add(u)
		handler := NewHandler(store, currentUserProvider(u), validate.New())

		rec := patch(handler, map[string]any{"username": "x"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty body is a no-op", func(t *testing.T) {
		store := newFakeProfileStore()
		u := seededUser()
		store.add(u)
		handler := NewHandler(store, currentUserProvider(u), validate.New())

		rec := patch(handler, map[string]any{})

		require.Equal(t, http.StatusOK, rec.Code)

		var got User
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "adal", got.Username)
	})
}
