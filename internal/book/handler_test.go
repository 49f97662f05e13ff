package book

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkcircle/inkcircle-api/internal/auth"
	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/review"
	"github.com/inkcircle/inkcircle-api/internal/tag"
	"github.com/inkcircle/inkcircle-api/internal/user"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

type fakeStore struct {
	books map[uuid.UUID]*Book
}

func newFakeStore() *fakeStore {
	return &fakeStore{books: make(map[uuid.UUID]*Book)}
}

func (f *fakeStore) Create(_ context.Context, params CreateParams) (*Book, error) {
	b := &Book{
		ID:            uuid.New(),
		Title:         params.Title,
		Author:        params.Author,
		Publisher:     params.Publisher,
		PublishedDate: params.PublishedDate,
		PageCount:     params.PageCount,
		Language:      params.Language,
		UserID:        params.UserID,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.books[b.ID] = b
	return b, nil
}

func (f *fakeStore) List(_ context.Context) ([]*Book, error) {
	out := make([]*Book, 0, len(f.books))
	for _, b := range f.books {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*Book, error) {
	out := make([]*Book, 0)
	for _, b := range f.books {
		if b.UserID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) GetOwned(_ context.Context, id, ownerID uuid.UUID) (*Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.UserID != ownerID {
		return nil, ErrNotOwner
	}
	return b, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, params UpdateParams) (*Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	if params.Title != nil {
		b.Title = *params.Title
	}
	if params.PageCount != nil {
		b.PageCount = *params.PageCount
	}
	b.UpdatedAt = time.Now()
	return b, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.books[id]; !ok {
		return ErrNotFound
	}
	delete(f.books, id)
	return nil
}

type fakeReviewLister struct {
	reviews map[uuid.UUID][]*review.Review
}

func (f *fakeReviewLister) ListByBook(_ context.Context, bookID uuid.UUID) ([]*review.Review, error) {
	return f.reviews[bookID], nil
}

type fakeTagLister struct {
	tags map[uuid.UUID][]*tag.Tag
}

func (f *fakeTagLister) ListByBook(_ context.Context, bookID uuid.UUID) ([]*tag.Tag, error) {
	return f.tags[bookID], nil
}

type fixture struct {
	handler *Handler
	store   *fakeStore
	reviews *fakeReviewLister
	tags    *fakeTagLister
}

func newFixture() *fixture {
	store := newFakeStore()
	reviews := &fakeReviewLister{reviews: make(map[uuid.UUID][]*review.Review)}
	tags := &fakeTagLister{tags: make(map[uuid.UUID][]*tag.Tag)}
	return &fixture{
		handler: NewHandler(store, reviews, tags, validate.New()),
		store:   store,
		reviews: reviews,
		tags:    tags,
	}
}

func testUser() *user.User {
	return &user.User{
		ID:         uuid.New(),
		Username:   "reader",
		Email:      "reader@example.com",
		Role:       user.RoleUser,
		IsVerified: true,
	}
}

func requestWithUser(method, target string, body []byte, u *user.User, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := req.Context()
	if u != nil {
		ctx = context.WithValue(ctx, auth.UserContextKey, u)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Code
}

func TestCreateBook(t *testing.T) {
	t.Run("caller becomes the owner", func(t *testing.T) {
		fx := newFixture()
		caller := testUser()

		payload, _ := json.Marshal(map[string]any{
			"title":          "The Dispossessed",
			"author":         "Ursula K. Le Guin",
			"publisher":      "Harper & Row",
			"published_date": "1974-05-01",
			"page_count":     341,
			"language":       "en",
		})

		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books", payload, caller, nil))

		require.Equal(t, http.StatusCreated, rec.Code)

		var created Book
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
		assert.Equal(t, caller.ID, created.UserID)
		assert.Equal(t, "The Dispossessed", created.Title)
	})

	t.Run("rejects invalid page count", func(t *testing.T) {
		fx := newFixture()

		payload, _ := json.Marshal(map[string]any{
			"title":          "Broken",
			"author":         "Nobody",
			"publisher":      "Nowhere",
			"published_date": "2020-01-01",
			"page_count":     0,
			"language":       "en",
		})

		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books", payload, testUser(), nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeValidationError, errorCode(t, rec))
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		fx := newFixture()

		payload, _ := json.Marshal(map[string]any{
			"title":          "Broken",
			"author":         "Nobody",
			"publisher":      "Nowhere",
			"published_date": "May 1974",
			"page_count":     100,
			"language":       "en",
		})

		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books", payload, testUser(), nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetBook(t *testing.T) {
	t.Run("composes reviews and tags", func(t *testing.T) {
		fx := newFixture()
		owner := testUser()
		b, err := fx.store.Create(context.Background(), CreateParams{
			Title: "Solaris", Author: "Stanisław Lem", Publisher: "MON",
			PublishedDate: time.Now(), PageCount: 204, Language: "pl", UserID: owner.ID,
		})
		require.NoError(t, err)

		fx.reviews.reviews[b.ID] = []*review.Review{{ID: uuid.New(), Rating: 5, BookID: b.ID}}
		fx.tags.tags[b.ID] = []*tag.Tag{{ID: uuid.New(), Name: "sci-fi"}}

		rec := httptest.NewRecorder()
		fx.handler.Get(rec, requestWithUser(http.MethodGet, "/books/"+b.ID.String(), nil, owner, map[string]string{"bookID": b.ID.String()}))

		require.Equal(t, http.StatusOK, rec.Code)

		var detail Detail
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
		assert.Len(t, detail.Reviews, 1)
		assert.Len(t, detail.Tags, 1)
		assert.Equal(t, "sci-fi", detail.Tags[0].Name)
	})

	t.Run("absent book is 404", func(t *testing.T) {
		fx := newFixture()
		id := uuid.New()

		rec := httptest.NewRecorder()
		fx.handler.Get(rec, requestWithUser(http.MethodGet, "/books/"+id.String(), nil, testUser(), map[string]string{"bookID": id.String()}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, httputil.CodeNotFound, errorCode(t, rec))
	})
}

func TestUpdateBookOwnership(t *testing.T) {
	fx := newFixture()
	owner := testUser()
	stranger := testUser()

	b, err := fx.store.Create(context.Background(), CreateParams{
		Title: "Dune", Author: "Frank Herbert", Publisher: "Chilton",
		PublishedDate: time.Now(), PageCount: 412, Language: "en", UserID: owner.ID,
	})
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]any{"title": "Dune (revised)"})
	params := map[string]string{"bookID": b.ID.String()}

	t.Run("non-owner gets 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Update(rec, requestWithUser(http.MethodPatch, "/books/"+b.ID.String(), payload, stranger, params))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, httputil.CodeForbidden, errorCode(t, rec))
	})

	t.Run("absent book gets 404", func(t *testing.T) {
		ghost := uuid.New()
		rec := httptest.NewRecorder()
		fx.handler.Update(rec, requestWithUser(http.MethodPatch, "/books/"+ghost.String(), payload, owner, map[string]string{"bookID": ghost.String()}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, httputil.CodeNotFound, errorCode(t, rec))
	})

	t.Run("owner succeeds", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Update(rec, requestWithUser(http.MethodPatch, "/books/"+b.ID.String(), payload, owner, params))

		require.Equal(t, http.StatusOK, rec.Code)

		var updated Book
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
		assert.Equal(t, "Dune (revised)", updated.Title)
		assert.Equal(t, owner.ID, updated.UserID, "ownership never changes")
	})
}

func TestDeleteBookOwnership(t *testing.T) {
	fx := newFixture()
	owner := testUser()
	stranger := testUser()

	b, err := fx.store.Create(context.Background(), CreateParams{
		Title: "Blindsight", Author: "Peter Watts", Publisher: "Tor",
		PublishedDate: time.Now(), PageCount: 384, Language: "en", UserID: owner.ID,
	})
	require.NoError(t, err)
	params := map[string]string{"bookID": b.ID.String()}

	t.Run("non-owner gets 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Delete(rec, requestWithUser(http.MethodDelete, "/books/"+b.ID.String(), nil, stranger, params))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner succeeds", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Delete(rec, requestWithUser(http.MethodDelete, "/books/"+b.ID.String(), nil, owner, params))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("second delete is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Delete(rec, requestWithUser(http.MethodDelete, "/books/"+b.ID.String(), nil, owner, params))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListMine(t *testing.T) {
	fx := newFixture()
	owner := testUser()
	other := testUser()

	for _, uid := range []uuid.UUID{owner.ID, owner.ID, other.ID} {
		_, err := fx.store.Create(context.Background(), CreateParams{
			Title: "T", Author: "A", Publisher: "P",
			PublishedDate: time.Now(), PageCount: 1, Language: "en", UserID: uid,
		})
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	fx.handler.ListMine(rec, requestWithUser(http.MethodGet, "/books/mine", nil, owner, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var books []*Book
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&books))
	assert.Len(t, books, 2)
}

func TestListByUser(t *testing.T) {
	fx := newFixture()
	owner := testUser()
	other := testUser()

	for _, uid := range []uuid.UUID{owner.ID, other.ID, other.ID} {
		_, err := fx.store.Create(context.Background(), CreateParams{
			Title: "T", Author: "A", Publisher: "P",
			PublishedDate: time.Now(), PageCount: 1, Language: "en", UserID: uid,
		})
		require.NoError(t, err)
	}

	t.Run("any caller can list another user's books", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.ListByUser(rec, requestWithUser(http.MethodGet, "/books/user/"+other.ID.String(), nil, owner, map[string]string{"userID": other.ID.String()}))

		require.Equal(t, http.StatusOK, rec.Code)

		var books []*Book
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&books))
		assert.Len(t, books, 2)
	})

	t.Run("unknown user yields an empty list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ghost := uuid.New()
		fx.handler.ListByUser(rec, requestWithUser(http.MethodGet, "/books/user/"+ghost.String(), nil, owner, map[string]string{"userID": ghost.String()}))

		require.Equal(t, http.StatusOK, rec.Code)

		var books []*Book
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&books))
		assert.Empty(t, books)
	})

	t.Run("malformed user id is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.ListByUser(rec, requestWithUser(http.MethodGet, "/books/user/nope", nil, owner, map[string]string{"userID": "nope"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
