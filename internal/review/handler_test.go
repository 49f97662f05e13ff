package review

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
	"github.com/inkcircle/inkcircle-api/internal/user"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

type reviewKey struct {
	userID uuid.UUID
	bookID uuid.UUID
}

type fakeStore struct {
	reviews map[uuid.UUID]*Review
	byPair  map[reviewKey]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reviews: make(map[uuid.UUID]*Review),
		byPair:  make(map[reviewKey]uuid.UUID),
	}
}

func (f *fakeStore) Create(_ context.Context, params CreateParams) (*Review, error) {
	key := reviewKey{userID: params.UserID, bookID: params.BookID}
	if _, ok := f.byPair[key]; ok {
		return nil, ErrDuplicate
	}

	r := &Review{
		ID:         uuid.New(),
		Rating:     params.Rating,
		ReviewText: params.ReviewText,
		UserID:     params.UserID,
		BookID:     params.BookID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.reviews[r.ID] = r
	f.byPair[key] = r.ID
	return r, nil
}

func (f *fakeStore) ExistsForUserAndBook(_ context.Context, userID, bookID uuid.UUID) (bool, error) {
	_, ok := f.byPair[reviewKey{userID: userID, bookID: bookID}]
	return ok, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]*Review, error) {
	out := make([]*Review, 0, len(f.reviews))
	for _, r := range f.reviews {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) ListByBook(_ context.Context, bookID uuid.UUID) ([]*Review, error) {
	out := make([]*Review, 0)
	for _, r := range f.reviews {
		if r.BookID == bookID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*Review, error) {
	r, ok := f.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) GetOwned(_ context.Context, id, ownerID uuid.UUID) (*Review, error) {
	r, ok := f.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.UserID != ownerID {
		return nil, ErrNotOwner
	}
	return r, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	r, ok := f.reviews[id]
	if !ok {
		return ErrNotFound
	}
	delete(f.byPair, reviewKey{userID: r.UserID, bookID: r.BookID})
	delete(f.reviews, id)
	return nil
}

type fakeBookChecker struct {
	existing map[uuid.UUID]bool
}

func (f *fakeBookChecker) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.existing[id], nil
}

type fixture struct {
	handler *Handler
	store   *fakeStore
	books   *fakeBookChecker
}

func newFixture() *fixture {
	store := newFakeStore()
	books := &fakeBookChecker{existing: make(map[uuid.UUID]bool)}
	return &fixture{
		handler: NewHandler(store, books, validate.New()),
		store:   store,
		books:   books,
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

func TestCreateReview(t *testing.T) {
	payload := func(rating int) []byte {
		b, _ := json.Marshal(map[string]any{"rating": rating, "review_text": "worth reading"})
		return b
	}

	t.Run("creates a review for an existing book", func(t *testing.T) {
		fx := newFixture()
		caller := testUser()
		bookID := uuid.New()
		fx.books.existing[bookID] = true

		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload(4), caller, map[string]string{"bookID": bookID.String()}))

		require.Equal(t, http.StatusCreated, rec.Code)

		var created Review
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
		assert.Equal(t, caller.ID, created.UserID)
		assert.Equal(t, bookID, created.BookID)
		assert.Equal(t, 4, created.Rating)
	})

	t.Run("absent book is 404", func(t *testing.T) {
		fx := newFixture()
		bookID := uuid.New()

		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload(4), testUser(), map[string]string{"bookID": bookID.String()}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, httputil.CodeNotFound, errorCode(t, rec))
	})

	t.Run("second review for the same book is 409", func(t *testing.T) {
		fx := newFixture()
		caller := testUser()
		bookID := uuid.New()
		fx.books.existing[bookID] = true
		params := map[string]string{"bookID": bookID.String()}

		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload(4), caller, params))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload(2), caller, params))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, httputil.CodeConflict, errorCode(t, rec))
	})

	t.Run("a different user can review the same book", func(t *testing.T) {
		fx := newFixture()
		bookID := uuid.New()
		fx.books.existing[bookID] = true
		params := map[string]string{"bookID": bookID.String()}

		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload(5), testUser(), params))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload(1), testUser(), params))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("rating outside 1..5 is rejected", func(t *testing.T) {
		fx := newFixture()
		bookID := uuid.New()
		fx.books.existing[bookID] = true
		params := map[string]string{"bookID": bookID.String()}

		for _, rating := range []int{0, 6, -1} {
			rec := httptest.NewRecorder()
			fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload(rating), testUser(), params))
			assert.Equal(t, http.StatusBadRequest, rec.Code, "rating %d", rating)
		}
	})
}

func TestGetReview(t *testing.T) {
	fx := newFixture()
	bookID := uuid.New()
	fx.books.existing[bookID] = true

	created, err := fx.store.Create(context.Background(), CreateParams{
		Rating: 4, ReviewText: "held up on a reread", UserID: uuid.New(), BookID: bookID,
	})
	require.NoError(t, err)

	t.Run("returns the review by id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Get(rec, requestWithUser(http.MethodGet, "/reviews/"+created.ID.String(), nil, testUser(), map[string]string{"id": created.ID.String()}))

		require.Equal(t, http.StatusOK, rec.Code)

		var got Review
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, 4, got.Rating)
	})

	t.Run("absent review is 404", func(t *testing.T) {
		ghost := uuid.New()
		rec := httptest.NewRecorder()
		fx.handler.Get(rec, requestWithUser(http.MethodGet, "/reviews/"+ghost.String(), nil, testUser(), map[string]string{"id": ghost.String()}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, httputil.CodeNotFound, errorCode(t, rec))
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Get(rec, requestWithUser(http.MethodGet, "/reviews/not-a-uuid", nil, testUser(), map[string]string{"id": "not-a-uuid"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteReview(t *testing.T) {
	fx := newFixture()
	owner := testUser()
	stranger := testUser()
	bookID := uuid.New()
	fx.books.existing[bookID] = true

	created, err := fx.store.Create(context.Background(), CreateParams{
		Rating: 3, ReviewText: "fine", UserID: owner.ID, BookID: bookID,
	})
	require.NoError(t, err)
	params := map[string]string{"id": created.ID.String()}

	t.Run("non-author gets 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Delete(rec, requestWithUser(http.MethodDelete, "/reviews/"+created.ID.String(), nil, stranger, params))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, httputil.CodeForbidden, errorCode(t, rec))
	})

	t.Run("absent review gets 404", func(t *testing.T) {
		ghost := uuid.New()
		rec := httptest.NewRecorder()
		fx.handler.Delete(rec, requestWithUser(http.MethodDelete, "/reviews/"+ghost.String(), nil, owner, map[string]string{"id": ghost.String()}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("author succeeds", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.Delete(rec, requestWithUser(http.MethodDelete, "/reviews/"+created.ID.String(), nil, owner, params))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("deleting frees the pair for a new review", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]any{"rating": 5, "review_text": "changed my mind"})
		rec := httptest.NewRecorder()
		fx.handler.Create(rec, requestWithUser(http.MethodPost, "/books/"+bookID.String()+"/reviews", payload, owner, map[string]string{"bookID": bookID.String()}))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestListByBook(t *testing.T) {
	fx := newFixture()
	bookID := uuid.New()
	fx.books.existing[bookID] = true

	_, err := fx.store.Create(context.Background(), CreateParams{Rating: 4, ReviewText: "a", UserID: uuid.New(), BookID: bookID})
	require.NoError(t, err)
	_, err = fx.store.Create(context.Background(), CreateParams{Rating: 2, ReviewText: "b", UserID: uuid.New(), BookID: uuid.New()})
	require.NoError(t, err)

	t.Run("returns only the book's reviews", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fx.handler.ListByBook(rec, requestWithUser(http.MethodGet, "/books/"+bookID.String()+"/reviews", nil, testUser(), map[string]string{"bookID": bookID.String()}))

		require.Equal(t, http.StatusOK, rec.Code)

		var reviews []*Review
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&reviews))
		assert.Len(t, reviews, 1)
	})

	t.Run("absent book is 404", func(t *testing.T) {
		ghost := uuid.New()
		rec := httptest.NewRecorder()
		fx.handler.ListByBook(rec, requestWithUser(http.MethodGet, "/books/"+ghost.String()+"/reviews", nil, testUser(), map[string]string{"bookID": ghost.String()}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
