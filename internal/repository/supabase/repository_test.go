package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockroom/internal/config"
	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/repository/rows"
	client "github.com/mamadbah2/stockroom/pkg/clients/supabase"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type fakeProject struct {
	mu    sync.Mutex
	calls []recordedCall
	route func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeProject) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	f.route(w, r, string(body))
}

func (f *fakeProject) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func newTestRepository(t *testing.T, route func(w http.ResponseWriter, r *http.Request, body string)) (*Repository, *fakeProject) {
	t.Helper()
	project := &fakeProject{route: route}
	srv := httptest.NewServer(project)
	t.Cleanup(srv.Close)

	c := client.NewClient(config.SupabaseConfig{URL: srv.URL, AnonKey: "anon-key"})
	return NewRepository(c, nil), project
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.com",
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListProductsMapsRows(t *testing.T) {
	repo, project := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "p1", "name": "Headphones", "sku": "AU-H1", "cost": 850, "price": "1288.00", "stock": 128, "category_id": nil, "category_name": "Electronics", "image": nil, "spec": "white", "status": "normal", "created_at": "2026-01-02T03:04:05Z"},
		})
	})

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Headphones", products[0].Name)
	assert.True(t, decimal.NewFromInt(1288).Equal(products[0].Price))
	assert.Equal(t, "", products[0].Image)

	calls := project.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/rest/v1/products", calls[0].Path)
	assert.Contains(t, calls[0].Query, "order=created_at.desc")
	assert.Equal(t, "Bearer anon-key", calls[0].Auth)
}

func TestListProductsMalformedRow(t *testing.T) {
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusOK, []map[string]any{{"name": "missing id"}})
	})

	_, err := repo.ListProducts(context.Background())
	var mErr *rows.MappingError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "id", mErr.Field)
}

func TestInsertProductResolvesCategoryFirst(t *testing.T) {
	repo, project := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/rest/v1/categories":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "cat-1"}})
		case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/products":
			var row map[string]any
			_ = json.Unmarshal([]byte(body), &row)
			row["id"] = "db-id"
			row["created_at"] = "2026-01-02T03:04:05Z"
			writeJSON(w, http.StatusCreated, []map[string]any{row})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	saved, err := repo.InsertProduct(context.Background(), "user-1", models.Product{
		ID: "p-123", Name: "Camera", SKU: "CAM-1", Stock: 42, Category: "Electronics", Status: models.StatusNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, "db-id", saved.ID)
	assert.Equal(t, "Electronics", saved.Category)

	calls := project.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Contains(t, calls[0].Query, "name=eq.Electronics")
	assert.Equal(t, http.MethodPost, calls[1].Method)
	assert.Contains(t, calls[1].Body, `"category_id":"cat-1"`)
	assert.Contains(t, calls[1].Body, `"user_id":"user-1"`)
	assert.NotContains(t, calls[1].Body, "p-123")
}

func TestUpdateProductUnknownCategoryWritesNullID(t *testing.T) {
	repo, project := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, body string) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, []map[string]any{})
		case http.MethodPatch:
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "p1", "name": "Shoes", "category_name": "Retired", "stock": 3}})
		}
	})

	saved, err := repo.UpdateProduct(context.Background(), models.Product{ID: "p1", Name: "Shoes", Category: "Retired", Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "Retired", saved.Category)

	calls := project.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "id=eq.p1", calls[1].Query)
	assert.Contains(t, calls[1].Body, `"category_id":null`)
}

func TestUpdateProductNoRows(t *testing.T) {
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusOK, []map[string]any{})
	})

	_, err := repo.UpdateProduct(context.Background(), models.Product{ID: "gone"})
	assert.ErrorIs(t, err, rows.ErrNoRows)
}

func TestRemoteErrorSurfaces(t *testing.T) {
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "JWT expired", "code": "PGRST301"})
	})

	_, err := repo.ListCategories(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, err.Error(), "JWT expired")
}

func TestInsertActivityDerivesPresentation(t *testing.T) {
	repo, project := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, body string) {
		var row map[string]any
		_ = json.Unmarshal([]byte(body), &row)
		row["id"] = "a1"
		row["created_at"] = time.Now().UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusCreated, []map[string]any{row})
	})

	a, err := repo.InsertActivity(context.Background(), "user-1", models.NewActivity{Kind: models.ActivityOutbound, Title: "Stock out", Description: "Shoes - decreased by 2 units"})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityOutbound, a.Kind)
	assert.Equal(t, "local_shipping", a.Icon)
	assert.Equal(t, "just now", a.Time)
	assert.Contains(t, project.recorded()[0].Body, `"type":"out"`)
}

func TestSignUpSeedsDefaultCategoriesAndPushes(t *testing.T) {
	var access string
	repo, project := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		switch r.URL.Path {
		case "/auth/v1/signup":
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  access,
				"refresh_token": "refresh-1",
				"expires_in":    3600,
				"user":          map[string]any{"id": "user-1", "email": "a@example.com"},
			})
		case "/rest/v1/rpc/seed_default_categories":
			w.WriteHeader(http.StatusNoContent)
		}
	})
	access = signedToken(t, "user-1", time.Now().Add(time.Hour))

	var pushed []*models.Session
	unsubscribe := repo.OnSessionChange(func(s *models.Session) { pushed = append(pushed, s) })
	defer unsubscribe()

	session, err := repo.SignUp(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "user-1", session.User.ID)

	calls := project.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "/rest/v1/rpc/seed_default_categories", calls[1].Path)
	assert.JSONEq(t, `{"target_user_id":"user-1"}`, calls[1].Body)
	assert.Equal(t, "Bearer "+access, calls[1].Auth)

	require.Len(t, pushed, 1)
	assert.Equal(t, "user-1", pushed[0].User.ID)
}

func TestSignUpAwaitingConfirmationStillSeeds(t *testing.T) {
	repo, project := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		if strings.HasSuffix(r.URL.Path, "/signup") {
			writeJSON(w, http.StatusOK, map[string]any{"id": "user-2", "email": "b@example.com"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "seed failed"})
	})

	session, err := repo.SignUp(context.Background(), "b@example.com", "secret")
	require.NoError(t, err, "seed failures are logged only")
	assert.Nil(t, session)
	assert.Len(t, project.recorded(), 2)
}

func TestSignInReadsExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	access := signedToken(t, "user-9", exp)
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": access})
	})

	session, err := repo.SignIn(context.Background(), "c@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-9", session.User.ID)
	assert.Equal(t, "user-9@example.com", session.User.Email)
	assert.True(t, exp.Equal(session.ExpiresAt))

	current, err := repo.GetSession(context.Background())
	require.NoError(t, err)
	assert.Same(t, session, current)
}

func TestSignInFailure(t *testing.T) {
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
	})

	_, err := repo.SignIn(context.Background(), "c@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestGetSessionRefreshesExpiredSession(t *testing.T) {
	fresh := signedToken(t, "user-3", time.Now().Add(time.Hour))
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  fresh,
			"refresh_token": "refresh-2",
			"expires_in":    3600,
			"user":          map[string]any{"id": "user-3"},
		})
	})
	repo.session = &models.Session{User: models.User{ID: "user-3"}, RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute)}

	var pushed []*models.Session
	repo.OnSessionChange(func(s *models.Session) { pushed = append(pushed, s) })

	session, err := repo.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", session.RefreshToken)
	require.Len(t, pushed, 1)
	assert.NotNil(t, pushed[0])
}

func TestFailedRefreshPushesSignedOut(t *testing.T) {
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	})
	repo.session = &models.Session{User: models.User{ID: "user-4"}, RefreshToken: "stale", ExpiresAt: time.Now().Add(-time.Minute)}

	var pushed []*models.Session
	repo.OnSessionChange(func(s *models.Session) { pushed = append(pushed, s) })

	session, err := repo.GetSession(context.Background())
	assert.Error(t, err)
	assert.Nil(t, session)
	require.Len(t, pushed, 1)
	assert.Nil(t, pushed[0])
}

func TestSignOutDropsSessionEvenOnRemoteFailure(t *testing.T) {
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"msg": "boom"})
	})
	repo.session = &models.Session{User: models.User{ID: "user-5"}}

	err := repo.SignOut(context.Background())
	assert.Error(t, err)

	current, err := repo.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
}

type sessionRecorder struct {
	mu     sync.Mutex
	pushed []*models.Session
}

func (s *sessionRecorder) record(session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, session)
}

func (s *sessionRecorder) all() []*models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Session(nil), s.pushed...)
}

type refreshOutcome struct {
	session *models.Session
	err     error
}

func TestSignOutWinsOverInFlightRefresh(t *testing.T) {
	fresh := signedToken(t, "user-6", time.Now().Add(time.Hour))
	entered := make(chan struct{})
	release := make(chan struct{})
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		switch r.URL.Path {
		case "/auth/v1/token":
			close(entered)
			<-release
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  fresh,
				"refresh_token": "refresh-2",
				"expires_in":    3600,
				"user":          map[string]any{"id": "user-6"},
			})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		}
	})
	repo.session = &models.Session{User: models.User{ID: "user-6"}, RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute)}

	recorder := &sessionRecorder{}
	repo.OnSessionChange(recorder.record)

	done := make(chan refreshOutcome, 1)
	go func() {
		s, err := repo.GetSession(context.Background())
		done <- refreshOutcome{session: s, err: err}
	}()

	<-entered
	require.NoError(t, repo.SignOut(context.Background()))
	close(release)

	outcome := <-done
	require.NoError(t, outcome.err)
	assert.Nil(t, outcome.session)

	current, err := repo.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)

	pushed := recorder.all()
	require.Len(t, pushed, 1)
	assert.Nil(t, pushed[0])
}

func TestStaleRefreshFailureKeepsNewerSession(t *testing.T) {
	access := signedToken(t, "user-7", time.Now().Add(time.Hour))
	entered := make(chan struct{})
	release := make(chan struct{})
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		if r.URL.Query().Get("grant_type") == "refresh_token" {
			close(entered)
			<-release
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  access,
			"refresh_token": "refresh-9",
			"expires_in":    3600,
			"user":          map[string]any{"id": "user-7"},
		})
	})
	repo.session = &models.Session{User: models.User{ID: "user-7"}, RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute)}

	recorder := &sessionRecorder{}
	repo.OnSessionChange(recorder.record)

	done := make(chan refreshOutcome, 1)
	go func() {
		s, err := repo.GetSession(context.Background())
		done <- refreshOutcome{session: s, err: err}
	}()

	<-entered
	signedIn, err := repo.SignIn(context.Background(), "user-7@example.com", "secret")
	require.NoError(t, err)
	close(release)

	outcome := <-done
	require.NoError(t, outcome.err)
	assert.Same(t, signedIn, outcome.session)

	pushed := recorder.all()
	require.Len(t, pushed, 1)
	assert.Same(t, signedIn, pushed[0])
}
