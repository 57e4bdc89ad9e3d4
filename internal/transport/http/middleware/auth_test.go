package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/accountd/accountd/internal/domain"
	"github.com/accountd/accountd/internal/token"
	"github.com/accountd/accountd/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const testKey = "middleware-test-secret-32-chars!!"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	checkFreshness func(ctx context.Context, userID string, claimedMarker int64) bool
	getByID        func(ctx context.Context, id string) (*domain.User, error)
}

func (f *fakeResolver) CheckFreshness(ctx context.Context, userID string, claimedMarker int64) bool {
	return f.checkFreshness(ctx, userID, claimedMarker)
}

func (f *fakeResolver) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return f.getByID(ctx, id)
}

func freshResolver() *fakeResolver {
	return &fakeResolver{
		checkFreshness: func(_ context.Context, _ string, _ int64) bool { return true },
		getByID: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "ada"}, nil
		},
	}
}

// newEngine builds a minimal gin engine with the Auth gate protecting
// GET and POST /protected. The handler writes the attached user's ID so we
// can assert identity resolution.
func newEngine(resolver *fakeResolver) *gin.Engine {
	tokens := token.NewService([]byte(testKey))
	r := gin.New()
	gate := middleware.Auth(tokens, resolver)
	handle := func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		c.String(http.StatusOK, "%s", user.ID)
	}
	r.GET("/protected", gate, handle)
	r.POST("/protected", gate, handle)
	return r
}

func issueToken(t *testing.T, lastLogin int64) string {
	t.Helper()
	user := &domain.User{ID: "user-1", Email: "a@b.com", LastLogin: &lastLogin}
	signed, err := token.NewService([]byte(testKey)).IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func TestAuth_MissingToken_Returns403(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	newEngine(freshResolver()).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAuth_WrongScheme_Returns403(t *testing.T) {
	tok := issueToken(t, 1700000000000)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	newEngine(freshResolver()).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAuth_InvalidToken_Returns401(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "JWT not.a.jwt")
	newEngine(freshResolver()).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_StaleToken_Returns401(t *testing.T) {
	tok := issueToken(t, 1700000000000)
	resolver := freshResolver()
	resolver.checkFreshness = func(_ context.Context, _ string, _ int64) bool { return false }

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "JWT "+tok)
	newEngine(resolver).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ValidHeaderToken_AttachesUser(t *testing.T) {
	lastLogin := int64(1700000000000)
	tok := issueToken(t, lastLogin)

	var checkedMarker int64
	resolver := freshResolver()
	resolver.checkFreshness = func(_ context.Context, _ string, marker int64) bool {
		checkedMarker = marker
		return true
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "JWT "+tok)
	newEngine(resolver).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "user-1" {
		t.Errorf("body = %q, want user-1", w.Body.String())
	}
	if want := lastLogin / 1000; checkedMarker != want {
		t.Errorf("guard received marker %d, want %d", checkedMarker, want)
	}
}

func TestAuth_QueryToken(t *testing.T) {
	tok := issueToken(t, 1700000000000)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token=JWT%20"+tok, nil)
	newEngine(freshResolver()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuth_BodyToken(t *testing.T) {
	tok := issueToken(t, 1700000000000)
	body := `{"token":"JWT ` + tok + `"}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newEngine(freshResolver()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuth_UserGoneAfterVerify_Returns401(t *testing.T) {
	tok := issueToken(t, 1700000000000)
	resolver := freshResolver()
	resolver.getByID = func(_ context.Context, _ string) (*domain.User, error) {
		return nil, domain.ErrUserNotFound
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "JWT "+tok)
	newEngine(resolver).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
