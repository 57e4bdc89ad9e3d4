package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/accountd/accountd/internal/domain"
	"github.com/accountd/accountd/internal/query"
	"github.com/accountd/accountd/internal/transport/http/handler"
	"github.com/accountd/accountd/internal/usecase"
	"github.com/gin-gonic/gin"
)

type fakeProfiles struct {
	getByID func(ctx context.Context, id string) (*domain.User, error)
	update  func(ctx context.Context, id string, in usecase.UpdateInput) (*domain.User, error)
	delete  func(ctx context.Context, id string) error
	list    func(ctx context.Context, spec query.Spec) (usecase.ListResult, error)
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return f.getByID(ctx, id)
}

func (f *fakeProfiles) Update(ctx context.Context, id string, in usecase.UpdateInput) (*domain.User, error) {
	return f.update(ctx, id, in)
}

func (f *fakeProfiles) Delete(ctx context.Context, id string) error {
	return f.delete(ctx, id)
}

func (f *fakeProfiles) List(ctx context.Context, spec query.Spec) (usecase.ListResult, error) {
	return f.list(ctx, spec)
}

var authedUser = &domain.User{ID: "user-1", Username: "ada", Email: "ada@example.com", Active: true}

// newUserEngine wires the protected routes behind a stub gate that attaches
// authedUser, the same context key the real middleware uses.
func newUserEngine(uc *fakeProfiles) *gin.Engine {
	h := handler.NewUserHandler(uc, slog.Default())
	r := gin.New()
	attach := func(c *gin.Context) {
		c.Set("user", authedUser)
		c.Next()
	}
	r.GET("/list", attach, h.List)
	r.GET("/", attach, h.Me)
	r.PATCH("/", attach, h.Update)
	r.DELETE("/", attach, h.Delete)
	return r
}

func TestMe_ReturnsProfile(t *testing.T) {
	uc := &fakeProfiles{
		getByID: func(_ context.Context, id string) (*domain.User, error) {
			if id != authedUser.ID {
				t.Errorf("looked up %q, want %q", id, authedUser.ID)
			}
			return authedUser, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	if data["username"] != "ada" {
		t.Errorf("data = %v", data)
	}
}

func TestMe_Gone(t *testing.T) {
	uc := &fakeProfiles{
		getByID: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if envelope := decodeEnvelope(t, w); envelope["data"] != "data not found!" {
		t.Errorf("data = %v", envelope["data"])
	}
}

// The PATCH schema has no password or createdAt field, so those can never
// reach the update path.
func TestUpdate_AppliesPartialFields(t *testing.T) {
	var got usecase.UpdateInput
	uc := &fakeProfiles{
		update: func(_ context.Context, id string, in usecase.UpdateInput) (*domain.User, error) {
			if id != authedUser.ID {
				t.Errorf("update for %q, want %q", id, authedUser.ID)
			}
			got = in
			return authedUser, nil
		},
	}
	w := postJSONMethod(t, newUserEngine(uc), http.MethodPatch, "/",
		`{"firstName":"Ada","password":"sneaky","createdAt":1}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got.FirstName == nil || *got.FirstName != "Ada" {
		t.Errorf("firstName = %v", got.FirstName)
	}
	if got.Username != nil || got.Email != nil || got.LastName != nil || got.Active != nil {
		t.Errorf("unexpected fields set: %+v", got)
	}
}

func TestUpdate_Conflict(t *testing.T) {
	uc := &fakeProfiles{
		update: func(_ context.Context, _ string, _ usecase.UpdateInput) (*domain.User, error) {
			return nil, domain.ErrUsernameTaken
		},
	}
	w := postJSONMethod(t, newUserEngine(uc), http.MethodPatch, "/", `{"username":"taken"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDelete_NoContent(t *testing.T) {
	uc := &fakeProfiles{
		delete: func(_ context.Context, id string) error {
			if id != authedUser.ID {
				t.Errorf("delete %q, want %q", id, authedUser.ID)
			}
			return nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestDelete_Gone(t *testing.T) {
	uc := &fakeProfiles{
		delete: func(_ context.Context, _ string) error { return domain.ErrUserNotFound },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestList_EmptyPage(t *testing.T) {
	uc := &fakeProfiles{
		list: func(_ context.Context, _ query.Spec) (usecase.ListResult, error) {
			return usecase.ListResult{}, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	envelope := decodeEnvelope(t, w)
	if envelope["status"] != "Failed" {
		t.Errorf("status = %v", envelope["status"])
	}
	if data, ok := envelope["data"].([]any); !ok || len(data) != 0 {
		t.Errorf("data = %v, want empty array", envelope["data"])
	}
}

func TestList_PageEnvelopeAndProjection(t *testing.T) {
	next := 2
	uc := &fakeProfiles{
		list: func(_ context.Context, spec query.Spec) (usecase.ListResult, error) {
			if spec.Page != 1 || spec.Limit != 10 {
				t.Errorf("spec = %+v, want defaults", spec)
			}
			return usecase.ListResult{
				Users: []*domain.User{
					{ID: "u1", Username: "ada", Email: "ada@example.com", PasswordHash: "hash", CreatedAt: 5},
				},
				Count:    25,
				NextPage: &next,
			}, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/list?fields=email,username", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	envelope := decodeEnvelope(t, w)
	if envelope["currentPage"] != float64(1) || envelope["nextPage"] != float64(2) {
		t.Errorf("pages = %v/%v", envelope["currentPage"], envelope["nextPage"])
	}
	if envelope["previousPage"] != nil {
		t.Errorf("previousPage = %v, want null", envelope["previousPage"])
	}
	if envelope["results"] != float64(25) {
		t.Errorf("results = %v, want 25", envelope["results"])
	}

	items := envelope["data"].([]any)
	item := items[0].(map[string]any)
	if item["email"] != "ada@example.com" || item["username"] != "ada" {
		t.Errorf("item = %v", item)
	}
	if len(item) != 2 {
		t.Errorf("projection leaked fields: %v", item)
	}
}

func postJSONMethod(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}
