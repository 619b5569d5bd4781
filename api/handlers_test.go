package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskflow/domain"
	"taskflow/realtime"
)

type testEnv struct {
	e     *echo.Echo
	store *fakeStore
	pub   *recordPublisher
	auth  *Auth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	pub := &recordPublisher{}
	auth := NewAuth([]byte("test-secret"), time.Hour)
	logger := testLogger()
	coord := NewCoordinator(store, pub, logger)
	e := echo.New()
	Register(e, store, auth, coord, realtime.NewHub(), logger)
	return &testEnv{e: e, store: store, pub: pub, auth: auth}
}

func (env *testEnv) request(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	var env2 envelope
	if rec.Body.Len() > 0 {
		if err := sonic.Unmarshal(rec.Body.Bytes(), &env2); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, env2
}

func (env *testEnv) seedUser(t *testing.T, role string) (domain.User, string) {
	t.Helper()
	user, err := env.store.CreateUser(context.Background(), domain.User{
		Name:  "tester",
		Email: "tester-" + role + "-" + uuid.NewString() + "@example.com",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := env.auth.SignToken(user.ID)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return user, token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ada","email":"ada@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body.String())
	}
	if !body.Success || body.Token == "" {
		t.Fatalf("expected token in register response, got %+v", body)
	}

	rec, body = env.request(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"ada@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	if body.Token == "" {
		t.Fatal("expected token in login response")
	}

	rec, _ = env.request(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"ada@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status %d", rec.Code)
	}
}

func TestRegisterRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.request(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ada","email":"ada@example.com","password":"hunter22","isAdmin":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.request(t, http.MethodGet, "/api/tasks", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTaskListPagination(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.seedUser(t, domain.RoleMember)
	project, err := env.store.CreateProject(context.Background(), domain.Project{Name: "p", OwnerID: user.ID})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	for i := 0; i < 25; i++ {
		if _, err := env.store.CreateTask(context.Background(), domain.Task{
			Title:     "task",
			ProjectID: project.ID,
			Priority:  domain.PriorityHigh,
			Status:    domain.TaskTodo,
		}); err != nil {
			t.Fatalf("seed task: %v", err)
		}
	}

	rec, body := env.request(t, http.MethodGet, "/api/tasks?priority=high&sort=-dueDate&page=2&limit=10", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if body.Count == nil || *body.Count != 10 {
		t.Fatalf("expected count 10, got %+v", body.Count)
	}
	if body.Pagination == nil {
		t.Fatal("expected pagination hints")
	}
	if body.Pagination.Next == nil || body.Pagination.Next.Page != 3 {
		t.Fatalf("expected next page 3, got %+v", body.Pagination.Next)
	}
	if body.Pagination.Previous == nil || body.Pagination.Previous.Page != 1 || body.Pagination.Previous.Limit != 10 {
		t.Fatalf("expected previous {1 10}, got %+v", body.Pagination.Previous)
	}
}

func TestTaskListRejectsUnknownOperator(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, domain.RoleMember)
	rec, _ := env.request(t, http.MethodGet, "/api/tasks?priority[regex]=.*", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNestedTaskCreateUsesPathProject(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.seedUser(t, domain.RoleMember)
	project, err := env.store.CreateProject(context.Background(), domain.Project{Name: "p", OwnerID: user.ID})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	rec, body := env.request(t, http.MethodPost, "/api/projects/"+project.ID+"/tasks", token,
		`{"title":"nested"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	data, err := sonic.Marshal(body.Data)
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	var task domain.Task
	if err := sonic.Unmarshal(data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.ProjectID != project.ID {
		t.Fatalf("expected project %q, got %q", project.ID, task.ProjectID)
	}
	if task.CreatedByID != user.ID {
		t.Fatalf("expected creator %q, got %q", user.ID, task.CreatedByID)
	}
}

func TestDeleteProjectDeniedReturns401(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.seedUser(t, domain.RoleMember)
	_, strangerToken := env.seedUser(t, domain.RoleMember)
	project, err := env.store.CreateProject(context.Background(), domain.Project{Name: "p", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	rec, _ := env.request(t, http.MethodDelete, "/api/projects/"+project.ID, strangerToken, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if _, err := env.store.FindProject(context.Background(), project.ID); err != nil {
		t.Fatal("denied delete must not remove the project")
	}
}

func TestDeleteMissingProjectReturns404(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, domain.RoleMember)
	rec, body := env.request(t, http.MethodDelete, "/api/projects/missing", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body.Success {
		t.Fatal("error envelope must not claim success")
	}
	if !strings.Contains(body.Error, "missing") {
		t.Fatalf("expected id in error, got %q", body.Error)
	}
}

func TestUpdatePasswordRotatesCredential(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ada","email":"ada@example.com","password":"original1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d", rec.Code)
	}
	token := body.Token

	rec, body = env.request(t, http.MethodPut, "/api/auth/updatepassword", token,
		`{"currentPassword":"original1","newPassword":"rotated22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update password status %d: %s", rec.Code, rec.Body.String())
	}
	if body.Token == "" {
		t.Fatal("expected fresh token after rotation")
	}

	rec, _ = env.request(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"ada@example.com","password":"original1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password should be rejected, got %d", rec.Code)
	}
	rec, _ = env.request(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"ada@example.com","password":"rotated22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("new password should work, got %d", rec.Code)
	}
}
