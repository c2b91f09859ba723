package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"promptdesk/internal/app"
	"promptdesk/pkg/auth"
	"promptdesk/pkg/domain"
	"promptdesk/pkg/storage"
	"promptdesk/pkg/store"
)

type fakeCompleter struct {
	reply string
}

func (f fakeCompleter) Complete(_ context.Context, _, _, _ string) (string, error) {
	return f.reply, nil
}

type fakeGenerator struct {
	reply string
}

func (f fakeGenerator) GenerateMessage(_ context.Context, _, _ string) (string, error) {
	return f.reply, nil
}

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	tokens, err := auth.NewTokens(auth.TokensOptions{Secret: "server-test-secret"})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	objects, err := storage.NewDiskStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	srv, err := New(Config{
		Store:      mem,
		Auth:       app.NewAuthService(mem, tokens, nil, "http://frontend.test"),
		Dispatcher: app.NewChatDispatcher(mem, fakeCompleter{reply: "gpt reply"}, fakeGenerator{reply: "bard reply"}),
		Tokens:     tokens,
		Objects:    objects,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, mem
}

func seedUser(t *testing.T, srv *Server, mem *store.MemoryStore, email string) (domain.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := domain.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		Role:         domain.RoleUser,
		PasswordHash: hash,
	}
	if err := mem.CreateUser(&user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := srv.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestSignupHidesNothingButHashesPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, body := doJSON(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "Ada@Example.com",
		"password":  "s3cret-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, hasToken := body["token"]; hasToken {
		t.Fatalf("signup response must not carry a token: %v", body)
	}
	user, okUser := body["user"].(map[string]any)
	if !okUser {
		t.Fatalf("signup response missing user: %v", body)
	}
	if user["email"] != "ada@example.com" {
		t.Fatalf("email not lowercased: %v", user["email"])
	}
	stored, _ := user["password"].(string)
	if stored == "" || stored == "s3cret-pass" || !strings.HasPrefix(stored, "$2") {
		t.Fatalf("serialized password should be a bcrypt hash, got %q", stored)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv, mem := newTestServer(t)
	seedUser(t, srv, mem, "login@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "login@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body["message"] != "Invalid email or password." {
		t.Fatalf("message = %v", body["message"])
	}

	rec, body = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "login@example.com",
		"password": "password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if token, _ := body["token"].(string); token == "" {
		t.Fatalf("login response missing token: %v", body)
	}
}

func TestAuthGate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodGet, "/api/users", "", nil)
	if rec.Code != http.StatusUnauthorized || body["message"] != "Authentication required." {
		t.Fatalf("missing token: status %d message %v", rec.Code, body["message"])
	}

	rec, body = doJSON(t, srv, http.MethodGet, "/api/users", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized || body["message"] != "Invalid token." {
		t.Fatalf("bad token: status %d message %v", rec.Code, body["message"])
	}
}

func TestListHistoriesPagination(t *testing.T) {
	srv, mem := newTestServer(t)
	user, token := seedUser(t, srv, mem, "pages@example.com")
	for i := 0; i < 12; i++ {
		h := domain.History{Name: fmt.Sprintf("thread %d", i), UserID: user.ID}
		if err := mem.CreateHistory(&h); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}

	rec, body := doJSON(t, srv, http.MethodGet, "/api/history?page=2&limit=5", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	histories, _ := body["histories"].([]any)
	if len(histories) != 5 {
		t.Fatalf("page 2 size = %d, want 5", len(histories))
	}
	pagination, _ := body["paginationData"].(map[string]any)
	if pagination["page"] != float64(2) || pagination["pageSize"] != float64(5) || pagination["total"] != float64(12) {
		t.Fatalf("pagination = %v", pagination)
	}
}

func TestTagLifecycleAndNotFound(t *testing.T) {
	srv, mem := newTestServer(t)
	_, token := seedUser(t, srv, mem, "tags@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/tags", token, map[string]any{"name": "finance"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	tag := body["tag"].(map[string]any)
	id := uint64(tag["id"].(float64))

	rec, body = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/tags/%d", id), token, map[string]any{"name": "fintech"})
	if rec.Code != http.StatusOK || body["tag"].(map[string]any)["name"] != "fintech" {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/tags/%d", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, body = doJSON(t, srv, http.MethodDelete, "/api/tags/999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body["message"] != "Tag not found with id 999." {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestChatCreatesHistoryAndTurns(t *testing.T) {
	srv, mem := newTestServer(t)
	_, token := seedUser(t, srv, mem, "chat@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/chats", token, map[string]any{
		"message": "what does this company do",
		"ai_tool": "bard",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body["reply"] != "bard reply" {
		t.Fatalf("reply = %v", body["reply"])
	}
	historyID, hasHistoryID := body["history_id"].(float64)
	if !hasHistoryID {
		t.Fatalf("response missing history_id: %v", body)
	}

	rec, body = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/chats/history/%d", int(historyID)), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat history status = %d, body %s", rec.Code, rec.Body.String())
	}
	turns, _ := body["chat_history"].([]any)
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	first := turns[0].(map[string]any)
	second := turns[1].(map[string]any)
	if first["is_bot"] != false || second["is_bot"] != true {
		t.Fatalf("turn order wrong: %v then %v", first, second)
	}
}

func TestChatMissingHistoryOmitsID(t *testing.T) {
	srv, mem := newTestServer(t)
	_, token := seedUser(t, srv, mem, "ghost@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/chats", token, map[string]any{
		"message":    "hello",
		"history_id": 999,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, present := body["history_id"]; present {
		t.Fatalf("history_id should be omitted for a missing thread: %v", body)
	}
	if body["reply"] != "gpt reply" {
		t.Fatalf("reply = %v", body["reply"])
	}
}

func TestChatEmptyMessage(t *testing.T) {
	srv, mem := newTestServer(t)
	_, token := seedUser(t, srv, mem, "empty@example.com")

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/chats", token, map[string]any{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateUserBlankingRules(t *testing.T) {
	srv, mem := newTestServer(t)
	user, token := seedUser(t, srv, mem, "merge@example.com")
	user.Organization = "Initech"
	user.Profile = "old profile"
	if err := mem.UpdateUser(&user); err != nil {
		t.Fatalf("seed update: %v", err)
	}

	rec, body := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/users/%d", user.ID), token, map[string]any{
		"firstName":    "",
		"organization": "",
		"profile":      "new profile",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := body["user"].(map[string]any)
	if updated["firstName"] != "Test" {
		t.Fatalf("empty firstName must not overwrite, got %v", updated["firstName"])
	}
	if _, present := updated["organization"]; present {
		t.Fatalf("organization should have been blanked, got %v", updated["organization"])
	}
	if updated["profile"] != "new profile" {
		t.Fatalf("profile = %v", updated["profile"])
	}
}

func TestDocumentUploadAndTagReplacement(t *testing.T) {
	srv, mem := newTestServer(t)
	_, token := seedUser(t, srv, mem, "docs@example.com")

	first := domain.Tag{Name: "report"}
	second := domain.Tag{Name: "draft"}
	if err := mem.CreateTag(&first); err != nil {
		t.Fatalf("seed tag: %v", err)
	}
	if err := mem.CreateTag(&second); err != nil {
		t.Fatalf("seed tag: %v", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("document_file", "q3 report.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 fake")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := form.WriteField("tags", fmt.Sprintf("%d", first.ID)); err != nil {
		t.Fatalf("write tags field: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Document domain.Document `json:"document"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	doc := created.Document
	if doc.FileName != "q3 report.pdf" {
		t.Fatalf("file_name = %q", doc.FileName)
	}
	if doc.GUID == "" || doc.FileURL == "" {
		t.Fatalf("document missing guid or url: %+v", doc)
	}
	if len(doc.Tags) != 1 || doc.Tags[0].Name != "report" {
		t.Fatalf("tags = %+v", doc.Tags)
	}

	// replace the tag set wholesale and confirm the guid survives
	rec, body := doForm(t, srv, http.MethodPut, fmt.Sprintf("/api/documents/%d", doc.ID), token, map[string]string{
		"tags": fmt.Sprintf("%d", second.ID),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := body["document"].(map[string]any)
	if updated["guid"] != doc.GUID {
		t.Fatalf("guid changed: %v != %v", updated["guid"], doc.GUID)
	}
	tags := updated["tags"].([]any)
	if len(tags) != 1 || tags[0].(map[string]any)["name"] != "draft" {
		t.Fatalf("replaced tags = %v", tags)
	}
}

func TestListDocumentsPagination(t *testing.T) {
	srv, mem := newTestServer(t)
	user, token := seedUser(t, srv, mem, "doclist@example.com")
	for i := 0; i < 3; i++ {
		d := domain.Document{
			FileName: fmt.Sprintf("file-%d.txt", i),
			FileURL:  "http://example.test/file",
			GUID:     fmt.Sprintf("guid-%d", i),
			UserID:   user.ID,
		}
		if err := mem.CreateDocument(&d); err != nil {
			t.Fatalf("seed document: %v", err)
		}
	}

	rec, body := doJSON(t, srv, http.MethodGet, "/api/documents", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, present := body["paginationData"]; present {
		t.Fatalf("unpaged list must omit paginationData: %v", body)
	}
	if docs, _ := body["documents"].([]any); len(docs) != 3 {
		t.Fatalf("documents = %d, want 3", len(docs))
	}

	rec, body = doJSON(t, srv, http.MethodGet, "/api/documents?page=1&limit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if docs, _ := body["documents"].([]any); len(docs) != 2 {
		t.Fatalf("paged documents = %d, want 2", len(docs))
	}
	pagination, _ := body["paginationData"].(map[string]any)
	if pagination["total"] != float64(3) {
		t.Fatalf("pagination = %v", pagination)
	}
}

func doForm(t *testing.T, srv *Server, method, path, token string, fields map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestCompanyEndpointsAreReadOnly(t *testing.T) {
	srv, mem := newTestServer(t)
	user, token := seedUser(t, srv, mem, "company@example.com")
	company := domain.Company{Name: "Acme", Website: "https://acme.test", UserID: user.ID}
	if err := mem.CreateCompany(&company); err != nil {
		t.Fatalf("seed company: %v", err)
	}

	rec, body := doJSON(t, srv, http.MethodGet, "/api/company", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if companies, _ := body["companies"].([]any); len(companies) != 1 {
		t.Fatalf("companies = %v", body["companies"])
	}

	rec, body = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/company/%d", company.ID), token, nil)
	if rec.Code != http.StatusOK || body["company"].(map[string]any)["name"] != "Acme" {
		t.Fatalf("get: status %d body %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/company", token, map[string]any{"name": "Nope"})
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}

func TestPromptCreateAndTruthyMerge(t *testing.T) {
	srv, mem := newTestServer(t)
	_, token := seedUser(t, srv, mem, "prompts@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/prompts", token, map[string]any{
		"name":       "Summarize",
		"prompt":     "Summarize the following text.",
		"is_default": true,
		"order":      3,
		"ai_tool":    "chat_gpt",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	prompt := body["prompt"].(map[string]any)
	id := int(prompt["id"].(float64))
	if prompt["is_default"] != true || prompt["order"] != float64(3) {
		t.Fatalf("prompt = %v", prompt)
	}

	rec, body = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/prompts/%d", id), token, map[string]any{
		"name":       "",
		"is_default": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := body["prompt"].(map[string]any)
	if updated["name"] != "Summarize" {
		t.Fatalf("empty name must not overwrite, got %v", updated["name"])
	}
	if updated["is_default"] != false {
		t.Fatalf("explicit false must apply, got %v", updated["is_default"])
	}
}
