package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/blogs"
	"github.com/khanghh/quill/internal/middlewares/authn"
	"github.com/khanghh/quill/internal/middlewares/reqlog"
	"github.com/khanghh/quill/internal/recovery"
	"github.com/khanghh/quill/internal/uploads"
	"github.com/khanghh/quill/internal/users"
	"github.com/khanghh/quill/model"
)

type testResponse struct {
	APIVersion string          `json:"apiVersion"`
	Data       json.RawMessage `json:"data"`
	Error      *APIErrorInfo   `json:"error"`
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, testResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out testResponse
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

func newUserApp(userService *fakeUserService, tokens *fakeTokenService, events *eventLog) *fiber.App {
	h := NewUserHandler(userService, tokens, events)
	app := fiber.New()
	app.Post("/api/users/signup", h.PostSignup)
	app.Post("/api/users/login", h.PostLogin)
	app.Post("/api/users/logout", withIdentity(1, "ann@example.com"), h.PostLogout)
	app.Post("/api/users/profile", withIdentity(1, "ann@example.com"), h.PostUpdateProfile)
	app.Get("/api/users", h.GetUsers)
	return app
}

func TestUserHandlerSignupAndLogin(t *testing.T) {
	userService := &fakeUserService{
		users:  map[string]*model.User{},
		admins: map[string]bool{"ann@example.com": true},
	}
	events := &eventLog{}
	app := newUserApp(userService, &fakeTokenService{}, events)

	signup := map[string]string{"name": "Ann", "email": "ann@example.com", "password": "secret1"}
	status, resp := doRequest(t, app, fiber.MethodPost, "/api/users/signup", signup, "")
	if status != fiber.StatusCreated {
		t.Fatalf("signup status = %d, want 201", status)
	}
	var created signupResponse
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatal(err)
	}
	if !created.UserAdmin || created.UserID == 0 {
		t.Errorf("signup data = %+v", created)
	}

	status, resp = doRequest(t, app, fiber.MethodPost, "/api/users/signup", signup, "")
	if status != fiber.StatusConflict || resp.Error == nil || resp.Error.Message != MsgEmailRegistered {
		t.Errorf("duplicate signup = %d %+v", status, resp.Error)
	}

	status, resp = doRequest(t, app, fiber.MethodPost, "/api/users/login", map[string]string{"email": "ann@example.com", "password": "wrong"}, "")
	if status != fiber.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", status)
	}

	status, resp = doRequest(t, app, fiber.MethodPost, "/api/users/login", map[string]string{"email": "ann@example.com", "password": "secret1"}, "")
	if status != fiber.StatusOK {
		t.Fatalf("login status = %d, want 200", status)
	}
	var login loginResponse
	if err := json.Unmarshal(resp.Data, &login); err != nil {
		t.Fatal(err)
	}
	if login.Token != "token-ann@example.com" || !login.UserAdmin {
		t.Errorf("login data = %+v", login)
	}

	if len(events.logins) != 2 || events.logins[0].Success || !events.logins[1].Success {
		t.Errorf("login events = %+v", events.logins)
	}
}

func TestUserHandlerSignupValidation(t *testing.T) {
	userService := &fakeUserService{users: map[string]*model.User{}, createErr: users.ErrInvalidEmail}
	app := newUserApp(userService, &fakeTokenService{}, &eventLog{})

	status, resp := doRequest(t, app, fiber.MethodPost, "/api/users/signup", map[string]string{"email": "nope"}, "")
	if status != fiber.StatusBadRequest || resp.Error == nil || resp.Error.Message != users.ErrInvalidEmail.Error() {
		t.Errorf("signup = %d %+v", status, resp.Error)
	}
}

func TestUserHandlerLogoutAndProfile(t *testing.T) {
	userService := &fakeUserService{users: map[string]*model.User{
		"ann@example.com": {ID: 1, Name: "Ann", Email: "ann@example.com"},
	}}
	tokens := &fakeTokenService{}
	events := &eventLog{}
	app := newUserApp(userService, tokens, events)

	status, _ := doRequest(t, app, fiber.MethodPost, "/api/users/logout", nil, "")
	if status != fiber.StatusUnauthorized {
		t.Errorf("logout without token = %d, want 401", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/users/logout", nil, "valid")
	if status != fiber.StatusOK || len(tokens.revoked) != 1 || events.logout != 1 {
		t.Errorf("logout = %d revoked %v events %d", status, tokens.revoked, events.logout)
	}

	status, resp := doRequest(t, app, fiber.MethodPost, "/api/users/profile", map[string]string{"name": "Annie"}, "valid")
	if status != fiber.StatusOK {
		t.Fatalf("profile status = %d", status)
	}
	var updated userResponse
	if err := json.Unmarshal(resp.Data, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.User.Name != "Annie" {
		t.Errorf("name = %q, want Annie", updated.User.Name)
	}
	if userService.lastUpdate.Mobile != nil || userService.lastUpdate.Image != nil {
		t.Errorf("untouched fields were sent: %+v", userService.lastUpdate)
	}
}

func TestUserHandlerListPagination(t *testing.T) {
	userService := &fakeUserService{users: map[string]*model.User{
		"a@example.com": {ID: 1, Email: "a@example.com"},
		"b@example.com": {ID: 2, Email: "b@example.com"},
		"c@example.com": {ID: 3, Email: "c@example.com"},
	}}
	app := newUserApp(userService, &fakeTokenService{}, &eventLog{})

	status, resp := doRequest(t, app, fiber.MethodGet, "/api/users?page=x&limit=2", nil, "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var list userListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Page != 1 || list.Total != 3 || list.TotalPages != 2 {
		t.Errorf("list = page %d total %d pages %d", list.Page, list.Total, list.TotalPages)
	}
}

func TestRecoveryHandlerForgotPassword(t *testing.T) {
	account := &recovery.Account{ID: 7, Email: "ann@example.com"}
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"issued", nil, fiber.StatusOK},
		{"unknown account", recovery.ErrAccountNotFound, fiber.StatusNotFound},
		{"delivery failed", fmt.Errorf("%w: smtp down", recovery.ErrDeliveryFailed), fiber.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &eventLog{}
			h := NewRecoveryHandler(&fakeRecoveryService{account: account, err: tt.err}, events)
			app := fiber.New()
			app.Post("/forgot", h.PostForgotPassword)

			status, _ := doRequest(t, app, fiber.MethodPost, "/forgot", map[string]string{"email": "ann@example.com"}, "")
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if tt.err == nil && (len(events.otps) != 1 || events.otps[0].EventType != audit.EventTypeOTPIssued || events.otps[0].UserID != 7) {
				t.Errorf("otp events = %+v", events.otps)
			}
		})
	}

	h := NewRecoveryHandler(&fakeRecoveryService{}, &eventLog{})
	app := fiber.New()
	app.Post("/forgot", h.PostForgotPassword)
	if status, _ := doRequest(t, app, fiber.MethodPost, "/forgot", map[string]string{}, ""); status != fiber.StatusBadRequest {
		t.Errorf("missing email status = %d, want 400", status)
	}
}

func TestRecoveryHandlerResetPassword(t *testing.T) {
	account := &recovery.Account{ID: 7, Email: "ann@example.com"}
	tests := []struct {
		name      string
		err       error
		status    int
		message   string
		eventType string
	}{
		{"verified", nil, fiber.StatusOK, "", audit.EventTypeOTPVerified},
		{"unknown account", recovery.ErrAccountNotFound, fiber.StatusNotFound, MsgUserNotFound, ""},
		{"no challenge", recovery.ErrChallengeNotFound, fiber.StatusNotFound, MsgNoActiveOTP, audit.EventTypeOTPFailed},
		{"expired", recovery.ErrChallengeExpired, fiber.StatusBadRequest, MsgOTPExpired, audit.EventTypeOTPFailed},
		{"locked", recovery.ErrTooManyAttempts, fiber.StatusTooManyRequests, MsgOTPTooManyAttempts, audit.EventTypeOTPFailed},
		{"mismatch", recovery.NewAttemptFailError(4), fiber.StatusBadRequest, MsgOTPMismatch, audit.EventTypeOTPFailed},
		{"empty password", recovery.ErrInvalidCredential, fiber.StatusBadRequest, MsgInvalidRequestBody, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &eventLog{}
			h := NewRecoveryHandler(&fakeRecoveryService{account: account, err: tt.err}, events)
			app := fiber.New()
			app.Post("/reset", h.PostResetPassword)

			body := map[string]string{"email": "ann@example.com", "otp": "482913", "password": "n3w"}
			status, resp := doRequest(t, app, fiber.MethodPost, "/reset", body, "")
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if tt.message != "" && (resp.Error == nil || resp.Error.Message != tt.message) {
				t.Errorf("error = %+v, want message %q", resp.Error, tt.message)
			}
			if tt.eventType == "" {
				if len(events.otps) != 0 {
					t.Errorf("unexpected otp events %+v", events.otps)
				}
			} else if len(events.otps) != 1 || events.otps[0].EventType != tt.eventType {
				t.Errorf("otp events = %+v, want one %s", events.otps, tt.eventType)
			}
		})
	}
}

func TestRecoveryHandlerReportsAttemptsLeft(t *testing.T) {
	h := NewRecoveryHandler(&fakeRecoveryService{err: recovery.NewAttemptFailError(2)}, &eventLog{})
	app := fiber.New()
	app.Post("/reset", h.PostResetPassword)

	_, resp := doRequest(t, app, fiber.MethodPost, "/reset", map[string]string{"email": "a@example.com", "otp": "000000", "password": "x"}, "")
	if resp.Error == nil || len(resp.Error.Errors) != 1 {
		t.Fatalf("error = %+v", resp.Error)
	}
	detail := resp.Error.Errors[0]
	if detail.AttemptsLeft == nil || *detail.AttemptsLeft != 2 {
		t.Errorf("attemptsLeft = %v, want 2", detail.AttemptsLeft)
	}
}

func newBlogApp(blogService *fakeBlogService, sink audit.Sink) *fiber.App {
	userService := &fakeUserService{users: map[string]*model.User{
		"ann@example.com": {ID: 1, Name: "Ann", Email: "ann@example.com"},
	}}
	h := NewBlogHandler(blogService, userService, nil)
	app := fiber.New()
	if sink != nil {
		app.Use(reqlog.New(reqlog.Config{Sink: sink, AccountID: authn.AccountID}))
	}
	auth := withIdentity(1, "ann@example.com")
	app.Get("/api/blogs", h.GetBlogs)
	app.Get("/api/blogs/export", auth, h.GetExportBlogs)
	app.Get("/api/blogs/:id", h.GetBlog)
	app.Post("/api/blogs", auth, h.PostCreateBlog)
	app.Put("/api/blogs/:id", auth, h.PutUpdateBlog)
	app.Delete("/api/blogs/:id", auth, h.DeleteBlog)
	app.Post("/api/blogs/:id/like", auth, h.PostToggleLike)
	return app
}

func TestBlogHandlerCRUD(t *testing.T) {
	blogService := &fakeBlogService{}
	app := newBlogApp(blogService, nil)

	status, resp := doRequest(t, app, fiber.MethodPost, "/api/blogs", map[string]any{"title": "Hello", "content": []string{"a"}}, "valid")
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	var created blogResponse
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.Blog.AuthorName != "Ann" || created.Blog.AuthorID != 1 {
		t.Errorf("author = %d %q", created.Blog.AuthorID, created.Blog.AuthorName)
	}

	if status, _ := doRequest(t, app, fiber.MethodGet, "/api/blogs/1", nil, ""); status != fiber.StatusOK {
		t.Errorf("get status = %d", status)
	}
	if status, _ := doRequest(t, app, fiber.MethodGet, "/api/blogs/99", nil, ""); status != fiber.StatusNotFound {
		t.Errorf("get missing status = %d", status)
	}
	if status, _ := doRequest(t, app, fiber.MethodGet, "/api/blogs/abc", nil, ""); status != fiber.StatusBadRequest {
		t.Errorf("get invalid id status = %d", status)
	}

	status, resp = doRequest(t, app, fiber.MethodPost, "/api/blogs/1/like", nil, "valid")
	var like likeResponse
	if err := json.Unmarshal(resp.Data, &like); err != nil {
		t.Fatal(err)
	}
	if status != fiber.StatusOK || !like.Liked || like.Likes != 1 || like.Message != MsgBlogLiked {
		t.Errorf("like = %d %+v", status, like)
	}
}

func TestBlogHandlerErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{blogs.ErrBlogNotFound, fiber.StatusNotFound},
		{blogs.ErrTitleTaken, fiber.StatusConflict},
		{blogs.ErrTitleRequired, fiber.StatusBadRequest},
		{blogs.ErrInvalidDocument, fiber.StatusBadRequest},
		{errors.New("connection reset"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		app := newBlogApp(&fakeBlogService{err: tt.err}, nil)
		if status, _ := doRequest(t, app, fiber.MethodPut, "/api/blogs/1", map[string]string{"title": "x"}, "valid"); status != tt.status {
			t.Errorf("update with %v: status = %d, want %d", tt.err, status, tt.status)
		}
		if status, _ := doRequest(t, app, fiber.MethodDelete, "/api/blogs/1", nil, "valid"); status != tt.status {
			t.Errorf("delete with %v: status = %d, want %d", tt.err, status, tt.status)
		}
	}
}

func TestBlogHandlerListPagination(t *testing.T) {
	blogService := &fakeBlogService{}
	for i := 1; i <= 25; i++ {
		blogService.blogs = append(blogService.blogs, model.Blog{ID: uint(i), Title: fmt.Sprintf("blog %d", i)})
	}
	app := newBlogApp(blogService, nil)

	_, resp := doRequest(t, app, fiber.MethodGet, "/api/blogs?page=3&limit=10", nil, "")
	var list blogListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Blogs) != 5 || list.Page != 3 || list.TotalPages != 3 || list.Total != 25 {
		t.Errorf("list = %d blogs page %d pages %d total %d", len(list.Blogs), list.Page, list.TotalPages, list.Total)
	}
}

type chanSink chan *audit.RequestRecord

func (s chanSink) Write(rec *audit.RequestRecord) { s <- rec }

func TestBlogHandlerExportIsStreamedAndCaptured(t *testing.T) {
	blogService := &fakeBlogService{}
	for i := 1; i <= 250; i++ {
		blogService.blogs = append(blogService.blogs, model.Blog{ID: uint(i), Title: fmt.Sprintf("blog %d", i)})
	}
	sink := make(chanSink, 1)
	app := newBlogApp(blogService, sink)

	req := httptest.NewRequest(fiber.MethodGet, "/api/blogs/export", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer valid")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK || resp.Header.Get(fiber.HeaderContentType) != mimeNDJSON {
		t.Fatalf("status %d content type %q", resp.StatusCode, resp.Header.Get(fiber.HeaderContentType))
	}

	var sent bytes.Buffer
	lines := 0
	scanner := bufio.NewScanner(io.TeeReader(resp.Body, &sent))
	for scanner.Scan() {
		var blog model.Blog
		if err := json.Unmarshal(scanner.Bytes(), &blog); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		lines++
		if blog.ID != uint(lines) {
			t.Fatalf("line %d has blog %d", lines, blog.ID)
		}
	}
	if lines != 250 {
		t.Fatalf("got %d lines, want 250", lines)
	}

	select {
	case rec := <-sink:
		if rec.AccountID != 1 || rec.ResponseStatus != fiber.StatusOK || rec.Aborted {
			t.Errorf("record = account %d status %d aborted %v", rec.AccountID, rec.ResponseStatus, rec.Aborted)
		}
		if !bytes.Equal(rec.ResponseBody, sent.Bytes()) {
			t.Errorf("captured %d bytes, client received %d", len(rec.ResponseBody), sent.Len())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit record emitted")
	}
}

func newMultipartRequest(t *testing.T, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(content)
	}
	mw.Close()
	req := httptest.NewRequest(fiber.MethodPost, "/api/image/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		err    error
		status int
	}{
		{"uploaded", "image", nil, fiber.StatusOK},
		{"missing field", "", nil, fiber.StatusBadRequest},
		{"unsupported", "image", uploads.ErrUnsupportedType, fiber.StatusBadRequest},
		{"storage down", "image", errors.New("s3 unavailable"), fiber.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := &fakeUploader{url: "https://cdn.example.com/uploads/image-1.png", err: tt.err}
			app := fiber.New()
			app.Post("/api/image/upload", NewUploadHandler(uploader).PostUploadImage)

			resp, err := app.Test(newMultipartRequest(t, tt.field, "Cat.PNG", "image/png", []byte("png-bytes")), -1)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != fiber.StatusOK {
				return
			}
			var out struct {
				Data uploadResponse `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out.Data.ImageURL != uploader.url {
				t.Errorf("imageUrl = %q", out.Data.ImageURL)
			}
			if uploader.got.Filename != "Cat.PNG" || uploader.got.ContentType != "image/png" || uploader.got.Size != 9 {
				t.Errorf("uploaded image = %+v", uploader.got)
			}
		})
	}
}
