package api

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/auth"
	"github.com/khanghh/quill/internal/blogs"
	"github.com/khanghh/quill/internal/middlewares/authn"
	"github.com/khanghh/quill/internal/recovery"
	"github.com/khanghh/quill/internal/uploads"
	"github.com/khanghh/quill/internal/users"
	"github.com/khanghh/quill/model"
)

type fakeVerifier struct {
	tokens map[string]*auth.TokenClaims
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (*auth.TokenClaims, error) {
	if claims, ok := v.tokens[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrTokenInvalid
}

func withIdentity(userID uint, email string) fiber.Handler {
	return authn.Bearer(&fakeVerifier{tokens: map[string]*auth.TokenClaims{
		"valid": {UserID: userID, Email: email},
	}})
}

type fakeUserService struct {
	users      map[string]*model.User
	admins     map[string]bool
	createErr  error
	lastUpdate users.UpdateProfileOptions
}

func (s *fakeUserService) IsAdmin(email string) bool { return s.admins[email] }

func (s *fakeUserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	for _, u := range s.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (s *fakeUserService) CreateUser(ctx context.Context, opts users.CreateUserOptions) (*model.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if _, ok := s.users[opts.Email]; ok {
		return nil, users.ErrEmailRegistered
	}
	u := &model.User{ID: uint(len(s.users) + 1), Name: opts.Name, Email: opts.Email, Password: opts.Password}
	s.users[opts.Email] = u
	return u, nil
}

func (s *fakeUserService) Authenticate(ctx context.Context, email string, password string) (*model.User, error) {
	u, ok := s.users[email]
	if !ok || u.Password != password {
		return nil, users.ErrInvalidCredentials
	}
	return u, nil
}

func (s *fakeUserService) UpdateProfile(ctx context.Context, userID uint, opts users.UpdateProfileOptions) (*model.User, error) {
	s.lastUpdate = opts
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if opts.Name != nil {
		u.Name = *opts.Name
	}
	return u, nil
}

func (s *fakeUserService) ListUsers(ctx context.Context, offset int, limit int) ([]model.User, int64, error) {
	var list []model.User
	for _, u := range s.users {
		list = append(list, *u)
	}
	return list, int64(len(list)), nil
}

type fakeTokenService struct {
	revoked []string
}

func (s *fakeTokenService) Issue(userID uint, email string) (string, *auth.TokenClaims, error) {
	return "token-" + email, &auth.TokenClaims{UserID: userID, Email: email}, nil
}

func (s *fakeTokenService) Revoke(ctx context.Context, claims *auth.TokenClaims) error {
	s.revoked = append(s.revoked, claims.Email)
	return nil
}

type fakeRecoveryService struct {
	account *recovery.Account
	err     error
}

func (s *fakeRecoveryService) Issue(ctx context.Context, email string) (*recovery.Account, error) {
	return s.account, s.err
}

func (s *fakeRecoveryService) Verify(ctx context.Context, email string, code string, newPassword string) (*recovery.Account, error) {
	return s.account, s.err
}

type eventLog struct {
	mu     sync.Mutex
	logins []audit.LoginRecord
	otps   []audit.OTPRecord
	logout int
}

func (l *eventLog) RecordLogin(ctx context.Context, record audit.LoginRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logins = append(l.logins, record)
}

func (l *eventLog) RecordLogout(ctx context.Context, userID uint, email, ip, userAgent string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logout++
}

func (l *eventLog) RecordOTP(ctx context.Context, record audit.OTPRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.otps = append(l.otps, record)
}

type fakeBlogService struct {
	blogs []model.Blog
	err   error
}

func (s *fakeBlogService) CreateBlog(ctx context.Context, author blogs.Author, opts blogs.BlogOptions) (*model.Blog, error) {
	if s.err != nil {
		return nil, s.err
	}
	blog := model.Blog{ID: uint(len(s.blogs) + 1), Title: opts.Title, AuthorID: author.ID, AuthorName: author.Name}
	s.blogs = append(s.blogs, blog)
	return &blog, nil
}

func (s *fakeBlogService) UpdateBlog(ctx context.Context, authorID uint, blogID uint, opts blogs.BlogOptions) (*model.Blog, error) {
	return nil, s.err
}

func (s *fakeBlogService) DeleteBlog(ctx context.Context, authorID uint, blogID uint) error {
	return s.err
}

func (s *fakeBlogService) GetBlog(ctx context.Context, blogID uint) (*model.Blog, error) {
	for i := range s.blogs {
		if s.blogs[i].ID == blogID {
			return &s.blogs[i], nil
		}
	}
	return nil, blogs.ErrBlogNotFound
}

func (s *fakeBlogService) ListBlogs(ctx context.Context, offset int, limit int) ([]model.Blog, int64, error) {
	end := min(offset+limit, len(s.blogs))
	if offset > end {
		offset = end
	}
	return s.blogs[offset:end], int64(len(s.blogs)), nil
}

func (s *fakeBlogService) ToggleLike(ctx context.Context, blogID uint, userID uint) (bool, int, error) {
	return true, 1, s.err
}

func (s *fakeBlogService) ExportBlogs(ctx context.Context, batchSize int, fn func(blogs []model.Blog) error) error {
	for start := 0; start < len(s.blogs); start += batchSize {
		if err := fn(s.blogs[start:min(start+batchSize, len(s.blogs))]); err != nil {
			return err
		}
	}
	return nil
}

type fakeUploader struct {
	got uploads.Image
	url string
	err error
}

func (u *fakeUploader) Upload(ctx context.Context, img uploads.Image) (string, error) {
	u.got = img
	return u.url, u.err
}
