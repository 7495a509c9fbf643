package api

import (
	"context"

	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/auth"
	"github.com/khanghh/quill/internal/blogs"
	"github.com/khanghh/quill/internal/recovery"
	"github.com/khanghh/quill/internal/uploads"
	"github.com/khanghh/quill/internal/users"
	"github.com/khanghh/quill/model"
)

type UserService interface {
	IsAdmin(email string) bool
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
	CreateUser(ctx context.Context, opts users.CreateUserOptions) (*model.User, error)
	Authenticate(ctx context.Context, email string, password string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, opts users.UpdateProfileOptions) (*model.User, error)
	ListUsers(ctx context.Context, offset int, limit int) ([]model.User, int64, error)
}

type TokenService interface {
	Issue(userID uint, email string) (string, *auth.TokenClaims, error)
	Revoke(ctx context.Context, claims *auth.TokenClaims) error
}

type RecoveryService interface {
	Issue(ctx context.Context, email string) (*recovery.Account, error)
	Verify(ctx context.Context, email string, code string, newPassword string) (*recovery.Account, error)
}

type BlogService interface {
	CreateBlog(ctx context.Context, author blogs.Author, opts blogs.BlogOptions) (*model.Blog, error)
	UpdateBlog(ctx context.Context, authorID uint, blogID uint, opts blogs.BlogOptions) (*model.Blog, error)
	DeleteBlog(ctx context.Context, authorID uint, blogID uint) error
	GetBlog(ctx context.Context, blogID uint) (*model.Blog, error)
	ListBlogs(ctx context.Context, offset int, limit int) ([]model.Blog, int64, error)
	ToggleLike(ctx context.Context, blogID uint, userID uint) (bool, int, error)
	ExportBlogs(ctx context.Context, batchSize int, fn func(blogs []model.Blog) error) error
}

type ImageUploader interface {
	Upload(ctx context.Context, img uploads.Image) (string, error)
}

type EventRecorder interface {
	RecordLogin(ctx context.Context, record audit.LoginRecord)
	RecordLogout(ctx context.Context, userID uint, email, ip, userAgent string)
	RecordOTP(ctx context.Context, record audit.OTPRecord)
}

