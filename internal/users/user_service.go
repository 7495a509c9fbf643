package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/khanghh/quill/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserOptions struct {
	Name     string
	Email    string
	Password string
	Mobile   string
	Image    string
}

// UpdateProfileOptions holds the profile fields to change. Nil fields are
// left untouched.
type UpdateProfileOptions struct {
	Name   *string
	Mobile *string
	Image  *string
}

type UserService struct {
	userRepo UserRepository
	admins   map[string]struct{}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDuplicateKey(err error, index string) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 && strings.Contains(mysqlErr.Message, index)
}

// IsAdmin reports whether email is in the configured admin allowlist.
func (s *UserService) IsAdmin(email string) bool {
	_, ok := s.admins[normalizeEmail(email)]
	return ok
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.First(ctx, "id = ?", userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	user, err := s.userRepo.First(ctx, "email = ?", normalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) CreateUser(ctx context.Context, opts CreateUserOptions) (*model.User, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, ErrNameRequired
	}
	if _, err := mail.ParseAddress(opts.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if opts.Password == "" {
		return nil, ErrInvalidPassword
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrInvalidPassword
		}
		return nil, err
	}

	user := model.User{
		Name:     strings.TrimSpace(opts.Name),
		Email:    normalizeEmail(opts.Email),
		Password: string(passwordHash),
		Mobile:   opts.Mobile,
		Image:    opts.Image,
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		if isDuplicateKey(err, model.IdxUserEmail) {
			return nil, ErrEmailRegistered
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate returns the user owning email if password matches.
func (s *UserService) Authenticate(ctx context.Context, email string, password string) (*model.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidEmail) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, opts UpdateProfileOptions) (*model.User, error) {
	updates := map[string]interface{}{}
	if opts.Name != nil {
		name := strings.TrimSpace(*opts.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		updates["name"] = name
	}
	if opts.Mobile != nil {
		updates["mobile"] = *opts.Mobile
	}
	if opts.Image != nil {
		updates["image"] = *opts.Image
	}
	if len(updates) > 0 {
		if _, err := s.userRepo.Updates(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	return s.GetUserByID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, offset int, limit int) ([]model.User, int64, error) {
	return s.userRepo.List(ctx, offset, limit)
}

func NewUserService(userRepo UserRepository, admins []string) *UserService {
	adminSet := make(map[string]struct{}, len(admins))
	for _, email := range admins {
		adminSet[normalizeEmail(email)] = struct{}{}
	}
	return &UserService{
		userRepo: userRepo,
		admins:   adminSet,
	}
}
