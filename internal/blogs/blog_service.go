package blogs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/khanghh/quill/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BlogOptions struct {
	Title   string
	Content json.RawMessage
	Tags    json.RawMessage
	Image   string
}

type Author struct {
	ID   uint
	Name string
}

type BlogService struct {
	blogRepo BlogRepository
}

// jsonArray validates that doc is a JSON array, defaulting to an empty one.
func jsonArray(doc json.RawMessage) (datatypes.JSON, error) {
	if len(doc) == 0 || string(doc) == "null" {
		return datatypes.JSON("[]"), nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(doc, &items); err != nil {
		return nil, ErrInvalidDocument
	}
	return datatypes.JSON(doc), nil
}

func (s *BlogService) prepare(opts BlogOptions) (string, datatypes.JSON, datatypes.JSON, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return "", nil, nil, ErrTitleRequired
	}
	content, err := jsonArray(opts.Content)
	if err != nil {
		return "", nil, nil, err
	}
	tags, err := jsonArray(opts.Tags)
	if err != nil {
		return "", nil, nil, err
	}
	return title, content, tags, nil
}

func isDuplicateTitle(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 && strings.Contains(mysqlErr.Message, model.IdxBlogTitle)
}

func (s *BlogService) CreateBlog(ctx context.Context, author Author, opts BlogOptions) (*model.Blog, error) {
	title, content, tags, err := s.prepare(opts)
	if err != nil {
		return nil, err
	}
	exists, err := s.blogRepo.TitleExists(ctx, title, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrTitleTaken
	}

	blog := model.Blog{
		Title:      title,
		Content:    content,
		Tags:       tags,
		Image:      opts.Image,
		AuthorID:   author.ID,
		AuthorName: author.Name,
	}
	if err := s.blogRepo.Create(ctx, &blog); err != nil {
		if isDuplicateTitle(err) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}
	return &blog, nil
}

// UpdateBlog replaces the blog fields. Only the author may update a blog.
func (s *BlogService) UpdateBlog(ctx context.Context, authorID uint, blogID uint, opts BlogOptions) (*model.Blog, error) {
	blog, err := s.GetBlog(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if blog.AuthorID != authorID {
		return nil, ErrBlogNotFound
	}
	title, content, tags, err := s.prepare(opts)
	if err != nil {
		return nil, err
	}
	exists, err := s.blogRepo.TitleExists(ctx, title, blogID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrTitleTaken
	}

	updates := map[string]interface{}{
		"title":   title,
		"content": content,
		"tags":    tags,
		"image":   opts.Image,
	}
	affected, err := s.blogRepo.Updates(ctx, blogID, authorID, updates)
	if err != nil {
		if isDuplicateTitle(err) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}
	if affected == 0 {
		return nil, ErrBlogNotFound
	}
	return s.GetBlog(ctx, blogID)
}

func (s *BlogService) DeleteBlog(ctx context.Context, authorID uint, blogID uint) error {
	affected, err := s.blogRepo.Delete(ctx, blogID, authorID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBlogNotFound
	}
	return nil
}

func (s *BlogService) GetBlog(ctx context.Context, blogID uint) (*model.Blog, error) {
	blog, err := s.blogRepo.First(ctx, blogID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlogNotFound
	}
	return blog, err
}

func (s *BlogService) ListBlogs(ctx context.Context, offset int, limit int) ([]model.Blog, int64, error) {
	return s.blogRepo.List(ctx, offset, limit)
}

// ToggleLike likes the blog for userID, or removes the like if present.
func (s *BlogService) ToggleLike(ctx context.Context, blogID uint, userID uint) (bool, int, error) {
	liked, likes, err := s.blogRepo.ToggleLike(ctx, blogID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, 0, ErrBlogNotFound
	}
	return liked, likes, err
}

// ExportBlogs calls fn with every blog in id order, batchSize at a time.
func (s *BlogService) ExportBlogs(ctx context.Context, batchSize int, fn func(blogs []model.Blog) error) error {
	return s.blogRepo.FindInBatches(ctx, batchSize, fn)
}

func NewBlogService(blogRepo BlogRepository) *BlogService {
	return &BlogService{blogRepo: blogRepo}
}
