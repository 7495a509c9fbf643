package blogs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/khanghh/quill/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type memoryBlogRepo struct {
	blogs  map[uint]*model.Blog
	likes  map[[2]uint]bool
	nextID uint
}

func newMemoryBlogRepo() *memoryBlogRepo {
	return &memoryBlogRepo{blogs: make(map[uint]*model.Blog), likes: make(map[[2]uint]bool)}
}

func (r *memoryBlogRepo) First(ctx context.Context, blogID uint) (*model.Blog, error) {
	b, ok := r.blogs[blogID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *memoryBlogRepo) TitleExists(ctx context.Context, title string, excludeID uint) (bool, error) {
	for id, b := range r.blogs {
		if b.Title == title && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryBlogRepo) Create(ctx context.Context, blog *model.Blog) error {
	r.nextID++
	blog.ID = r.nextID
	copied := *blog
	r.blogs[blog.ID] = &copied
	return nil
}

func (r *memoryBlogRepo) Updates(ctx context.Context, blogID uint, authorID uint, columns map[string]interface{}) (int64, error) {
	b, ok := r.blogs[blogID]
	if !ok || b.AuthorID != authorID {
		return 0, nil
	}
	b.Title = columns["title"].(string)
	b.Content = columns["content"].(datatypes.JSON)
	b.Tags = columns["tags"].(datatypes.JSON)
	b.Image = columns["image"].(string)
	return 1, nil
}

func (r *memoryBlogRepo) Delete(ctx context.Context, blogID uint, authorID uint) (int64, error) {
	b, ok := r.blogs[blogID]
	if !ok || b.AuthorID != authorID {
		return 0, nil
	}
	delete(r.blogs, blogID)
	return 1, nil
}

func (r *memoryBlogRepo) List(ctx context.Context, offset int, limit int) ([]model.Blog, int64, error) {
	var ret []model.Blog
	for id := r.nextID; id > 0; id-- {
		if b, ok := r.blogs[id]; ok {
			ret = append(ret, *b)
		}
	}
	total := int64(len(ret))
	if offset >= len(ret) {
		return nil, total, nil
	}
	return ret[offset:min(offset+limit, len(ret))], total, nil
}

func (r *memoryBlogRepo) FindInBatches(ctx context.Context, batchSize int, fn func(blogs []model.Blog) error) error {
	var batch []model.Blog
	for id := uint(1); id <= r.nextID; id++ {
		if b, ok := r.blogs[id]; ok {
			batch = append(batch, *b)
		}
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = nil
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (r *memoryBlogRepo) ToggleLike(ctx context.Context, blogID uint, userID uint) (bool, int, error) {
	b, ok := r.blogs[blogID]
	if !ok {
		return false, 0, gorm.ErrRecordNotFound
	}
	key := [2]uint{blogID, userID}
	if r.likes[key] {
		delete(r.likes, key)
		b.LikeCount--
		return false, b.LikeCount, nil
	}
	r.likes[key] = true
	b.LikeCount++
	return true, b.LikeCount, nil
}

var ann = Author{ID: 1, Name: "Ann"}

func TestCreateBlog(t *testing.T) {
	svc := NewBlogService(newMemoryBlogRepo())
	ctx := context.Background()

	blog, err := svc.CreateBlog(ctx, ann, BlogOptions{
		Title:   " Hello ",
		Content: json.RawMessage(`[{"type":"p","text":"hi"}]`),
	})
	if err != nil {
		t.Fatalf("CreateBlog() error = %v", err)
	}
	if blog.Title != "Hello" || blog.AuthorName != "Ann" || string(blog.Tags) != "[]" {
		t.Fatalf("unexpected blog %+v", blog)
	}

	if _, err := svc.CreateBlog(ctx, ann, BlogOptions{Title: "Hello"}); !errors.Is(err, ErrTitleTaken) {
		t.Fatalf("duplicate title error = %v", err)
	}
	if _, err := svc.CreateBlog(ctx, ann, BlogOptions{Title: ""}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("empty title error = %v", err)
	}
	if _, err := svc.CreateBlog(ctx, ann, BlogOptions{Title: "X", Tags: json.RawMessage(`{"a":1}`)}); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("object tags error = %v", err)
	}
}

func TestUpdateBlogAuthorOnly(t *testing.T) {
	svc := NewBlogService(newMemoryBlogRepo())
	ctx := context.Background()
	first, _ := svc.CreateBlog(ctx, ann, BlogOptions{Title: "First"})
	if _, err := svc.CreateBlog(ctx, ann, BlogOptions{Title: "Second"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateBlog(ctx, 2, first.ID, BlogOptions{Title: "Stolen"}); !errors.Is(err, ErrBlogNotFound) {
		t.Fatalf("non-author update error = %v", err)
	}
	if _, err := svc.UpdateBlog(ctx, ann.ID, first.ID, BlogOptions{Title: "Second"}); !errors.Is(err, ErrTitleTaken) {
		t.Fatalf("title clash error = %v", err)
	}
	updated, err := svc.UpdateBlog(ctx, ann.ID, first.ID, BlogOptions{Title: "First", Image: "a.png"})
	if err != nil {
		t.Fatalf("UpdateBlog() keeping own title error = %v", err)
	}
	if updated.Image != "a.png" {
		t.Fatalf("image = %q", updated.Image)
	}
}

func TestDeleteBlog(t *testing.T) {
	svc := NewBlogService(newMemoryBlogRepo())
	ctx := context.Background()
	blog, _ := svc.CreateBlog(ctx, ann, BlogOptions{Title: "Doomed"})

	if err := svc.DeleteBlog(ctx, 99, blog.ID); !errors.Is(err, ErrBlogNotFound) {
		t.Fatalf("non-author delete error = %v", err)
	}
	if err := svc.DeleteBlog(ctx, ann.ID, blog.ID); err != nil {
		t.Fatalf("DeleteBlog() error = %v", err)
	}
	if _, err := svc.GetBlog(ctx, blog.ID); !errors.Is(err, ErrBlogNotFound) {
		t.Fatalf("GetBlog() after delete error = %v", err)
	}
}

func TestToggleLike(t *testing.T) {
	svc := NewBlogService(newMemoryBlogRepo())
	ctx := context.Background()
	blog, _ := svc.CreateBlog(ctx, ann, BlogOptions{Title: "Likeable"})

	liked, likes, err := svc.ToggleLike(ctx, blog.ID, 7)
	if err != nil || !liked || likes != 1 {
		t.Fatalf("first toggle = %v, %d, %v", liked, likes, err)
	}
	liked, likes, err = svc.ToggleLike(ctx, blog.ID, 7)
	if err != nil || liked || likes != 0 {
		t.Fatalf("second toggle = %v, %d, %v", liked, likes, err)
	}
	if _, _, err := svc.ToggleLike(ctx, 404, 7); !errors.Is(err, ErrBlogNotFound) {
		t.Fatalf("missing blog error = %v", err)
	}
}

func TestExportBlogs(t *testing.T) {
	svc := NewBlogService(newMemoryBlogRepo())
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		if _, err := svc.CreateBlog(ctx, ann, BlogOptions{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	var batches, total int
	err := svc.ExportBlogs(ctx, 2, func(blogs []model.Blog) error {
		batches++
		total += len(blogs)
		return nil
	})
	if err != nil || batches != 3 || total != 5 {
		t.Fatalf("ExportBlogs() batches=%d total=%d err=%v", batches, total, err)
	}
}
