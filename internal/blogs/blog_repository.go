package blogs

import (
	"context"

	"github.com/khanghh/quill/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlogRepository interface {
	First(ctx context.Context, blogID uint) (*model.Blog, error)
	TitleExists(ctx context.Context, title string, excludeID uint) (bool, error)
	Create(ctx context.Context, blog *model.Blog) error
	Updates(ctx context.Context, blogID uint, authorID uint, columns map[string]interface{}) (int64, error)
	Delete(ctx context.Context, blogID uint, authorID uint) (int64, error)
	List(ctx context.Context, offset int, limit int) ([]model.Blog, int64, error)
	FindInBatches(ctx context.Context, batchSize int, fn func(blogs []model.Blog) error) error
	ToggleLike(ctx context.Context, blogID uint, userID uint) (liked bool, likes int, err error)
}

type blogRepository struct {
	db *gorm.DB
}

func (r *blogRepository) First(ctx context.Context, blogID uint) (*model.Blog, error) {
	var blog model.Blog
	err := r.db.WithContext(ctx).
		Preload("Author", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "email") }).
		First(&blog, blogID).Error
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

func (r *blogRepository) TitleExists(ctx context.Context, title string, excludeID uint) (bool, error) {
	var count int64
	tx := r.db.WithContext(ctx).Model(&model.Blog{}).Where("title = ?", title)
	if excludeID != 0 {
		tx = tx.Where("id <> ?", excludeID)
	}
	err := tx.Count(&count).Error
	return count > 0, err
}

func (r *blogRepository) Create(ctx context.Context, blog *model.Blog) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(blog).Error
}

func (r *blogRepository) Updates(ctx context.Context, blogID uint, authorID uint, columns map[string]interface{}) (int64, error) {
	ret := r.db.WithContext(ctx).Model(&model.Blog{}).
		Where("id = ? AND author_id = ?", blogID, authorID).
		Updates(columns)
	return ret.RowsAffected, ret.Error
}

func (r *blogRepository) Delete(ctx context.Context, blogID uint, authorID uint) (int64, error) {
	ret := r.db.WithContext(ctx).Where("id = ? AND author_id = ?", blogID, authorID).Delete(&model.Blog{})
	return ret.RowsAffected, ret.Error
}

func (r *blogRepository) List(ctx context.Context, offset int, limit int) ([]model.Blog, int64, error) {
	var (
		blogs []model.Blog
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.Blog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Preload("Author", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "email") }).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&blogs).Error
	return blogs, total, err
}

func (r *blogRepository) FindInBatches(ctx context.Context, batchSize int, fn func(blogs []model.Blog) error) error {
	var batch []model.Blog
	return r.db.WithContext(ctx).Order("id").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}

func (r *blogRepository) ToggleLike(ctx context.Context, blogID uint, userID uint) (bool, int, error) {
	var (
		liked bool
		blog  model.Blog
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "like_count").First(&blog, blogID).Error; err != nil {
			return err
		}
		ret := tx.Where("blog_id = ? AND user_id = ?", blogID, userID).Delete(&model.BlogLike{})
		if ret.Error != nil {
			return ret.Error
		}
		delta := -1
		if ret.RowsAffected == 0 {
			if err := tx.Create(&model.BlogLike{BlogID: blogID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
			delta = 1
		}
		blog.LikeCount += delta
		return tx.Model(&model.Blog{}).Where("id = ?", blogID).
			UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error
	})
	return liked, blog.LikeCount, err
}

func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}
