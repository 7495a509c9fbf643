package blogs

import "errors"

var (
	ErrBlogNotFound    = errors.New("blog not found or not authorized")
	ErrTitleTaken      = errors.New("a blog with this title already exists")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidDocument = errors.New("content and tags must be JSON arrays")
)
