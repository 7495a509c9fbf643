package api

import (
	"encoding/json"

	"github.com/khanghh/quill/model"
)

const APIVersion = "1.0"

type APIResponse struct {
	APIVersion string        `json:"apiVersion"`
	Data       any           `json:"data,omitempty"`
	Error      *APIErrorInfo `json:"error,omitempty"`
}

type APIErrorInfo struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Errors  []APIErrorDetail `json:"errors,omitempty"`
}

type APIErrorDetail struct {
	Domain       string `json:"domain"`
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	AttemptsLeft *int   `json:"attemptsLeft,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type signupRequest struct {
	Name     string `json:"name"     form:"name"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
	Mobile   string `json:"mobile"   form:"mobile"`
	Image    string `json:"image"    form:"image"`
}

type signupResponse struct {
	Message   string `json:"message"`
	UserID    uint   `json:"userId"`
	UserAdmin bool   `json:"userAdmin"`
}

type loginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	UserAdmin bool   `json:"userAdmin"`
}

type updateProfileRequest struct {
	Name   *string `json:"name"   form:"name"`
	Mobile *string `json:"mobile" form:"mobile"`
	Image  *string `json:"image"  form:"image"`
}

type userResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type userListResponse struct {
	Message    string       `json:"message"`
	Users      []model.User `json:"users"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"    form:"email"`
	OTP      string `json:"otp"      form:"otp"`
	Password string `json:"password" form:"password"`
}

type blogRequest struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
	Tags    json.RawMessage `json:"tags"`
	Image   string          `json:"image"`
}

type blogResponse struct {
	Message string      `json:"message"`
	Blog    *model.Blog `json:"blog"`
}

type blogListResponse struct {
	Blogs      []model.Blog `json:"blogs"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}

type likeResponse struct {
	Message string `json:"message"`
	Liked   bool   `json:"liked"`
	Likes   int    `json:"likes"`
}

type uploadResponse struct {
	ImageURL string `json:"imageUrl"`
}
