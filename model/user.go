package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	IdxUserEmail = "idx_user_email"
)

// User stores account information. The OTP columns hold the pending
// password recovery challenge and are NULL when none is active.
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"size:64;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex:idx_user_email;size:256;not null" json:"email"`
	Password     string         `gorm:"size:64;not null" json:"-"`
	Mobile       string         `gorm:"size:32;not null;default:''" json:"mobile,omitempty"`
	Image        string         `gorm:"size:1024;not null;default:''" json:"image,omitempty"`
	OTP          *string        `gorm:"column:otp;size:64" json:"-"`
	OTPIssuedAt  *time.Time     `gorm:"column:otp_issued_at" json:"-"`
	OTPExpiresAt *time.Time     `gorm:"column:otp_expires_at" json:"-"`
	OTPAttempts  int            `gorm:"column:otp_attempts;not null;default:0" json:"-"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == 0 {
		u.ID = GenerateID()
	}
	return nil
}
