package model

import (
	"time"

	"gorm.io/datatypes"
)

// MaxRequestLogURLLength is the capacity in bytes of the request_log url column.
const MaxRequestLogURLLength = 65535

// RequestLog is the database form of one captured request/response exchange.
type RequestLog struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement"`
	RequestID      string         `gorm:"size:64;index"`
	Timestamp      time.Time      `gorm:"index;not null"`
	Method         string         `gorm:"size:16;not null"`
	URL            string         `gorm:"type:text;not null"`
	AccountID      uint           `gorm:"index"`
	RequestHeaders datatypes.JSON `gorm:"not null"`
	RequestBody    string         `gorm:"type:mediumtext"`
	ResponseStatus int            `gorm:"not null"`
	ResponseTimeMs int64          `gorm:"not null"`
	ResponseBody   string         `gorm:"type:mediumtext"`
	ResponseBytes  int64          `gorm:"not null;default:0"`
	Truncated      bool           `gorm:"not null;default:false"`
	Aborted        bool           `gorm:"not null;default:false"`
}

func (RequestLog) TableName() string {
	return "request_log"
}
