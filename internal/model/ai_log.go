package model

import (
	"time"
)

// AIRequestLog 每次 AI 调用的审计日志
// 状态流转：draft -> sending -> success/error/rate_limit
type AIRequestLog struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	RequestID string `json:"request_id" gorm:"size:64;uniqueIndex"` // UUID
	ProjectID uint   `json:"project_id" gorm:"index"`
	Phase     string `json:"phase" gorm:"size:50"`

	Prompt       string `json:"prompt" gorm:"type:text"`
	InputContext string `json:"input_context" gorm:"type:text"`
	ResponseRaw  string `json:"response_raw" gorm:"type:text"`

	Status       string  `json:"status" gorm:"size:20;default:draft"` // draft, sending, success, error, rate_limit
	ErrorMessage string  `json:"error_message" gorm:"size:2000"`
	DurationSec  float64 `json:"duration_sec" gorm:"default:0"`

	RequestAt  *time.Time `json:"request_at"`
	ResponseAt *time.Time `json:"response_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
