package model

import (
	"time"
)

// DocumentSection RFP 文档章节
// GenerationStatus 同时充当异步生成任务的状态：pending, queued, generating, success, failed
type DocumentSection struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProjectID uint   `json:"project_id" gorm:"index;not null"`
	Title     string `json:"title" gorm:"size:500;not null"`
	// DescriptionIntent 目录生成时 AI 给出的写作意图，章节撰写阶段注入写作提示
	DescriptionIntent string `json:"description_intent" gorm:"type:text"`
	ContentHTML       string `json:"content_html" gorm:"type:text"`
	Sequence          int    `json:"sequence" gorm:"default:0"`

	// 异步生成任务句柄（UUID），入队时写入
	JobID            string     `json:"job_id" gorm:"size:64;index"`
	GenerationStatus string     `json:"generation_status" gorm:"size:20;default:pending"`
	ErrorMsg         string     `json:"error_msg" gorm:"size:2000"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Diagrams []SectionDiagram `json:"diagrams,omitempty" gorm:"foreignKey:SectionID"`
}

// SectionDiagram 章节内的图示占位/成品
// 内容生成阶段由 AI 产出标题与描述，图片生成阶段再填充 Image
type SectionDiagram struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	SectionID   uint   `json:"section_id" gorm:"index;not null"`
	Title       string `json:"title" gorm:"size:500"`
	Description string `json:"description" gorm:"type:text"`
	Image       []byte `json:"image,omitempty" gorm:"type:blob"`

	JobID            string `json:"job_id" gorm:"size:64;index"`
	GenerationStatus string `json:"generation_status" gorm:"size:20;default:pending"`
	ErrorMsg         string `json:"error_msg" gorm:"size:2000"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
