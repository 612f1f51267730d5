package model

import (
	"time"
)

// PublishedRFP 锁定文档的发布快照，Token 为对外访问的 UUID
type PublishedRFP struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ProjectID   uint      `json:"project_id" gorm:"index;not null"`
	Token       string    `json:"token" gorm:"size:64;uniqueIndex;not null"`
	Title       string    `json:"title" gorm:"size:500"`
	Description string    `json:"description" gorm:"type:text"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Sections []PublishedSection `json:"sections,omitempty" gorm:"foreignKey:PublishedID"`
}

// PublishedSection 发布时拷贝的章节内容，与在编文档解耦
type PublishedSection struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	PublishedID uint   `json:"published_id" gorm:"index;not null"`
	Title       string `json:"title" gorm:"size:500"`
	ContentHTML string `json:"content_html" gorm:"type:text"`
	Sequence    int    `json:"sequence" gorm:"default:0"`

	Diagrams []PublishedDiagram `json:"diagrams,omitempty" gorm:"foreignKey:SectionID"`
}

type PublishedDiagram struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SectionID uint   `json:"section_id" gorm:"index;not null"`
	Title     string `json:"title" gorm:"size:500"`
	Image     []byte `json:"image,omitempty" gorm:"type:blob"`
}
