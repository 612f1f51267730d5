package model

import (
	"time"
)

// Project RFP 项目主表
// CurrentStage 记录流水线所处阶段，取值见 statemachine.ProjectStage
type Project struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Language    string `json:"language" gorm:"size:10;default:en"`
	DomainID    *uint  `json:"domain_id" gorm:"index"`

	// draft, initialized, info_gathered, practices_refined, specifications_gathered,
	// practices_gap_gathered, sections_generated, generating_content, content_generated,
	// generating_images, images_generated, document_locked, completed_with_errors, completed
	CurrentStage string `json:"current_stage" gorm:"size:50;default:draft"`

	// 项目范围访谈结果（每轮覆盖写入，分数只增不减）
	ProjectInterview InterviewResult `json:"project_interview" gorm:"embedded;embeddedPrefix:project_interview_"`
	// 最佳实践范围访谈结果
	PracticesInterview InterviewResult `json:"practices_interview" gorm:"embedded;embeddedPrefix:practices_interview_"`

	// AI 研究产物
	InitialPractices string `json:"initial_practices" gorm:"type:text"`
	RefinedPractices string `json:"refined_practices" gorm:"type:text"`

	// 文档结构
	DocumentTitle string `json:"document_title" gorm:"size:500"`
	TOCJson       string `json:"toc_json" gorm:"type:text"` // 结构生成阶段缓存的目录 JSON

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Domain         *Domain           `json:"domain,omitempty" gorm:"foreignKey:DomainID"`
	FormInputs     []FormInput       `json:"form_inputs,omitempty" gorm:"foreignKey:ProjectID"`
	PracticeInputs []PracticeInput   `json:"practice_inputs,omitempty" gorm:"foreignKey:ProjectID"`
	Sections       []DocumentSection `json:"sections,omitempty" gorm:"foreignKey:ProjectID"`
}

// InterviewResult 访谈范围的类型化结果，替代自由格式的 JSON 草稿字段
type InterviewResult struct {
	Status string  `json:"status" gorm:"size:20;default:ongoing"` // ongoing, complete
	Score  float64 `json:"score" gorm:"default:0"`                // 0-100，单调不减
	// ResearchNotes 访谈 AI 每轮附带的研究笔记，下一轮回灌进上下文
	ResearchNotes string `json:"research_notes" gorm:"type:text"`
}

// Domain 行业领域
type Domain struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"size:1000"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KnowledgeBase 领域知识库，存放已整理的最佳实践文本
// 初始化阶段优先取知识库，缺失时才调用 AI 研究
type KnowledgeBase struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	Name               string    `json:"name" gorm:"size:255;not null"`
	DomainID           uint      `json:"domain_id" gorm:"index;not null"`
	ExtractedPractices string    `json:"extracted_practices" gorm:"type:text"`
	State              string    `json:"state" gorm:"size:20;default:ready"` // draft, ready
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
