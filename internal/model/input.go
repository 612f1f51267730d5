package model

import (
	"time"
)

// InputFields 访谈字段的公共列
// FormInput 与 PracticeInput 结构一致，分表存放以隔离 (project_id, field_key) 唯一约束
type InputFields struct {
	Label         string `json:"label" gorm:"size:500;not null"`
	ComponentType string `json:"component_type" gorm:"size:30;default:text"` // text, textarea, select, radio, checkbox, date, number
	DataType      string `json:"data_type" gorm:"size:30;default:char"`
	// 选项列表，JSON 数组字符串
	Options string `json:"options" gorm:"type:text"`
	Tooltip string `json:"tooltip" gorm:"size:1000"`
	// AI 生成的候选答案，JSON 数组字符串
	SuggestedAnswers string `json:"suggested_answers" gorm:"type:text"`
	// 依赖规则 {"field_key":"...","value":"..."} 的 JSON 串，为空表示无依赖
	DependsOn string `json:"depends_on" gorm:"size:500"`
	// 选中后需要补充说明的选项值，JSON 数组字符串
	SpecifyTriggers string `json:"specify_triggers" gorm:"type:text"`

	// 用户作答。空串表示未作答
	UserValue string `json:"user_value" gorm:"type:text"`
	// 用户标记为与项目无关
	IsIrrelevant     bool   `json:"is_irrelevant" gorm:"default:false"`
	IrrelevantReason string `json:"irrelevant_reason" gorm:"size:1000"`

	RoundNumber int `json:"round_number" gorm:"default:1"`
	Sequence    int `json:"sequence" gorm:"default:0"`
}

// Answered 字段是否已有有效作答（标记无关视同已处理）
func (f *InputFields) Answered() bool {
	return f.UserValue != "" || f.IsIrrelevant
}

// FormInput 项目范围访谈字段
type FormInput struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProjectID uint   `json:"project_id" gorm:"uniqueIndex:idx_form_project_key;not null"`
	FieldKey  string `json:"field_key" gorm:"size:128;uniqueIndex:idx_form_project_key;not null"`
	InputFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PracticeInput 最佳实践范围访谈字段
type PracticeInput struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProjectID uint   `json:"project_id" gorm:"uniqueIndex:idx_practice_project_key;not null"`
	FieldKey  string `json:"field_key" gorm:"size:128;uniqueIndex:idx_practice_project_key;not null"`
	InputFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomField 管理员配置的固定字段模板，按阶段物化为访谈字段
type CustomField struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Code         string    `json:"code" gorm:"size:128;uniqueIndex:idx_custom_code_phase;not null"`
	Phase        string    `json:"phase" gorm:"size:30;uniqueIndex:idx_custom_code_phase;not null"` // init, post_gathering
	Label        string    `json:"label" gorm:"size:500;not null"`
	InputType    string    `json:"input_type" gorm:"size:30;default:text"`
	Options      string    `json:"options" gorm:"type:text"`
	Placeholder  string    `json:"placeholder" gorm:"size:500"`
	DefaultValue string    `json:"default_value" gorm:"size:1000"`
	IsRequired   bool      `json:"is_required" gorm:"default:false"`
	HelpText     string    `json:"help_text" gorm:"size:1000"`
	Sequence     int       `json:"sequence" gorm:"default:0"`
	Active       bool      `json:"active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
