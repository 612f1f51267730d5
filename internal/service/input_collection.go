package service

import (
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
)

// InterviewScope 访谈范围
type InterviewScope string

const (
	ScopeProject   InterviewScope = "project"   // 项目信息访谈（FormInput）
	ScopePractices InterviewScope = "practices" // 最佳实践差距访谈（PracticeInput）
)

// InterviewField 访谈字段的范围无关视图
// FormInput 与 PracticeInput 通过各自的 InputCollection 适配到这里
type InterviewField struct {
	ID               uint   `json:"id"`
	FieldKey         string `json:"field_key"`
	Label            string `json:"label"`
	ComponentType    string `json:"component_type"`
	DataType         string `json:"data_type"`
	Options          string `json:"options"`
	Tooltip          string `json:"tooltip"`
	SuggestedAnswers string `json:"suggested_answers"`
	DependsOn        string `json:"depends_on"`
	SpecifyTriggers  string `json:"specify_triggers"`
	UserValue        string `json:"user_value"`
	IsIrrelevant     bool   `json:"is_irrelevant"`
	IrrelevantReason string `json:"irrelevant_reason"`
	RoundNumber      int    `json:"round_number"`
	Sequence         int    `json:"sequence"`
}

// Answered 是否已作答（标记无关视同已处理）
func (f *InterviewField) Answered() bool {
	return f.UserValue != "" || f.IsIrrelevant
}

// InputCollection 访谈字段存取端口，屏蔽两张输入表的差异
type InputCollection interface {
	List(projectID uint) ([]InterviewField, error)
	ExistingKeys(projectID uint) (map[string]bool, error)
	CreateBatch(projectID uint, fields []InterviewField) error
	Get(id uint) (*InterviewField, error)
	SetAnswer(id uint, value string) error
	MarkIrrelevant(id uint, reason string) error
}

// -----------------------------
// FormInput 适配
// -----------------------------
type formInputCollection struct {
	repo repository.FormInputRepository
}

func NewFormInputCollection(repo repository.FormInputRepository) InputCollection {
	return &formInputCollection{repo: repo}
}

func (c *formInputCollection) List(projectID uint) ([]InterviewField, error) {
	inputs, err := c.repo.GetByProject(projectID)
	if err != nil {
		return nil, err
	}
	fields := make([]InterviewField, 0, len(inputs))
	for _, in := range inputs {
		fields = append(fields, fieldFromParts(in.ID, in.FieldKey, in.InputFields))
	}
	return fields, nil
}

func (c *formInputCollection) ExistingKeys(projectID uint) (map[string]bool, error) {
	return c.repo.ExistingKeys(projectID)
}

func (c *formInputCollection) CreateBatch(projectID uint, fields []InterviewField) error {
	inputs := make([]model.FormInput, 0, len(fields))
	for _, f := range fields {
		inputs = append(inputs, model.FormInput{
			ProjectID:   projectID,
			FieldKey:    f.FieldKey,
			InputFields: fieldToParts(f),
		})
	}
	return c.repo.CreateBatch(inputs)
}

func (c *formInputCollection) Get(id uint) (*InterviewField, error) {
	in, err := c.repo.Get(id)
	if err != nil {
		return nil, err
	}
	field := fieldFromParts(in.ID, in.FieldKey, in.InputFields)
	return &field, nil
}

func (c *formInputCollection) SetAnswer(id uint, value string) error {
	in, err := c.repo.Get(id)
	if err != nil {
		return err
	}
	in.UserValue = value
	in.IsIrrelevant = false
	in.IrrelevantReason = ""
	return c.repo.Save(in)
}

func (c *formInputCollection) MarkIrrelevant(id uint, reason string) error {
	in, err := c.repo.Get(id)
	if err != nil {
		return err
	}
	in.IsIrrelevant = true
	in.IrrelevantReason = reason
	in.UserValue = ""
	return c.repo.Save(in)
}

// -----------------------------
// PracticeInput 适配
// -----------------------------
type practiceInputCollection struct {
	repo repository.PracticeInputRepository
}

func NewPracticeInputCollection(repo repository.PracticeInputRepository) InputCollection {
	return &practiceInputCollection{repo: repo}
}

func (c *practiceInputCollection) List(projectID uint) ([]InterviewField, error) {
	inputs, err := c.repo.GetByProject(projectID)
	if err != nil {
		return nil, err
	}
	fields := make([]InterviewField, 0, len(inputs))
	for _, in := range inputs {
		fields = append(fields, fieldFromParts(in.ID, in.FieldKey, in.InputFields))
	}
	return fields, nil
}

func (c *practiceInputCollection) ExistingKeys(projectID uint) (map[string]bool, error) {
	return c.repo.ExistingKeys(projectID)
}

func (c *practiceInputCollection) CreateBatch(projectID uint, fields []InterviewField) error {
	inputs := make([]model.PracticeInput, 0, len(fields))
	for _, f := range fields {
		inputs = append(inputs, model.PracticeInput{
			ProjectID:   projectID,
			FieldKey:    f.FieldKey,
			InputFields: fieldToParts(f),
		})
	}
	return c.repo.CreateBatch(inputs)
}

func (c *practiceInputCollection) Get(id uint) (*InterviewField, error) {
	in, err := c.repo.Get(id)
	if err != nil {
		return nil, err
	}
	field := fieldFromParts(in.ID, in.FieldKey, in.InputFields)
	return &field, nil
}

func (c *practiceInputCollection) SetAnswer(id uint, value string) error {
	in, err := c.repo.Get(id)
	if err != nil {
		return err
	}
	in.UserValue = value
	in.IsIrrelevant = false
	in.IrrelevantReason = ""
	return c.repo.Save(in)
}

func (c *practiceInputCollection) MarkIrrelevant(id uint, reason string) error {
	in, err := c.repo.Get(id)
	if err != nil {
		return err
	}
	in.IsIrrelevant = true
	in.IrrelevantReason = reason
	in.UserValue = ""
	return c.repo.Save(in)
}

// -----------------------------
// 模型转换
// -----------------------------
func fieldFromParts(id uint, fieldKey string, parts model.InputFields) InterviewField {
	return InterviewField{
		ID:               id,
		FieldKey:         fieldKey,
		Label:            parts.Label,
		ComponentType:    parts.ComponentType,
		DataType:         parts.DataType,
		Options:          parts.Options,
		Tooltip:          parts.Tooltip,
		SuggestedAnswers: parts.SuggestedAnswers,
		DependsOn:        parts.DependsOn,
		SpecifyTriggers:  parts.SpecifyTriggers,
		UserValue:        parts.UserValue,
		IsIrrelevant:     parts.IsIrrelevant,
		IrrelevantReason: parts.IrrelevantReason,
		RoundNumber:      parts.RoundNumber,
		Sequence:         parts.Sequence,
	}
}

func fieldToParts(f InterviewField) model.InputFields {
	return model.InputFields{
		Label:            f.Label,
		ComponentType:    f.ComponentType,
		DataType:         f.DataType,
		Options:          f.Options,
		Tooltip:          f.Tooltip,
		SuggestedAnswers: f.SuggestedAnswers,
		DependsOn:        f.DependsOn,
		SpecifyTriggers:  f.SpecifyTriggers,
		UserValue:        f.UserValue,
		IsIrrelevant:     f.IsIrrelevant,
		IrrelevantReason: f.IrrelevantReason,
		RoundNumber:      f.RoundNumber,
		Sequence:         f.Sequence,
	}
}
