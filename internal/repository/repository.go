package repository

import (
	"errors"
	"time"

	"github.com/rfpforge/backend/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

type ProjectRepository interface {
	Create(project *model.Project) error
	List() ([]model.Project, error)
	Get(id uint) (*model.Project, error)
	GetWithDetails(id uint) (*model.Project, error)
	Save(project *model.Project) error
	UpdateStage(id uint, stage string) error
	Delete(id uint) error
}

type FormInputRepository interface {
	Create(input *model.FormInput) error
	CreateBatch(inputs []model.FormInput) error
	GetByProject(projectID uint) ([]model.FormInput, error)
	Get(id uint) (*model.FormInput, error)
	Save(input *model.FormInput) error
	ExistingKeys(projectID uint) (map[string]bool, error)
	DeleteByProject(projectID uint) error
}

type PracticeInputRepository interface {
	Create(input *model.PracticeInput) error
	CreateBatch(inputs []model.PracticeInput) error
	GetByProject(projectID uint) ([]model.PracticeInput, error)
	Get(id uint) (*model.PracticeInput, error)
	Save(input *model.PracticeInput) error
	ExistingKeys(projectID uint) (map[string]bool, error)
	DeleteByProject(projectID uint) error
}

type SectionRepository interface {
	Create(section *model.DocumentSection) error
	CreateBatch(sections []model.DocumentSection) error
	GetByProject(projectID uint) ([]model.DocumentSection, error)
	Get(id uint) (*model.DocumentSection, error)
	GetWithDiagrams(id uint) (*model.DocumentSection, error)
	Save(section *model.DocumentSection) error
	Delete(id uint) error
	DeleteByProject(projectID uint) error
	CleanupStuckSections(timeout time.Duration) (int64, error)
}

type DiagramRepository interface {
	Create(diagram *model.SectionDiagram) error
	GetBySection(sectionID uint) ([]model.SectionDiagram, error)
	GetByProject(projectID uint) ([]model.SectionDiagram, error)
	Get(id uint) (*model.SectionDiagram, error)
	Save(diagram *model.SectionDiagram) error
	DeleteBySection(sectionID uint) error
}

type AILogRepository interface {
	Create(log *model.AIRequestLog) error
	Get(id uint) (*model.AIRequestLog, error)
	GetByRequestID(requestID string) (*model.AIRequestLog, error)
	Save(log *model.AIRequestLog) error
	GetByProject(projectID uint) ([]model.AIRequestLog, error)
}

type CustomFieldRepository interface {
	Create(field *model.CustomField) error
	GetActiveByPhase(phase string) ([]model.CustomField, error)
	List() ([]model.CustomField, error)
	Save(field *model.CustomField) error
	Delete(id uint) error
}

type DomainRepository interface {
	Create(domain *model.Domain) error
	List() ([]model.Domain, error)
	Get(id uint) (*model.Domain, error)
	GetByName(name string) (*model.Domain, error)
	Save(domain *model.Domain) error
}

type KnowledgeBaseRepository interface {
	Create(kb *model.KnowledgeBase) error
	GetReadyByDomain(domainID uint) (*model.KnowledgeBase, error)
	List() ([]model.KnowledgeBase, error)
	Save(kb *model.KnowledgeBase) error
}

type PublishedRepository interface {
	Create(published *model.PublishedRFP) error
	GetByToken(token string) (*model.PublishedRFP, error)
	GetByProject(projectID uint) ([]model.PublishedRFP, error)
}
