package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/statemachine"
	"k8s.io/klog/v2"
)

// PublishService 文档发布
// 发布生成只读快照，后续编辑不影响已发布内容
type PublishService struct {
	projectRepo   repository.ProjectRepository
	sectionRepo   repository.SectionRepository
	diagramRepo   repository.DiagramRepository
	publishedRepo repository.PublishedRepository
}

func NewPublishService(
	projectRepo repository.ProjectRepository,
	sectionRepo repository.SectionRepository,
	diagramRepo repository.DiagramRepository,
	publishedRepo repository.PublishedRepository,
) *PublishService {
	return &PublishService{
		projectRepo:   projectRepo,
		sectionRepo:   sectionRepo,
		diagramRepo:   diagramRepo,
		publishedRepo: publishedRepo,
	}
}

// Publish 发布项目文档快照，仅 document_locked / completed 阶段允许
func (s *PublishService) Publish(projectID uint) (*model.PublishedRFP, error) {
	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return nil, err
	}

	stage := statemachine.ProjectStage(project.CurrentStage)
	if stage != statemachine.StageDocumentLocked && stage != statemachine.StageCompleted {
		return nil, fmt.Errorf("%w: stage=%s", ErrInvalidStage, project.CurrentStage)
	}

	sections, err := s.sectionRepo.GetByProject(projectID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("project %d has no sections to publish", projectID)
	}

	title := project.DocumentTitle
	if title == "" {
		title = project.Name
	}
	published := &model.PublishedRFP{
		ProjectID:   projectID,
		Token:       uuid.NewString(),
		Title:       title,
		Description: project.Description,
		PublishedAt: time.Now(),
	}

	for _, sec := range sections {
		snapshot := model.PublishedSection{
			Title:       sec.Title,
			ContentHTML: sec.ContentHTML,
			Sequence:    sec.Sequence,
		}
		diagrams, err := s.diagramRepo.GetBySection(sec.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range diagrams {
			// 没有成图的占位图示不进快照
			if len(d.Image) == 0 {
				continue
			}
			snapshot.Diagrams = append(snapshot.Diagrams, model.PublishedDiagram{
				Title: d.Title,
				Image: d.Image,
			})
		}
		published.Sections = append(published.Sections, snapshot)
	}

	if err := s.publishedRepo.Create(published); err != nil {
		return nil, err
	}

	klog.V(6).Infof("文档已发布: projectID=%d, token=%s, sections=%d", projectID, published.Token, len(published.Sections))
	return published, nil
}

// GetByToken 按发布令牌取快照，供匿名只读访问
func (s *PublishService) GetByToken(token string) (*model.PublishedRFP, error) {
	return s.publishedRepo.GetByToken(token)
}

// ListByProject 项目的历史发布记录
func (s *PublishService) ListByProject(projectID uint) ([]model.PublishedRFP, error) {
	return s.publishedRepo.GetByProject(projectID)
}
