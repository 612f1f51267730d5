package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rfpforge/backend/internal/eventbus"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/aigateway"
	"github.com/rfpforge/backend/internal/service/prompt"
	"github.com/rfpforge/backend/internal/service/statemachine"
	"github.com/rfpforge/backend/internal/utils"
	"k8s.io/klog/v2"
)

// StructureGenerator 结构生成端口（ArchitectService 实现）
type StructureGenerator interface {
	GenerateStructure(ctx context.Context, projectID uint) ([]model.DocumentSection, error)
}

// ContentDispatcher 内容/图片派发端口（ContentService 实现）
type ContentDispatcher interface {
	DispatchContent(ctx context.Context, projectID uint) (int, error)
	DispatchImages(ctx context.Context, projectID uint) (int, error)
}

// ProjectService 项目生命周期管理
// 阶段推进入口按项目加互斥锁，并发推进只有一个生效
type ProjectService struct {
	gateway       AIGateway
	projectRepo   repository.ProjectRepository
	domainRepo    repository.DomainRepository
	kbRepo        repository.KnowledgeBaseRepository
	customFields  repository.CustomFieldRepository
	forms         InputCollection
	practiceForms InputCollection
	stageMachine  *statemachine.ProjectStageMachine
	bus           *eventbus.Bus

	// 后置注入，避免与 Architect/Content 服务构造循环
	architect  StructureGenerator
	dispatcher ContentDispatcher

	locks     map[uint]*sync.Mutex
	locksLock sync.Mutex
}

func NewProjectService(
	gateway AIGateway,
	projectRepo repository.ProjectRepository,
	domainRepo repository.DomainRepository,
	kbRepo repository.KnowledgeBaseRepository,
	customFields repository.CustomFieldRepository,
	forms InputCollection,
	practiceForms InputCollection,
	bus *eventbus.Bus,
) *ProjectService {
	return &ProjectService{
		gateway:       gateway,
		projectRepo:   projectRepo,
		domainRepo:    domainRepo,
		kbRepo:        kbRepo,
		customFields:  customFields,
		forms:         forms,
		practiceForms: practiceForms,
		stageMachine:  statemachine.NewProjectStageMachine(),
		bus:           bus,
		locks:         make(map[uint]*sync.Mutex),
	}
}

func (s *ProjectService) SetArchitect(architect StructureGenerator) {
	s.architect = architect
}

func (s *ProjectService) SetDispatcher(dispatcher ContentDispatcher) {
	s.dispatcher = dispatcher
}

// lockProject 取项目级互斥锁
func (s *ProjectService) lockProject(id uint) func() {
	s.locksLock.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.locksLock.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (s *ProjectService) Create(name, description, language string) (*model.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if language == "" {
		language = "en"
	}
	project := &model.Project{
		Name:         strings.TrimSpace(name),
		Description:  description,
		Language:     language,
		CurrentStage: string(statemachine.StageDraft),
	}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, err
	}
	klog.V(6).Infof("项目已创建: projectID=%d, name=%s", project.ID, project.Name)
	return project, nil
}

func (s *ProjectService) Get(id uint) (*model.Project, error) {
	return s.projectRepo.Get(id)
}

func (s *ProjectService) GetWithDetails(id uint) (*model.Project, error) {
	return s.projectRepo.GetWithDetails(id)
}

func (s *ProjectService) List() ([]model.Project, error) {
	return s.projectRepo.List()
}

func (s *ProjectService) Delete(id uint) error {
	return s.projectRepo.Delete(id)
}

// initPayload 初始化调用的响应结构
type initPayload struct {
	Domain             string `json:"domain"`
	RefinedDescription string `json:"refined_description"`
	DocumentTitle      string `json:"document_title"`
}

// Initialize 项目初始化：领域识别、描述精炼、初始最佳实践、init 阶段固定字段物化
// 允许在 initialized 阶段重入（重入只补物化，不重复迁移阶段）
func (s *ProjectService) Initialize(ctx context.Context, id uint) (*model.Project, error) {
	unlock := s.lockProject(id)
	defer unlock()

	project, err := s.projectRepo.Get(id)
	if err != nil {
		return nil, err
	}

	stage := statemachine.ProjectStage(project.CurrentStage)
	rerun := stage == statemachine.StageInitialized
	if stage != statemachine.StageDraft && !rerun {
		return nil, fmt.Errorf("%w: stage=%s", ErrInvalidStage, project.CurrentStage)
	}

	if !rerun {
		response, err := s.gateway.Execute(ctx, aigateway.Request{
			ProjectID: id,
			Phase:     prompt.PhaseProjectInitializer,
			Vars:      map[string]string{"language": project.Language},
			Context:   fmt.Sprintf("Project name: %s\nRaw description: %s", project.Name, project.Description),
		})
		if err != nil {
			return nil, err
		}

		var payload initPayload
		if response != "" {
			if err := json.Unmarshal([]byte(utils.ExtractJSON(response)), &payload); err != nil {
				klog.Warningf("初始化响应解析失败，保留原始描述: projectID=%d, err=%v", id, err)
			}
		}

		if payload.RefinedDescription != "" {
			project.Description = payload.RefinedDescription
		}
		if payload.DocumentTitle != "" {
			project.DocumentTitle = payload.DocumentTitle
		} else if project.DocumentTitle == "" {
			project.DocumentTitle = project.Name
		}

		if payload.Domain != "" {
			domain, err := s.resolveDomain(payload.Domain)
			if err != nil {
				return nil, err
			}
			project.DomainID = &domain.ID
		}

		if err := s.loadInitialPractices(ctx, project); err != nil {
			return nil, err
		}

		if err := s.projectRepo.Save(project); err != nil {
			return nil, err
		}
	}

	// init 阶段固定字段物化（幂等，已存在的 field_key 跳过）
	if err := s.materializeCustomFields(id, "init", s.forms); err != nil {
		return nil, err
	}

	if !rerun {
		if err := s.transitionStage(ctx, project, statemachine.StageInitialized); err != nil {
			return nil, err
		}
	}
	return project, nil
}

// resolveDomain 忽略大小写匹配已有领域，未命中时创建
func (s *ProjectService) resolveDomain(name string) (*model.Domain, error) {
	domain, err := s.domainRepo.GetByName(name)
	if err == nil {
		return domain, nil
	}
	if err != repository.ErrNotFound {
		return nil, err
	}

	domain = &model.Domain{Name: strings.TrimSpace(name)}
	if err := s.domainRepo.Create(domain); err != nil {
		return nil, err
	}
	klog.V(6).Infof("新领域已创建: domainID=%d, name=%s", domain.ID, domain.Name)
	return domain, nil
}

// loadInitialPractices 初始最佳实践：优先领域知识库，缺失时 AI 研究
func (s *ProjectService) loadInitialPractices(ctx context.Context, project *model.Project) error {
	if project.DomainID != nil {
		kb, err := s.kbRepo.GetReadyByDomain(*project.DomainID)
		if err == nil && kb.ExtractedPractices != "" {
			klog.V(6).Infof("命中领域知识库: projectID=%d, kbID=%d", project.ID, kb.ID)
			project.InitialPractices = kb.ExtractedPractices
			return nil
		}
		if err != nil && err != repository.ErrNotFound {
			return err
		}
	}

	domainName := "general procurement"
	if project.Domain != nil {
		domainName = project.Domain.Name
	} else if project.DomainID != nil {
		if domain, err := s.domainRepo.Get(*project.DomainID); err == nil {
			domainName = domain.Name
		}
	}

	response, err := s.gateway.Execute(ctx, aigateway.Request{
		ProjectID: project.ID,
		Phase:     prompt.PhaseResearchInitial,
		Vars: map[string]string{
			"domain":   domainName,
			"language": project.Language,
		},
		Context: project.Description,
	})
	if err != nil {
		return err
	}
	project.InitialPractices = response
	return nil
}

// materializeCustomFields 将某阶段的固定字段模板物化为访谈字段（幂等）
func (s *ProjectService) materializeCustomFields(projectID uint, phase string, collection InputCollection) error {
	templates, err := s.customFields.GetActiveByPhase(phase)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return nil
	}

	existing, err := collection.ExistingKeys(projectID)
	if err != nil {
		return err
	}

	var fields []InterviewField
	seen := make(map[string]bool)
	for _, t := range templates {
		if existing[t.Code] || seen[t.Code] {
			continue
		}
		seen[t.Code] = true
		fields = append(fields, InterviewField{
			FieldKey:      t.Code,
			Label:         t.Label,
			ComponentType: t.InputType,
			Options:       t.Options,
			Tooltip:       t.HelpText,
			UserValue:     t.DefaultValue,
			RoundNumber:   0, // 固定字段不占访谈轮
			Sequence:      t.Sequence,
		})
	}
	if len(fields) == 0 {
		return nil
	}
	klog.V(6).Infof("物化固定字段: projectID=%d, phase=%s, count=%d", projectID, phase, len(fields))
	return collection.CreateBatch(projectID, fields)
}

// RefineResearch 按项目访谈结果精炼最佳实践（info_gathered -> practices_refined）
func (s *ProjectService) RefineResearch(ctx context.Context, id uint) error {
	unlock := s.lockProject(id)
	defer unlock()

	project, err := s.projectRepo.GetWithDetails(id)
	if err != nil {
		return err
	}
	if statemachine.ProjectStage(project.CurrentStage) != statemachine.StageInfoGathered {
		return fmt.Errorf("%w: stage=%s", ErrInvalidStage, project.CurrentStage)
	}

	var b strings.Builder
	b.WriteString("## Generic best practices\n")
	b.WriteString(project.InitialPractices + "\n")
	b.WriteString("\n## Interview answers\n")
	for _, in := range project.FormInputs {
		if in.UserValue != "" {
			b.WriteString("- " + in.Label + ": " + in.UserValue + "\n")
		}
	}

	response, err := s.gateway.Execute(ctx, aigateway.Request{
		ProjectID: id,
		Phase:     prompt.PhaseResearchRefinement,
		Vars:      map[string]string{"language": project.Language},
		Context:   b.String(),
	})
	if err != nil {
		return err
	}
	if response == "" {
		// 降级：精炼失败时沿用初始研究
		klog.Warningf("精炼研究返回空，沿用初始最佳实践: projectID=%d", id)
		response = project.InitialPractices
	}

	project.RefinedPractices = response
	if err := s.projectRepo.Save(project); err != nil {
		return err
	}
	return s.transitionStage(ctx, project, statemachine.StagePracticesRefined)
}

// MaterializePostGatheringFields 物化 post_gathering 固定字段并进入实践访谈阶段
// 未配置模板时直接推进（auto-skip）
func (s *ProjectService) MaterializePostGatheringFields(ctx context.Context, id uint) error {
	unlock := s.lockProject(id)
	defer unlock()

	project, err := s.projectRepo.Get(id)
	if err != nil {
		return err
	}
	if statemachine.ProjectStage(project.CurrentStage) != statemachine.StagePracticesRefined {
		return fmt.Errorf("%w: stage=%s", ErrInvalidStage, project.CurrentStage)
	}

	if err := s.materializeCustomFields(id, "post_gathering", s.practiceForms); err != nil {
		return err
	}
	return s.transitionStage(ctx, project, statemachine.StageSpecificationsGathered)
}

// ProceedToNextAutomaticStage 推进当前阶段的非交互迁移
// 访谈阶段（initialized/specifications_gathered）需要用户作答，不在此推进
func (s *ProjectService) ProceedToNextAutomaticStage(ctx context.Context, id uint) error {
	project, err := s.projectRepo.Get(id)
	if err != nil {
		return err
	}

	switch statemachine.ProjectStage(project.CurrentStage) {
	case statemachine.StageDraft:
		_, err = s.Initialize(ctx, id)
		return err
	case statemachine.StageInfoGathered:
		return s.RefineResearch(ctx, id)
	case statemachine.StagePracticesRefined:
		return s.MaterializePostGatheringFields(ctx, id)
	case statemachine.StagePracticesGapGathered:
		if s.architect == nil {
			return fmt.Errorf("structure generator not wired")
		}
		_, err = s.architect.GenerateStructure(ctx, id)
		return err
	case statemachine.StageSectionsGenerated:
		if s.dispatcher == nil {
			return fmt.Errorf("content dispatcher not wired")
		}
		_, err = s.dispatcher.DispatchContent(ctx, id)
		return err
	case statemachine.StageContentGenerated:
		if s.dispatcher == nil {
			return fmt.Errorf("content dispatcher not wired")
		}
		_, err = s.dispatcher.DispatchImages(ctx, id)
		return err
	default:
		return fmt.Errorf("%w: stage=%s", ErrNoAutomaticTransition, project.CurrentStage)
	}
}

// Lock 锁定文档（images_generated -> document_locked）
func (s *ProjectService) Lock(ctx context.Context, id uint) error {
	return s.simpleTransition(ctx, id, statemachine.StageDocumentLocked)
}

// Unlock 解锁文档（document_locked -> images_generated）
func (s *ProjectService) Unlock(ctx context.Context, id uint) error {
	return s.simpleTransition(ctx, id, statemachine.StageImagesGenerated)
}

// MarkCompleted 标记终态
func (s *ProjectService) MarkCompleted(ctx context.Context, id uint) error {
	return s.simpleTransition(ctx, id, statemachine.StageCompleted)
}

// RevertToEditable 从 completed_with_errors 回退到可编辑阶段
func (s *ProjectService) RevertToEditable(ctx context.Context, id uint) error {
	return s.simpleTransition(ctx, id, statemachine.StageImagesGenerated)
}

func (s *ProjectService) simpleTransition(ctx context.Context, id uint, to statemachine.ProjectStage) error {
	unlock := s.lockProject(id)
	defer unlock()

	project, err := s.projectRepo.Get(id)
	if err != nil {
		return err
	}
	return s.transitionStage(ctx, project, to)
}

// transitionStage 校验并执行阶段迁移，广播事件
func (s *ProjectService) transitionStage(ctx context.Context, project *model.Project, to statemachine.ProjectStage) error {
	from := statemachine.ProjectStage(project.CurrentStage)
	if err := s.stageMachine.Transition(from, to, project.ID); err != nil {
		return err
	}
	if err := s.projectRepo.UpdateStage(project.ID, string(to)); err != nil {
		return err
	}
	project.CurrentStage = string(to)
	if s.bus != nil {
		_ = s.bus.Publish(ctx, eventbus.PipelineEvent{
			Type:      eventbus.EventStageChanged,
			ProjectID: project.ID,
			FromStage: string(from),
			ToStage:   string(to),
		})
	}
	return nil
}
