package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rfpforge/backend/internal/eventbus"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/pkg/llm"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/aigateway"
	"github.com/rfpforge/backend/internal/service/orchestrator"
	"github.com/rfpforge/backend/internal/service/prompt"
	"github.com/rfpforge/backend/internal/service/statemachine"
	"github.com/rfpforge/backend/internal/utils"
	"k8s.io/klog/v2"
)

// JobEnqueuer 任务入队端口（Orchestrator 实现）
type JobEnqueuer interface {
	EnqueueJob(job *orchestrator.Job) error
}

// ContentService 章节内容与图示图片的派发器 + 执行器
// 派发：为每个待生成单元登记 UUID 句柄并入队；执行：ExecuteUnit 被协程池回调
type ContentService struct {
	gateway      AIGateway
	projectRepo  repository.ProjectRepository
	sectionRepo  repository.SectionRepository
	diagramRepo  repository.DiagramRepository
	imageGen     llm.ImageGenerator
	enqueuer     JobEnqueuer
	stageMachine *statemachine.ProjectStageMachine
	bus          *eventbus.Bus
	maxRetries   int
}

func NewContentService(
	gateway AIGateway,
	projectRepo repository.ProjectRepository,
	sectionRepo repository.SectionRepository,
	diagramRepo repository.DiagramRepository,
	imageGen llm.ImageGenerator,
	bus *eventbus.Bus,
	maxRetries int,
) *ContentService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ContentService{
		gateway:      gateway,
		projectRepo:  projectRepo,
		sectionRepo:  sectionRepo,
		diagramRepo:  diagramRepo,
		imageGen:     imageGen,
		stageMachine: statemachine.NewProjectStageMachine(),
		bus:          bus,
		maxRetries:   maxRetries,
	}
}

// SetEnqueuer 后置注入编排器，避免构造循环（编排器需要本服务作为执行器）
func (s *ContentService) SetEnqueuer(enqueuer JobEnqueuer) {
	s.enqueuer = enqueuer
}

// DispatchContent 为每个空章节派发一个内容生成任务
// 已有内容的章节跳过并直接记成功；阶段进入 generating_content
func (s *ContentService) DispatchContent(ctx context.Context, projectID uint) (int, error) {
	if s.enqueuer == nil {
		return 0, fmt.Errorf("job enqueuer not wired")
	}

	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return 0, err
	}
	if err := s.stageMachine.ValidateTransition(
		statemachine.ProjectStage(project.CurrentStage), statemachine.StageGeneratingContent); err != nil {
		return 0, err
	}

	sections, err := s.sectionRepo.GetByProject(projectID)
	if err != nil {
		return 0, err
	}
	if len(sections) == 0 {
		return 0, fmt.Errorf("project %d has no sections to generate", projectID)
	}

	queued := 0
	for i := range sections {
		section := &sections[i]

		// 人工填写过的章节不重复生成
		if strings.TrimSpace(section.ContentHTML) != "" &&
			section.GenerationStatus != string(statemachine.GenerationFailed) {
			if section.GenerationStatus != string(statemachine.GenerationSuccess) {
				section.GenerationStatus = string(statemachine.GenerationSuccess)
				if err := s.sectionRepo.Save(section); err != nil {
					return queued, err
				}
			}
			continue
		}

		handle := uuid.NewString()
		section.JobID = handle
		section.GenerationStatus = string(statemachine.GenerationQueued)
		section.ErrorMsg = ""
		if err := s.sectionRepo.Save(section); err != nil {
			return queued, err
		}

		if err := s.enqueuer.EnqueueJob(orchestrator.NewUnitJob(handle, orchestrator.UnitSection, section.ID, s.maxRetries)); err != nil {
			section.GenerationStatus = string(statemachine.GenerationFailed)
			section.ErrorMsg = "enqueue failed: " + err.Error()
			_ = s.sectionRepo.Save(section)
			klog.Errorf("章节任务入队失败: sectionID=%d, err=%v", section.ID, err)
			continue
		}
		queued++
	}

	if err := s.transitionStage(ctx, project, statemachine.StageGeneratingContent); err != nil {
		return queued, err
	}
	klog.V(6).Infof("章节内容派发完成: projectID=%d, queued=%d/%d", projectID, queued, len(sections))
	return queued, nil
}

// DispatchImages 为每个待生成图示派发图片任务；阶段进入 generating_images
// 项目没有任何图示时也进入 generating_images，由状态聚合立即判定完成
func (s *ContentService) DispatchImages(ctx context.Context, projectID uint) (int, error) {
	if s.enqueuer == nil {
		return 0, fmt.Errorf("job enqueuer not wired")
	}

	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return 0, err
	}
	if err := s.stageMachine.ValidateTransition(
		statemachine.ProjectStage(project.CurrentStage), statemachine.StageGeneratingImages); err != nil {
		return 0, err
	}

	diagrams, err := s.diagramRepo.GetByProject(projectID)
	if err != nil {
		return 0, err
	}

	queued := 0
	for i := range diagrams {
		diagram := &diagrams[i]

		if len(diagram.Image) > 0 {
			if diagram.GenerationStatus != string(statemachine.GenerationSuccess) {
				diagram.GenerationStatus = string(statemachine.GenerationSuccess)
				if err := s.diagramRepo.Save(diagram); err != nil {
					return queued, err
				}
			}
			continue
		}

		handle := uuid.NewString()
		diagram.JobID = handle
		diagram.GenerationStatus = string(statemachine.GenerationQueued)
		diagram.ErrorMsg = ""
		if err := s.diagramRepo.Save(diagram); err != nil {
			return queued, err
		}

		if err := s.enqueuer.EnqueueJob(orchestrator.NewUnitJob(handle, orchestrator.UnitDiagram, diagram.ID, s.maxRetries)); err != nil {
			diagram.GenerationStatus = string(statemachine.GenerationFailed)
			diagram.ErrorMsg = "enqueue failed: " + err.Error()
			_ = s.diagramRepo.Save(diagram)
			klog.Errorf("图示任务入队失败: diagramID=%d, err=%v", diagram.ID, err)
			continue
		}
		queued++
	}

	if err := s.transitionStage(ctx, project, statemachine.StageGeneratingImages); err != nil {
		return queued, err
	}
	klog.V(6).Infof("图示图片派发完成: projectID=%d, queued=%d/%d", projectID, queued, len(diagrams))
	return queued, nil
}

// ExecuteUnit 协程池回调入口，实现 orchestrator.UnitExecutor
func (s *ContentService) ExecuteUnit(ctx context.Context, kind orchestrator.UnitKind, unitID uint) error {
	switch kind {
	case orchestrator.UnitSection:
		return s.generateSectionContent(ctx, unitID)
	case orchestrator.UnitDiagram:
		return s.generateDiagramImage(ctx, unitID)
	default:
		return fmt.Errorf("unknown unit kind: %s", kind)
	}
}

// sectionPayload 章节内容响应
type sectionPayload struct {
	ContentHTML string           `json:"content_html"`
	Diagrams    []diagramPayload `json:"diagrams"`
}

type diagramPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// generateSectionContent 单章节内容生成
// 解析失败时把原始响应整体作为 content_html 落库（降级而非丢弃）；失败会重新抛出给编排器重试
func (s *ContentService) generateSectionContent(ctx context.Context, sectionID uint) error {
	section, err := s.sectionRepo.Get(sectionID)
	if err != nil {
		return err
	}
	project, err := s.projectRepo.GetWithDetails(section.ProjectID)
	if err != nil {
		return err
	}

	now := time.Now()
	section.GenerationStatus = string(statemachine.GenerationGenerating)
	section.StartedAt = &now
	if err := s.sectionRepo.Save(section); err != nil {
		return err
	}

	response, err := s.gateway.Execute(ctx, aigateway.Request{
		ProjectID: project.ID,
		Phase:     prompt.PhaseSectionWriter,
		Vars: map[string]string{
			"section_title": section.Title,
			"language":      project.Language,
		},
		Context: s.buildWriterContext(project, section),
	})
	if err != nil {
		s.failSection(section, err)
		return err
	}
	if response == "" {
		err := fmt.Errorf("empty response for section %d", sectionID)
		s.failSection(section, err)
		return err
	}

	var payload sectionPayload
	if jsonErr := json.Unmarshal([]byte(utils.ExtractJSON(response)), &payload); jsonErr != nil || payload.ContentHTML == "" {
		// 原文降级
		klog.Warningf("章节响应解析失败，按原文落库: sectionID=%d, err=%v", sectionID, jsonErr)
		payload = sectionPayload{ContentHTML: response}
	}

	// 图示占位全量重建
	if err := s.diagramRepo.DeleteBySection(sectionID); err != nil {
		s.failSection(section, err)
		return err
	}
	for _, d := range payload.Diagrams {
		if strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Description) == "" {
			continue
		}
		diagram := &model.SectionDiagram{
			SectionID:        sectionID,
			Title:            d.Title,
			Description:      d.Description,
			GenerationStatus: string(statemachine.GenerationPending),
		}
		if err := s.diagramRepo.Create(diagram); err != nil {
			s.failSection(section, err)
			return err
		}
	}

	done := time.Now()
	section.ContentHTML = payload.ContentHTML
	section.GenerationStatus = string(statemachine.GenerationSuccess)
	section.ErrorMsg = ""
	section.CompletedAt = &done
	if err := s.sectionRepo.Save(section); err != nil {
		return err
	}

	klog.V(6).Infof("章节内容生成成功: sectionID=%d, diagrams=%d", sectionID, len(payload.Diagrams))
	return nil
}

func (s *ContentService) failSection(section *model.DocumentSection, cause error) {
	section.GenerationStatus = string(statemachine.GenerationFailed)
	section.ErrorMsg = cause.Error()
	if err := s.sectionRepo.Save(section); err != nil {
		klog.Errorf("章节失败状态落库失败: sectionID=%d, err=%v", section.ID, err)
	}
}

// generateDiagramImage 单图示图片生成
func (s *ContentService) generateDiagramImage(ctx context.Context, diagramID uint) error {
	if s.imageGen == nil {
		return fmt.Errorf("image generator not configured")
	}

	diagram, err := s.diagramRepo.Get(diagramID)
	if err != nil {
		return err
	}

	diagram.GenerationStatus = string(statemachine.GenerationGenerating)
	if err := s.diagramRepo.Save(diagram); err != nil {
		return err
	}

	imagePrompt := diagram.Title
	if diagram.Description != "" {
		imagePrompt += ": " + diagram.Description
	}

	image, err := s.imageGen.GenerateImage(ctx, imagePrompt)
	if err != nil {
		diagram.GenerationStatus = string(statemachine.GenerationFailed)
		diagram.ErrorMsg = err.Error()
		if saveErr := s.diagramRepo.Save(diagram); saveErr != nil {
			klog.Errorf("图示失败状态落库失败: diagramID=%d, err=%v", diagramID, saveErr)
		}
		return err
	}

	diagram.Image = image
	diagram.GenerationStatus = string(statemachine.GenerationSuccess)
	diagram.ErrorMsg = ""
	if err := s.diagramRepo.Save(diagram); err != nil {
		return err
	}

	klog.V(6).Infof("图示图片生成成功: diagramID=%d, bytes=%d", diagramID, len(image))
	return nil
}

// buildWriterContext 组装章节写作上下文：当前章节的标题与写作意图、项目概况、目录、访谈答案、精炼实践
func (s *ContentService) buildWriterContext(project *model.Project, section *model.DocumentSection) string {
	var b strings.Builder
	b.WriteString("## Section to write\n")
	b.WriteString("Title: " + section.Title + "\n")
	if section.DescriptionIntent != "" {
		b.WriteString("Intent: " + section.DescriptionIntent + "\n")
	}

	b.WriteString("\n## Document\n")
	b.WriteString("Title: " + project.DocumentTitle + "\n")
	b.WriteString("Project: " + project.Name + "\n")
	b.WriteString("Description: " + project.Description + "\n")

	if len(project.Sections) > 0 {
		b.WriteString("\n## Table of contents\n")
		for _, sec := range project.Sections {
			marker := "- "
			if sec.ID == section.ID {
				marker = "- [current section] "
			}
			b.WriteString(marker + sec.Title + "\n")
		}
	}

	if project.RefinedPractices != "" {
		b.WriteString("\n## Refined best practices\n")
		b.WriteString(project.RefinedPractices + "\n")
	}

	var answers []string
	for _, in := range project.FormInputs {
		if in.UserValue != "" {
			answers = append(answers, in.Label+": "+in.UserValue)
		}
	}
	for _, in := range project.PracticeInputs {
		if in.UserValue != "" {
			answers = append(answers, in.Label+": "+in.UserValue)
		}
	}
	if len(answers) > 0 {
		b.WriteString("\n## Requirements gathered from the user\n")
		for _, a := range answers {
			b.WriteString("- " + a + "\n")
		}
	}

	return b.String()
}

// CleanupStuckUnits 启动兜底：把长时间停留在 queued/generating 的章节标记失败
func (s *ContentService) CleanupStuckUnits(timeout time.Duration) (int64, error) {
	return s.sectionRepo.CleanupStuckSections(timeout)
}

func (s *ContentService) transitionStage(ctx context.Context, project *model.Project, to statemachine.ProjectStage) error {
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
