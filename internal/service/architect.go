package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rfpforge/backend/internal/eventbus"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/aigateway"
	"github.com/rfpforge/backend/internal/service/prompt"
	"github.com/rfpforge/backend/internal/service/statemachine"
	"github.com/rfpforge/backend/internal/utils"
	"k8s.io/klog/v2"
)

// ArchitectService 文档结构生成器
// 结构生成是全量替换：旧章节（含图示）清空后按新目录重建
type ArchitectService struct {
	gateway      AIGateway
	projectRepo  repository.ProjectRepository
	sectionRepo  repository.SectionRepository
	stageMachine *statemachine.ProjectStageMachine
	bus          *eventbus.Bus
}

func NewArchitectService(
	gateway AIGateway,
	projectRepo repository.ProjectRepository,
	sectionRepo repository.SectionRepository,
	bus *eventbus.Bus,
) *ArchitectService {
	return &ArchitectService{
		gateway:      gateway,
		projectRepo:  projectRepo,
		sectionRepo:  sectionRepo,
		stageMachine: statemachine.NewProjectStageMachine(),
		bus:          bus,
	}
}

// tocPayload 目录生成响应
type tocPayload struct {
	DocumentTitle string       `json:"document_title"`
	Sections      []tocSection `json:"sections"`
}

type tocSection struct {
	Title             string       `json:"title"`
	DescriptionIntent string       `json:"description_intent"`
	Subsections       []tocSection `json:"subsections"`
}

// GenerateStructure 生成文档目录并重建章节
// AI 失败或响应不可解析时落到单章节 "Executive Summary" 的兜底目录
func (s *ArchitectService) GenerateStructure(ctx context.Context, projectID uint) ([]model.DocumentSection, error) {
	project, err := s.projectRepo.GetWithDetails(projectID)
	if err != nil {
		return nil, err
	}

	stage := statemachine.ProjectStage(project.CurrentStage)
	regenerate := stage == statemachine.StageSectionsGenerated
	if stage != statemachine.StagePracticesGapGathered && !regenerate {
		return nil, fmt.Errorf("%w: stage=%s", ErrInvalidStage, project.CurrentStage)
	}

	payload := s.requestTOC(ctx, project)

	// 全量替换旧章节
	if err := s.sectionRepo.DeleteByProject(projectID); err != nil {
		return nil, err
	}

	sections := flattenTOC(projectID, payload.Sections)
	if err := s.sectionRepo.CreateBatch(sections); err != nil {
		return nil, err
	}

	if payload.DocumentTitle != "" {
		project.DocumentTitle = payload.DocumentTitle
	}
	project.TOCJson = utils.ToJSON(payload)
	if err := s.projectRepo.Save(project); err != nil {
		return nil, err
	}

	if !regenerate {
		if err := s.transitionStage(ctx, project, statemachine.StageSectionsGenerated); err != nil {
			return nil, err
		}
	}

	klog.V(6).Infof("文档结构已生成: projectID=%d, sections=%d", projectID, len(sections))
	return sections, nil
}

// requestTOC 调用 AI 生成目录，任何失败都退回兜底目录
func (s *ArchitectService) requestTOC(ctx context.Context, project *model.Project) tocPayload {
	fallback := tocPayload{
		DocumentTitle: project.DocumentTitle,
		Sections:      []tocSection{{Title: "Executive Summary"}},
	}

	response, err := s.gateway.Execute(ctx, aigateway.Request{
		ProjectID: project.ID,
		Phase:     prompt.PhaseArchitect,
		Vars:      map[string]string{"language": project.Language},
		Context:   s.buildArchitectContext(project),
	})
	if err != nil {
		klog.Warningf("目录生成调用失败，使用兜底目录: projectID=%d, err=%v", project.ID, err)
		return fallback
	}
	if response == "" {
		klog.Warningf("目录生成返回空，使用兜底目录: projectID=%d", project.ID)
		return fallback
	}

	var payload tocPayload
	if err := json.Unmarshal([]byte(utils.ExtractJSON(response)), &payload); err != nil || len(payload.Sections) == 0 {
		klog.Warningf("目录解析失败，使用兜底目录: projectID=%d, err=%v", project.ID, err)
		return fallback
	}
	return payload
}

func (s *ArchitectService) buildArchitectContext(project *model.Project) string {
	var b strings.Builder
	b.WriteString("## Project\n")
	b.WriteString("Name: " + project.Name + "\n")
	b.WriteString("Description: " + project.Description + "\n")

	if project.RefinedPractices != "" {
		b.WriteString("\n## Refined best practices\n")
		b.WriteString(project.RefinedPractices + "\n")
	}

	writeAnswers := func(title string, labels, values []string) {
		if len(labels) == 0 {
			return
		}
		b.WriteString("\n## " + title + "\n")
		for i := range labels {
			b.WriteString("- " + labels[i] + ": " + values[i] + "\n")
		}
	}

	var fLabels, fValues []string
	for _, in := range project.FormInputs {
		if in.UserValue != "" {
			fLabels = append(fLabels, in.Label)
			fValues = append(fValues, in.UserValue)
		}
	}
	writeAnswers("Project interview answers", fLabels, fValues)

	var pLabels, pValues []string
	for _, in := range project.PracticeInputs {
		if in.UserValue != "" {
			pLabels = append(pLabels, in.Label)
			pValues = append(pValues, in.UserValue)
		}
	}
	writeAnswers("Best-practice interview answers", pLabels, pValues)

	return b.String()
}

// flattenTOC 将两级目录拍平为章节列表，序号从 10 起每章 +10，写作意图随章节落库
func flattenTOC(projectID uint, toc []tocSection) []model.DocumentSection {
	var sections []model.DocumentSection
	seq := 10
	appendSection := func(title, intent string) {
		title = strings.TrimSpace(title)
		if title == "" {
			return
		}
		sections = append(sections, model.DocumentSection{
			ProjectID:         projectID,
			Title:             title,
			DescriptionIntent: strings.TrimSpace(intent),
			Sequence:          seq,
			GenerationStatus:  string(statemachine.GenerationPending),
		})
		seq += 10
	}

	for _, top := range toc {
		appendSection(top.Title, top.DescriptionIntent)
		for _, sub := range top.Subsections {
			appendSection(sub.Title, sub.DescriptionIntent)
		}
	}
	return sections
}

func (s *ArchitectService) transitionStage(ctx context.Context, project *model.Project, to statemachine.ProjectStage) error {
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
