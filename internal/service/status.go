package service

import (
	"context"

	"github.com/rfpforge/backend/internal/eventbus"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/statemachine"
	"k8s.io/klog/v2"
)

// StatusService 生成状态查询
// 查询带副作用：发现某阶段的生成单元全部到达终态时推进项目阶段并广播事件
type StatusService struct {
	projectRepo  repository.ProjectRepository
	sectionRepo  repository.SectionRepository
	diagramRepo  repository.DiagramRepository
	stageMachine *statemachine.ProjectStageMachine
	bus          *eventbus.Bus
}

func NewStatusService(
	projectRepo repository.ProjectRepository,
	sectionRepo repository.SectionRepository,
	diagramRepo repository.DiagramRepository,
	bus *eventbus.Bus,
) *StatusService {
	return &StatusService{
		projectRepo:  projectRepo,
		sectionRepo:  sectionRepo,
		diagramRepo:  diagramRepo,
		stageMachine: statemachine.NewProjectStageMachine(),
		bus:          bus,
	}
}

// UnitStatus 单个生成单元的状态摘要
type UnitStatus struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// StatusReport 生成状态报告
type StatusReport struct {
	ProjectID uint   `json:"project_id"`
	Stage     string `json:"stage"`
	Phase     string `json:"phase"`  // content, images, idle
	Status    string `json:"status"` // completed, completed_with_errors, generating, idle
	Progress  int    `json:"progress"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`

	Units []UnitStatus `json:"units,omitempty"`
}

// Status 查询生成进度并按聚合结果推进阶段
// generating_content 全部完成 -> content_generated（订阅方随即派发图片）
// generating_images 全部完成 -> images_generated；任一阶段有失败 -> completed_with_errors
func (s *StatusService) Status(ctx context.Context, projectID uint) (*StatusReport, error) {
	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		ProjectID: projectID,
		Stage:     project.CurrentStage,
		Phase:     "idle",
		Status:    "idle",
		Progress:  100,
	}

	switch statemachine.ProjectStage(project.CurrentStage) {
	case statemachine.StageGeneratingContent:
		sections, err := s.sectionRepo.GetByProject(projectID)
		if err != nil {
			return nil, err
		}
		statuses := make([]statemachine.GenerationStatus, 0, len(sections))
		for _, sec := range sections {
			statuses = append(statuses, statemachine.GenerationStatus(sec.GenerationStatus))
			report.Units = append(report.Units, UnitStatus{
				ID: sec.ID, Title: sec.Title, Status: sec.GenerationStatus, ErrorMsg: sec.ErrorMsg,
			})
		}
		s.fillReport(report, "content", statemachine.Aggregate(statuses))
		if err := s.advanceOnAggregate(ctx, project, report,
			statemachine.StageContentGenerated, eventbus.EventContentCompleted); err != nil {
			return nil, err
		}

	case statemachine.StageGeneratingImages:
		diagrams, err := s.diagramRepo.GetByProject(projectID)
		if err != nil {
			return nil, err
		}
		statuses := make([]statemachine.GenerationStatus, 0, len(diagrams))
		for _, d := range diagrams {
			statuses = append(statuses, statemachine.GenerationStatus(d.GenerationStatus))
			report.Units = append(report.Units, UnitStatus{
				ID: d.ID, Title: d.Title, Status: d.GenerationStatus, ErrorMsg: d.ErrorMsg,
			})
		}
		s.fillReport(report, "images", statemachine.Aggregate(statuses))
		if err := s.advanceOnAggregate(ctx, project, report,
			statemachine.StageImagesGenerated, eventbus.EventImagesCompleted); err != nil {
			return nil, err
		}

	case statemachine.StageCompletedWithErrors:
		report.Status = string(statemachine.AggregateCompletedWithErrors)
	}

	return report, nil
}

func (s *StatusService) fillReport(report *StatusReport, phase string, agg statemachine.AggregateResult) {
	report.Phase = phase
	report.Status = string(agg.Status)
	report.Progress = agg.Progress
	report.Total = agg.Total
	report.Succeeded = agg.Succeeded
	report.Failed = agg.Failed
}

// advanceOnAggregate 聚合到达终态时推进阶段
func (s *StatusService) advanceOnAggregate(
	ctx context.Context,
	project *model.Project,
	report *StatusReport,
	successStage statemachine.ProjectStage,
	completedEvent eventbus.PipelineEventType,
) error {
	switch statemachine.AggregateStatus(report.Status) {
	case statemachine.AggregateCompleted:
		if err := s.transitionStage(ctx, project, successStage); err != nil {
			return err
		}
		report.Stage = project.CurrentStage
		s.publishCompleted(ctx, project.ID, completedEvent, false)

	case statemachine.AggregateCompletedWithErrors:
		if err := s.transitionStage(ctx, project, statemachine.StageCompletedWithErrors); err != nil {
			return err
		}
		report.Stage = project.CurrentStage
		s.publishCompleted(ctx, project.ID, completedEvent, true)
	}
	return nil
}

func (s *StatusService) publishCompleted(ctx context.Context, projectID uint, eventType eventbus.PipelineEventType, hasErrors bool) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, eventbus.PipelineEvent{
		Type:      eventType,
		ProjectID: projectID,
		HasErrors: hasErrors,
	}); err != nil {
		klog.Errorf("生成完成事件处理失败: projectID=%d, event=%s, err=%v", projectID, eventType, err)
	}
}

func (s *StatusService) transitionStage(ctx context.Context, project *model.Project, to statemachine.ProjectStage) error {
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
