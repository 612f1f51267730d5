package service

import (
	"context"
	"testing"

	"github.com/rfpforge/backend/internal/service/orchestrator"
	"github.com/rfpforge/backend/internal/service/prompt"
	"github.com/rfpforge/backend/internal/service/statemachine"
)

// inlineEnqueuer 入队即同步执行，让流水线测试不依赖协程池时序
type inlineEnqueuer struct {
	executor orchestrator.UnitExecutor
}

func (e *inlineEnqueuer) EnqueueJob(job *orchestrator.Job) error {
	return e.executor.ExecuteUnit(context.Background(), job.Kind, job.UnitID)
}

// 从 draft 一路走到 completed 的完整流水线
func TestPipelineHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	projectSvc := env.projectService()
	interviewSvc := env.interviewService()
	architect := newArchitect(env)
	contentSvc := NewContentService(env.gateway, env.projects, env.sections, env.diagrams,
		&fakeImageGen{image: []byte("png-bytes")}, env.bus, 3)
	contentSvc.SetEnqueuer(&inlineEnqueuer{executor: contentSvc})
	projectSvc.SetArchitect(architect)
	projectSvc.SetDispatcher(contentSvc)
	statusSvc := NewStatusService(env.projects, env.sections, env.diagrams, env.bus)

	env.gateway.responses[prompt.PhaseProjectInitializer] = `{
		"domain": "Data Centers",
		"refined_description": "Turnkey MEP package for a 10MW data center",
		"document_title": "Data Center MEP RFP"
	}`
	env.gateway.responses[prompt.PhaseResearchInitial] = "Tier III redundancy, commissioning levels 1-5."
	env.gateway.responses[prompt.PhaseResearchRefinement] = "Tier III with 2N power, liquid cooling ready."

	project, err := projectSvc.Create("数据中心机电总包", "10MW 数据中心机电安装", "en")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	// draft -> initialized
	if err := projectSvc.ProceedToNextAutomaticStage(ctx, project.ID); err != nil {
		t.Fatalf("initialize error: %v", err)
	}
	loaded, _ := env.projects.Get(project.ID)
	if loaded.CurrentStage != string(statemachine.StageInitialized) {
		t.Fatalf("expected initialized, got %s", loaded.CurrentStage)
	}
	if loaded.DocumentTitle != "Data Center MEP RFP" || loaded.InitialPractices == "" {
		t.Fatalf("expected initializer output persisted, got %+v", loaded)
	}

	// 项目访谈：一轮提问作答，一轮宣告完成 -> info_gathered
	env.gateway.responses[prompt.PhaseInterviewerProject] = `{
		"status": "ongoing", "completeness_score": 40,
		"fields": [{"field_key": "power_capacity", "label": "IT 负载容量"}]
	}`
	round, err := interviewSvc.RunRound(ctx, project.ID, ScopeProject)
	if err != nil {
		t.Fatalf("project round error: %v", err)
	}
	if len(round.NewFields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(round.NewFields))
	}
	fields, _ := env.forms.List(project.ID)
	if err := interviewSvc.Answer(ScopeProject, fields[0].ID, "10MW", ""); err != nil {
		t.Fatalf("answer error: %v", err)
	}
	env.gateway.responses[prompt.PhaseInterviewerProject] = `{
		"status": "complete", "completeness_score": 90, "fields": []
	}`
	round, err = interviewSvc.RunRound(ctx, project.ID, ScopeProject)
	if err != nil {
		t.Fatalf("project round 2 error: %v", err)
	}
	if round.Outcome != "complete" || !round.StageAdvanced {
		t.Fatalf("expected interview complete, got %+v", round)
	}

	// info_gathered -> practices_refined -> specifications_gathered
	if err := projectSvc.ProceedToNextAutomaticStage(ctx, project.ID); err != nil {
		t.Fatalf("refine error: %v", err)
	}
	if err := projectSvc.ProceedToNextAutomaticStage(ctx, project.ID); err != nil {
		t.Fatalf("post gathering error: %v", err)
	}

	// 实践访谈直接完成 -> practices_gap_gathered
	env.gateway.responses[prompt.PhaseInterviewerPractices] = `{
		"status": "complete", "completeness_score": 85, "fields": []
	}`
	if _, err := interviewSvc.RunRound(ctx, project.ID, ScopePractices); err != nil {
		t.Fatalf("practices round error: %v", err)
	}

	// practices_gap_gathered -> sections_generated
	env.gateway.responses[prompt.PhaseArchitect] = `{
		"document_title": "Data Center MEP RFP",
		"sections": [
			{"title": "Introduction", "description_intent": "frame the project"},
			{"title": "Cooling", "description_intent": "compare cooling options"}
		]
	}`
	if err := projectSvc.ProceedToNextAutomaticStage(ctx, project.ID); err != nil {
		t.Fatalf("structure error: %v", err)
	}

	// sections_generated -> generating_content，内联执行后全部成功
	env.gateway.responses[prompt.PhaseSectionWriter] = `{
		"content_html": "<h3>Section body</h3>",
		"diagrams": [{"title": "Layout", "description": "room layout"}]
	}`
	if err := projectSvc.ProceedToNextAutomaticStage(ctx, project.ID); err != nil {
		t.Fatalf("dispatch content error: %v", err)
	}
	report, err := statusSvc.Status(ctx, project.ID)
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if report.Status != string(statemachine.AggregateCompleted) || report.Progress != 100 {
		t.Fatalf("expected content completed at 100, got %+v", report)
	}
	if report.Stage != string(statemachine.StageContentGenerated) {
		t.Fatalf("expected content_generated, got %s", report.Stage)
	}

	// content_generated -> generating_images，每章节一张图
	if err := projectSvc.ProceedToNextAutomaticStage(ctx, project.ID); err != nil {
		t.Fatalf("dispatch images error: %v", err)
	}
	report, err = statusSvc.Status(ctx, project.ID)
	if err != nil {
		t.Fatalf("image status error: %v", err)
	}
	if report.Status != string(statemachine.AggregateCompleted) || report.Progress != 100 {
		t.Fatalf("expected images completed at 100, got %+v", report)
	}
	if report.Stage != string(statemachine.StageImagesGenerated) {
		t.Fatalf("expected images_generated, got %s", report.Stage)
	}

	sections, _ := env.sections.GetByProject(project.ID)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	for _, sec := range sections {
		if sec.ContentHTML != "<h3>Section body</h3>" {
			t.Fatalf("expected generated content, got %q", sec.ContentHTML)
		}
		if sec.GenerationStatus != string(statemachine.GenerationSuccess) {
			t.Fatalf("expected success, got %s", sec.GenerationStatus)
		}
	}
	diagrams, _ := env.diagrams.GetByProject(project.ID)
	if len(diagrams) != 2 {
		t.Fatalf("expected 2 diagrams, got %d", len(diagrams))
	}
	for _, d := range diagrams {
		if string(d.Image) != "png-bytes" {
			t.Fatalf("expected rendered image, got %d bytes", len(d.Image))
		}
	}

	// 锁定并完结
	if err := projectSvc.Lock(ctx, project.ID); err != nil {
		t.Fatalf("lock error: %v", err)
	}
	if err := projectSvc.MarkCompleted(ctx, project.ID); err != nil {
		t.Fatalf("complete error: %v", err)
	}
	loaded, _ = env.projects.Get(project.ID)
	if loaded.CurrentStage != string(statemachine.StageCompleted) {
		t.Fatalf("expected completed, got %s", loaded.CurrentStage)
	}
}
