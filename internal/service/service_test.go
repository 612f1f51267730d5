package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rfpforge/backend/internal/eventbus"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/aigateway"
	"github.com/rfpforge/backend/internal/service/prompt"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Project{}, &model.Domain{}, &model.KnowledgeBase{},
		&model.FormInput{}, &model.PracticeInput{}, &model.CustomField{},
		&model.DocumentSection{}, &model.SectionDiagram{},
		&model.AIRequestLog{},
		&model.PublishedRFP{}, &model.PublishedSection{}, &model.PublishedDiagram{},
	); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return db
}

// fakeGateway 按提示词阶段返回预设响应，并记录收到的请求
type fakeGateway struct {
	responses map[prompt.Phase]string
	errs      map[prompt.Phase]error
	calls     []prompt.Phase
	requests  []aigateway.Request
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		responses: make(map[prompt.Phase]string),
		errs:      make(map[prompt.Phase]error),
	}
}

func (g *fakeGateway) Execute(ctx context.Context, req aigateway.Request) (string, error) {
	g.calls = append(g.calls, req.Phase)
	g.requests = append(g.requests, req)
	if err := g.errs[req.Phase]; err != nil {
		return "", err
	}
	return g.responses[req.Phase], nil
}

// lastRequest 最近一次指定阶段的请求
func (g *fakeGateway) lastRequest(phase prompt.Phase) (aigateway.Request, bool) {
	for i := len(g.requests) - 1; i >= 0; i-- {
		if g.requests[i].Phase == phase {
			return g.requests[i], true
		}
	}
	return aigateway.Request{}, false
}

// testEnv 一套接通 in-memory 库的服务依赖
type testEnv struct {
	db        *gorm.DB
	gateway   *fakeGateway
	bus       *eventbus.Bus
	projects  repository.ProjectRepository
	sections  repository.SectionRepository
	diagrams  repository.DiagramRepository
	domains   repository.DomainRepository
	kbs       repository.KnowledgeBaseRepository
	fields    repository.CustomFieldRepository
	published repository.PublishedRepository
	forms     InputCollection
	practices InputCollection
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)
	return &testEnv{
		db:        db,
		gateway:   newFakeGateway(),
		bus:       eventbus.NewBus(),
		projects:  repository.NewProjectRepository(db),
		sections:  repository.NewSectionRepository(db),
		diagrams:  repository.NewDiagramRepository(db),
		domains:   repository.NewDomainRepository(db),
		kbs:       repository.NewKnowledgeBaseRepository(db),
		fields:    repository.NewCustomFieldRepository(db),
		published: repository.NewPublishedRepository(db),
		forms:     NewFormInputCollection(repository.NewFormInputRepository(db)),
		practices: NewPracticeInputCollection(repository.NewPracticeInputRepository(db)),
	}
}

func (e *testEnv) projectService() *ProjectService {
	return NewProjectService(e.gateway, e.projects, e.domains, e.kbs, e.fields, e.forms, e.practices, e.bus)
}

func (e *testEnv) interviewService() *InterviewService {
	return NewInterviewService(e.gateway, e.projects, e.forms, e.practices, e.bus)
}

func (e *testEnv) createProject(t *testing.T, stage string) *model.Project {
	t.Helper()
	project := &model.Project{
		Name:        "数据中心机电总包",
		Description: "数据中心机电安装工程招标",
		Language:    "en",
	}
	if err := e.projects.Create(project); err != nil {
		t.Fatalf("create project error: %v", err)
	}
	if stage != "" && stage != "draft" {
		if err := e.projects.UpdateStage(project.ID, stage); err != nil {
			t.Fatalf("update stage error: %v", err)
		}
		project.CurrentStage = stage
	}
	return project
}
