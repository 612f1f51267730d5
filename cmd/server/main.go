package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"k8s.io/klog/v2"

	"github.com/rfpforge/backend/config"
	"github.com/rfpforge/backend/internal/eventbus"
	"github.com/rfpforge/backend/internal/handler"
	"github.com/rfpforge/backend/internal/pkg/database"
	"github.com/rfpforge/backend/internal/pkg/llm"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/router"
	"github.com/rfpforge/backend/internal/service"
	"github.com/rfpforge/backend/internal/service/aigateway"
	"github.com/rfpforge/backend/internal/service/orchestrator"
	"github.com/rfpforge/backend/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 仓储层
	projectRepo := repository.NewProjectRepository(db)
	formInputRepo := repository.NewFormInputRepository(db)
	practiceInputRepo := repository.NewPracticeInputRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	diagramRepo := repository.NewDiagramRepository(db)
	aiLogRepo := repository.NewAILogRepository(db)
	customFieldRepo := repository.NewCustomFieldRepository(db)
	domainRepo := repository.NewDomainRepository(db)
	kbRepo := repository.NewKnowledgeBaseRepository(db)
	publishedRepo := repository.NewPublishedRepository(db)

	forms := service.NewFormInputCollection(formInputRepo)
	practices := service.NewPracticeInputCollection(practiceInputRepo)

	// AI 网关
	chatModel, err := llm.NewChatModel(cfg.LLM.APIKey, cfg.LLM.APIURL, cfg.LLM.Model, cfg.LLM.MaxTokens)
	if err != nil {
		log.Fatalf("Failed to initialize chat model: %v", err)
	}
	gateway := aigateway.NewGateway(chatModel, aiLogRepo)
	imageClient := llm.NewImageClient(cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.ImageModel)

	// 服务层
	bus := eventbus.NewBus()
	projectService := service.NewProjectService(
		gateway, projectRepo, domainRepo, kbRepo, customFieldRepo, forms, practices, bus)
	interviewService := service.NewInterviewService(gateway, projectRepo, forms, practices, bus)
	architectService := service.NewArchitectService(gateway, projectRepo, sectionRepo, bus)
	contentService := service.NewContentService(
		gateway, projectRepo, sectionRepo, diagramRepo, imageClient, bus, cfg.Generation.MaxRetries)
	statusService := service.NewStatusService(projectRepo, sectionRepo, diagramRepo, bus)
	structureEditor := service.NewStructureEditor(projectRepo, sectionRepo)
	publishService := service.NewPublishService(projectRepo, sectionRepo, diagramRepo, publishedRepo)

	projectService.SetArchitect(architectService)
	projectService.SetDispatcher(contentService)

	// 编排器：ContentService 既是派发方也是执行方，后置注入打破构造循环
	orch, err := orchestrator.NewOrchestrator(cfg.Generation.MaxWorkers, contentService)
	if err != nil {
		log.Fatalf("Failed to initialize orchestrator: %v", err)
	}
	contentService.SetEnqueuer(orch)
	orch.Start()
	defer orch.Stop()

	pipelineSubscriber := subscriber.NewPipelineSubscriber(contentService)
	pipelineSubscriber.Register(bus)

	// 启动时清理卡住的生成单元（超过 10 分钟仍在 queued/generating 的章节）
	if affected, err := contentService.CleanupStuckUnits(10 * time.Minute); err != nil {
		klog.V(6).Infof("清理卡住生成单元失败: %v", err)
	} else if affected > 0 {
		klog.Infof("已清理 %d 个卡住的生成单元", affected)
	}

	r := router.Setup(cfg, router.Handlers{
		Project:   handler.NewProjectHandler(projectService),
		Interview: handler.NewInterviewHandler(interviewService),
		Document:  handler.NewDocumentHandler(architectService, contentService, statusService, structureEditor),
		Publish:   handler.NewPublishHandler(publishService),
		Admin:     handler.NewAdminHandler(customFieldRepo, domainRepo, kbRepo),
	})

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
