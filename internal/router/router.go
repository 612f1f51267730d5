package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rfpforge/backend/config"
	"github.com/rfpforge/backend/internal/handler"
)

// Handlers 路由挂载的全部处理器
type Handlers struct {
	Project   *handler.ProjectHandler
	Interview *handler.InterviewHandler
	Document  *handler.DocumentHandler
	Publish   *handler.PublishHandler
	Admin     *handler.AdminHandler
}

func Setup(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	api := r.Group("/api")
	{
		projects := api.Group("/projects")
		{
			projects.POST("", h.Project.Create)
			projects.GET("", h.Project.List)
			projects.GET("/:id", h.Project.Get)
			projects.DELETE("/:id", h.Project.Delete)

			projects.POST("/:id/initialize", h.Project.Initialize)
			projects.POST("/:id/advance", h.Project.Advance)
			projects.POST("/:id/lock", h.Project.Lock)
			projects.POST("/:id/unlock", h.Project.Unlock)
			projects.POST("/:id/complete", h.Project.Complete)
			projects.POST("/:id/revert", h.Project.Revert)

			projects.POST("/:id/interview-round", h.Interview.RunRound)
			projects.GET("/:id/inputs", h.Interview.ListFields)

			projects.POST("/:id/generate-structure", h.Document.GenerateStructure)
			projects.POST("/:id/dispatch-content", h.Document.DispatchContent)
			projects.POST("/:id/dispatch-images", h.Document.DispatchImages)
			projects.GET("/:id/generation-status", h.Document.GenerationStatus)
			projects.PUT("/:id/structure", h.Document.UpdateStructure)
			projects.PUT("/:id/content", h.Document.UpdateContent)

			projects.POST("/:id/publish", h.Publish.Publish)
			projects.GET("/:id/publications", h.Publish.History)
		}

		inputs := api.Group("/inputs")
		{
			inputs.PUT("/:inputId/answer", h.Interview.Answer)
			inputs.PUT("/:inputId/irrelevant", h.Interview.MarkIrrelevant)
		}

		api.GET("/published/:token", h.Publish.GetByToken)

		admin := api.Group("/admin")
		{
			admin.GET("/custom-fields", h.Admin.ListCustomFields)
			admin.POST("/custom-fields", h.Admin.CreateCustomField)
			admin.DELETE("/custom-fields/:id", h.Admin.DeleteCustomField)
			admin.GET("/domains", h.Admin.ListDomains)
			admin.GET("/knowledge-bases", h.Admin.ListKnowledgeBases)
			admin.POST("/knowledge-bases", h.Admin.CreateKnowledgeBase)
		}
	}

	return r
}
