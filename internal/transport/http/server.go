package http

import (
	"github.com/gin-gonic/gin"

	"smartaudit/internal/bootstrap"
	"smartaudit/internal/transport/http/handler"
	"smartaudit/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.Recovery(app.Logger), middleware.RequestLogger(app.Logger.Named("http")))
	maxUpload := int64(app.Config.Limits.MaxUploadMegabytes) << 20
	router.MaxMultipartMemory = maxUpload

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	ruleHandler := handler.NewRuleHandler(app.Rules, app.Settings, maxUpload)
	referenceHandler := handler.NewReferenceHandler(app.References, app.Settings, maxUpload)
	reviewHandler := handler.NewReviewHandler(app.Reviews, app.Settings, maxUpload)
	distillHandler := handler.NewDistillHandler(app.Distill, app.Settings, maxUpload)
	settingsHandler := handler.NewSettingsHandler(app.Settings)

	v1 := router.Group("/api/v1")
	if app.Config.Auth.Enabled {
		v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	}

	rules := v1.Group("/rules")
	rules.GET("", ruleHandler.List)
	rules.POST("", ruleHandler.Create)
	rules.POST("/import", ruleHandler.Import)
	rules.PATCH("/:id", ruleHandler.Update)
	rules.POST("/:id/toggle", ruleHandler.Toggle)
	rules.DELETE("/:id", ruleHandler.Delete)

	refs := v1.Group("/references")
	refs.GET("", referenceHandler.List)
	refs.GET("/search", referenceHandler.Search)
	refs.POST("/import", referenceHandler.Import)
	refs.POST("/import/async", referenceHandler.ImportAsync)
	refs.POST("/query", referenceHandler.Query)
	refs.POST("/:id/toggle", referenceHandler.Toggle)
	refs.DELETE("/:id", referenceHandler.Delete)

	reviews := v1.Group("/reviews")
	reviews.POST("", reviewHandler.Create)
	reviews.GET("", reviewHandler.List)
	reviews.GET("/:id", reviewHandler.Get)
	reviews.PUT("/:id", reviewHandler.Save)
	reviews.DELETE("/:id", reviewHandler.Delete)
	reviews.POST("/:id/documents", reviewHandler.AddDocuments)
	reviews.PATCH("/:id/documents/:docID", reviewHandler.UpdateDocument)
	reviews.DELETE("/:id/documents/:docID", reviewHandler.RemoveDocument)
	reviews.POST("/:id/documents/:docID/versions", reviewHandler.Snapshot)
	reviews.POST("/:id/documents/:docID/versions/:versionID/revert", reviewHandler.Revert)
	reviews.POST("/:id/extract", reviewHandler.Extract)
	reviews.POST("/:id/summary", reviewHandler.Summarize)
	reviews.POST("/:id/opinion", reviewHandler.DraftOpinion)
	reviews.POST("/:id/run", reviewHandler.RunAll)

	distill := v1.Group("/distill")
	distill.GET("", distillHandler.List)
	distill.POST("", distillHandler.Run)
	distill.GET("/:id", distillHandler.Get)
	distill.POST("/:id/rerun", distillHandler.Rerun)
	distill.PATCH("/:id", distillHandler.Rename)
	distill.DELETE("/:id", distillHandler.Delete)
	distill.GET("/:id/layout", distillHandler.Layout)
	distill.POST("/:id/visual", distillHandler.Visual)
	distill.POST("/:id/visual/reimagine", distillHandler.Reimagine)
	distill.PUT("/:id/visual/adjustments", distillHandler.SetAdjustments)

	settings := v1.Group("/settings")
	settings.GET("", settingsHandler.Get)
	settings.PUT("", settingsHandler.Save)

	return router
}
