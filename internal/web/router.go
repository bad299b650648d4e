package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all routes
func (h *Handler) SetupRouter(r *gin.Engine) {
	r.SetHTMLTemplate(h.tmpl)

	// Health check
	r.GET("/health", h.Health)

	pages := r.Group("/")
	pages.Use(h.SessionMiddleware())
	{
		pages.GET("/", h.Home)
		pages.POST("/upload", h.Upload)
		pages.POST("/layout/sidebar", h.ToggleSidebar)

		// Login and registration
		pages.GET("/login", h.LoginPage)
		pages.POST("/login", h.Login)
		pages.POST("/login/mode", h.SetLoginMode)
		pages.POST("/register", h.Register)
		pages.POST("/logout", h.Logout)

		analysis := pages.Group("/analysis")
		{
			analysis.GET("", h.AnalysisPage)
			analysis.GET("/:datasetId", h.AnalysisPage)
			analysis.POST("/:datasetId/submit", h.SubmitAnalysis)
			analysis.POST("/:datasetId/redo", h.RedoAnalysis)
			analysis.POST("/:datasetId/save", h.SaveAnalysis)
		}

		prediction := pages.Group("/prediction")
		{
			prediction.GET("", h.PredictionPage)
			prediction.GET("/:datasetId", h.PredictionPage)
			prediction.POST("/:datasetId/validate", h.ValidatePrediction)
			prediction.POST("/:datasetId/submit", h.SubmitPrediction)
			prediction.POST("/:datasetId/redo", h.RedoPrediction)
			prediction.POST("/:datasetId/save", h.SavePrediction)
		}

		pages.GET("/workspace", h.WorkspacePage)
		records := pages.Group("/workspace/records")
		records.Use(RequireUser())
		{
			records.POST("/:recordId/delete", h.RequestDelete)
			records.POST("/:recordId/confirm", h.ConfirmDelete)
			records.POST("/:recordId/cancel", h.CancelDelete)
		}
	}

	// Unknown paths land on the home page
	r.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})
}

// NewRouter builds an engine with panic recovery, the given middleware and
// all routes.
func (h *Handler) NewRouter(middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware...)
	h.SetupRouter(r)
	return r
}
