package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/psds-microservice/consultation-service/api"
	"github.com/psds-microservice/consultation-service/internal/handler"
	"github.com/psds-microservice/consultation-service/internal/middleware"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

type Deps struct {
	Health    *handler.HealthHandler
	Threads   *handler.ThreadHandler
	Content   *handler.ContentHandler
	Log       *logger.Logger
	JWTSecret string
}

func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging(logger.OrGlobal(d.Log)))

	r.GET(paths.PathHealth, d.Health.Health)
	r.GET(paths.PathReady, d.Health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1", middleware.Session(d.JWTSecret), middleware.RequireSession())
	for _, kind := range model.ThreadKinds {
		g := v1.Group("/"+kind.Plural(), handler.WithKind(kind))
		{
			g.POST("", d.Threads.Create)
			g.GET("", d.Threads.List)
			g.GET("/:id", d.Threads.Get)
			g.POST("/:id/replies", d.Threads.Reply)
			g.POST("/:id/owner-replies", d.Threads.OwnerReply)
			g.PUT("/:id/assign", d.Threads.Assign)
			g.PUT("/:id/priority", d.Threads.UpdatePriority)
		}
	}

	admin := v1.Group("/admin", middleware.RequireAdmin())
	{
		admin.POST("/content", d.Content.Create)
		admin.GET("/content", d.Content.List)
		admin.GET("/content/:id", d.Content.Get)
	}

	return r
}
