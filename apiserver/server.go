package apiserver

import (
	goctx "context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nooom01/automl-agent-system/context"
	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/orchestrator"
	"github.com/Nooom01/automl-agent-system/types"
)

const DefaultAddr = "0.0.0.0:7074"

// Runner accepts task submissions for asynchronous execution
type Runner interface {
	Submit(req orchestrator.Request) string
}

type APIServer struct {
	router    *gin.Engine
	ctx       *context.RootContext
	runner    Runner
	dashboard DashboardRouter

	server *http.Server
	addr   string

	*types.BaseService
}

func NewAPIServer(ctx *context.RootContext, runner Runner, dashboard DashboardRouter) *APIServer {

	server := &APIServer{
		ctx:         ctx,
		runner:      runner,
		addr:        ctx.Config.APIServerAddr,
		dashboard:   dashboard,
		BaseService: types.NewBaseService("APIServer", ctx.Logger),
	}
	if server.addr == "" {
		server.addr = DefaultAddr
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(server.logMiddleware)

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/dashboard")
	})
	router.POST("/tasks", server.HandleTaskPost)

	router.GET("/runs", server.handleRuns)
	router.GET("/runs/:run", server.handleRunGet)
	router.GET("/runs/:run/progress", server.handleRunProgress)
	router.GET("/runs/:run/results", server.handleRunResults)
	router.GET("/healthz", server.handleHealth)
	router.GET("/dashboard/name", server.HandleDashboardName)
	router.GET("/dashboard", server.HandleDashboard)

	if dashboard != nil {
		dashboard.SetupRouter(router.Group("/dashboard/api"))
	}

	server.router = router
	server.server = &http.Server{
		Addr:    server.addr,
		Handler: router,
	}

	return server
}

// Router exposes the engine for in process testing
func (a *APIServer) Router() *gin.Engine {
	return a.router
}

func (a *APIServer) logMiddleware(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path
	raw := c.Request.URL.RawQuery

	// Process request
	c.Next()

	end := time.Now()
	if raw != "" {
		path = path + "?" + raw
	}
	a.Logger.With(log.LogParams{
		"timestamp":   end,
		"latency":     end.Sub(start).String(),
		"client_ip":   c.ClientIP(),
		"method":      c.Request.Method,
		"status_code": c.Writer.Status(),
		"error":       c.Errors.ByType(gin.ErrorTypePrivate).String(),
		"body_size":   c.Writer.Size(),
		"path":        path,
	}).Debug("Handled request")
}

func (a *APIServer) Start() {
	a.StartRunning()
	go func() {
		a.Logger.With(log.LogParams{
			"addr": a.addr,
		}).Info("API server starting!")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.With(log.LogParams{
				"addr": a.addr,
				"err":  err,
			}).Fatal("API server closed!")
		}
	}()
}

func (a *APIServer) Stop() {
	a.StopRunning()
	ctx, cancel := goctx.WithTimeout(goctx.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.Logger.Error("API server focefully shutdown")
	}
	a.Logger.Info("API server stopped!")
}
