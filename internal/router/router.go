package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskwarden/backend/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	Board  *apiHandler.BoardHandler
	Roster *apiHandler.RosterHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Task API
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.PUT("/api/v1/tasks/{id}/status", authMiddleware(handlers.Task.UpdateTaskStatus))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	// Viewer board (render model + deadline alerts)
	r.GET("/api/v1/board", authMiddleware(handlers.Board.GetBoard))

	// Roster
	r.GET("/api/v1/users", authMiddleware(handlers.Roster.GetMembers))
	r.POST("/api/v1/users/refresh", authMiddleware(handlers.Roster.RefreshMembers))

	return r
}
