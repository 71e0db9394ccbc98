package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/sitetasks/api/handler"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	User   *apiHandler.UserHandler
	Task   *apiHandler.TaskHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", authMiddleware(handlers.Auth.Refresh))

	// Protected routes
	api := r.Group("/api/v1")

	api.GET("/users/{id}", authMiddleware(handlers.User.GetUser))
	api.PUT("/users/me", authMiddleware(handlers.User.UpdateMe))

	api.GET("/me/tasks", authMiddleware(handlers.Task.GetMyTasks))
	api.GET("/me/unread", authMiddleware(handlers.Task.GetUnread))

	api.GET("/tasks", authMiddleware(handlers.Task.GetTasks))
	api.POST("/tasks", authMiddleware(handlers.Task.CreateTask))
	api.POST("/tasks/refresh", authMiddleware(handlers.Task.Refresh))
	api.GET("/tasks/local", authMiddleware(handlers.Task.QueryTasks))
	api.GET("/tasks/tree", authMiddleware(handlers.Task.GetTree))

	api.GET("/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	api.PATCH("/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	api.DELETE("/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))
	api.GET("/tasks/{id}/{relation}", authMiddleware(handlers.Task.GetRelated))
	api.POST("/tasks/{id}/updates", authMiddleware(handlers.Task.AddUpdate))
	api.POST("/tasks/{id}/actions/{action}", authMiddleware(handlers.Task.TaskAction))

	api.POST("/tasks/{id}/subtasks", authMiddleware(handlers.Task.CreateSubTask))
	api.POST("/tasks/{id}/subtasks/{subId}/subtasks", authMiddleware(handlers.Task.CreateSubTask))
	api.POST("/tasks/{id}/subtasks/{subId}/actions/{action}", authMiddleware(handlers.Task.SubTaskAction))

	return r
}
