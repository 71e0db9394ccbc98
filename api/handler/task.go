package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/api/transport"
	"github.com/fastygo/sitetasks/domain"
	"github.com/fastygo/sitetasks/pkg/httpcontext"
	taskUC "github.com/fastygo/sitetasks/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Fetch tasks from the data service
// @Description project_id narrows the fetch to one project. A failed fetch
// @Description answers an empty list with the error in meta.
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	if h.actor(ctx) == "" {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var tasks []domain.Task
	if projectID := string(ctx.QueryArgs().Peek("project_id")); projectID != "" {
		tasks = h.uc.FetchByProject(stdCtx, projectID)
	} else {
		tasks = h.uc.FetchAll(stdCtx)
	}
	h.respondList(ctx, tasks)
}

// @Summary Tasks assigned to the caller with their direct sub-tasks
// @Tags tasks
// @Router /api/v1/me/tasks [get]
func (h *TaskHandler) GetMyTasks(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.respondList(ctx, h.uc.FetchByUser(stdCtx, actor))
}

// @Summary Fetch one task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	if h.actor(ctx) == "" {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task := h.uc.FetchByID(stdCtx, pathValue(ctx, "id"))
	if task == nil {
		h.respondError(ctx, domain.ErrTaskNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Re-run the last list fetch
// @Tags tasks
// @Router /api/v1/tasks/refresh [post]
func (h *TaskHandler) Refresh(ctx *fasthttp.RequestCtx) {
	if h.actor(ctx) == "" {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.respondList(ctx, h.uc.Refresh(stdCtx))
}

// @Summary Query the loaded tasks
// @Description Filters apply in order: status, priority, assignee, starred=true, overdue=true.
// @Tags tasks
// @Router /api/v1/tasks/local [get]
func (h *TaskHandler) QueryTasks(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	args := ctx.QueryArgs()

	var tasks []domain.Task
	switch {
	case args.Has("status"):
		tasks = h.uc.ByStatus(domain.Status(args.Peek("status")))
	case args.Has("priority"):
		tasks = h.uc.ByPriority(domain.Priority(args.Peek("priority")))
	case args.Has("assignee"):
		tasks = h.uc.ByUser(string(args.Peek("assignee")))
	case args.GetBool("starred"):
		tasks = h.uc.Starred(actor)
	case args.GetBool("overdue"):
		tasks = h.uc.Overdue(time.Now())
	case args.Has("project_id"):
		tasks = h.uc.TopLevel(string(args.Peek("project_id")))
	default:
		tasks = h.uc.Tasks()
	}
	h.respondSuccess(ctx, http.StatusOK, nonNil(tasks))
}

// @Summary Loaded tasks as a forest
// @Tags tasks
// @Router /api/v1/tasks/tree [get]
func (h *TaskHandler) GetTree(ctx *fasthttp.RequestCtx) {
	if h.actor(ctx) == "" {
		return
	}
	tasks := h.uc.Tasks()
	if projectID := string(ctx.QueryArgs().Peek("project_id")); projectID != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.ProjectID == projectID {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	forest := taskUC.BuildTree(tasks)
	if forest == nil {
		forest = []*taskUC.TreeNode{}
	}
	h.respondSuccess(ctx, http.StatusOK, forest)
}

// @Summary Hierarchy around a loaded task
// @Description relation is one of children, descendants, ancestors.
// @Tags tasks
// @Router /api/v1/tasks/{id}/{relation} [get]
func (h *TaskHandler) GetRelated(ctx *fasthttp.RequestCtx) {
	if h.actor(ctx) == "" {
		return
	}
	id := pathValue(ctx, "id")
	if _, ok := h.uc.Task(id); !ok {
		h.respondError(ctx, domain.ErrTaskNotFound)
		return
	}

	var tasks []domain.Task
	switch pathValue(ctx, "relation") {
	case "children":
		tasks = h.uc.Children(id)
	case "descendants":
		tasks = h.uc.Descendants(id)
		h.respondJSON(ctx, http.StatusOK, transport.NewList(nonNil(tasks), &transport.ListMeta{Count: h.uc.CountDescendants(id)}))
		return
	case "ancestors":
		tasks = h.uc.Ancestors(id)
	default:
		h.respondError(ctx, domain.NewError(domain.ErrCodeNotFound, "unknown relation"))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nonNil(tasks))
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	h.create(ctx, func(stdCtx context.Context, draft domain.TaskDraft) (string, error) {
		return h.uc.CreateTask(stdCtx, draft)
	})
}

// @Summary Create a sub-task under {id}, or under {subId} when nested
// @Tags tasks
// @Router /api/v1/tasks/{id}/subtasks [post]
// @Router /api/v1/tasks/{id}/subtasks/{subId}/subtasks [post]
func (h *TaskHandler) CreateSubTask(ctx *fasthttp.RequestCtx) {
	parentID, subID := pathValue(ctx, "id"), pathValue(ctx, "subId")
	h.create(ctx, func(stdCtx context.Context, draft domain.TaskDraft) (string, error) {
		if subID != "" {
			return h.uc.CreateNestedSubTask(stdCtx, parentID, subID, draft)
		}
		return h.uc.CreateSubTask(stdCtx, parentID, draft)
	})
}

// @Summary Update task fields
// @Tags tasks
// @Router /api/v1/tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	if h.actor(ctx) == "" {
		return
	}
	var patch domain.TaskPatch
	if !h.decode(ctx, &patch) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.UpdateTask(stdCtx, pathValue(ctx, "id"), patch)
	h.respondTask(ctx, task, err)
}

// @Summary Delete task and its sub-tasks
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	if h.actor(ctx) == "" {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteTask(stdCtx, pathValue(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Run a lifecycle action as the caller
// @Description action is one of accept, decline, cancel, submit, approve, reject, star, read.
// @Tags tasks
// @Router /api/v1/tasks/{id}/actions/{action} [post]
func (h *TaskHandler) TaskAction(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	id, action := pathValue(ctx, "id"), pathValue(ctx, "action")

	var body transport.ReasonRequest
	if needsReason(action) && !h.decode(ctx, &body) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var (
		task *domain.Task
		err  error
	)
	switch action {
	case "accept":
		task, err = h.uc.AcceptTask(stdCtx, id, actor)
	case "decline":
		task, err = h.uc.DeclineTask(stdCtx, id, actor, body.Reason)
	case "submit":
		task, err = h.uc.SubmitForReview(stdCtx, id)
	case "approve":
		task, err = h.uc.AcceptCompletion(stdCtx, id, actor)
	case "reject":
		task, err = h.uc.RejectCompletion(stdCtx, id, actor, body.Reason)
	case "star":
		task, err = h.uc.ToggleStar(stdCtx, id, actor)
	case "cancel":
		// the cancelled task leaves the local set, so there is nothing to return
		if err = h.uc.CancelTask(stdCtx, id, actor); err == nil {
			ctx.SetStatusCode(http.StatusNoContent)
			return
		}
	case "read":
		h.respondSuccess(ctx, http.StatusOK, h.uc.MarkRead(stdCtx, actor, id))
		return
	default:
		err = domain.NewError(domain.ErrCodeNotFound, "unknown action "+action)
	}
	h.respondTask(ctx, task, err)
}

// @Summary Run a lifecycle action on a sub-task reached through its parent
// @Description action is one of accept, decline, update, submit, approve, reject.
// @Tags tasks
// @Router /api/v1/tasks/{id}/subtasks/{subId}/actions/{action} [post]
func (h *TaskHandler) SubTaskAction(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	parentID, subID, action := pathValue(ctx, "id"), pathValue(ctx, "subId"), pathValue(ctx, "action")

	var (
		body  transport.ReasonRequest
		patch domain.TaskPatch
	)
	switch {
	case action == "update":
		if !h.decode(ctx, &patch) {
			return
		}
	case needsReason(action):
		if !h.decode(ctx, &body) {
			return
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var (
		task *domain.Task
		err  error
	)
	switch action {
	case "accept":
		task, err = h.uc.AcceptSubTask(stdCtx, parentID, subID, actor)
	case "decline":
		task, err = h.uc.DeclineSubTask(stdCtx, parentID, subID, actor, body.Reason)
	case "update":
		task, err = h.uc.UpdateSubTask(stdCtx, parentID, subID, patch)
	case "submit":
		task, err = h.uc.SubmitSubTaskForReview(stdCtx, parentID, subID)
	case "approve":
		task, err = h.uc.AcceptSubTaskCompletion(stdCtx, parentID, subID, actor)
	case "reject":
		task, err = h.uc.RejectSubTaskCompletion(stdCtx, parentID, subID, actor, body.Reason)
	default:
		err = domain.NewError(domain.ErrCodeNotFound, "unknown action "+action)
	}
	h.respondTask(ctx, task, err)
}

// @Summary Append a progress update as the caller
// @Tags tasks
// @Router /api/v1/tasks/{id}/updates [post]
func (h *TaskHandler) AddUpdate(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	var req transport.ProgressRequest
	if !h.decode(ctx, &req) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.AddUpdate(stdCtx, pathValue(ctx, "id"), req.Update(actor))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, task)
}

// @Summary Unread count for the caller, after loading their read marks
// @Tags tasks
// @Router /api/v1/me/unread [get]
func (h *TaskHandler) GetUnread(ctx *fasthttp.RequestCtx) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.LoadReadStatus(stdCtx, actor); err != nil {
		h.logger.Warn("read status load failed, using local marks", zap.String("user_id", actor), zap.Error(err))
	}
	h.respondSuccess(ctx, http.StatusOK, transport.UnreadResponse{UserID: actor, Unread: h.uc.UnreadCount(actor)})
}

func (h *TaskHandler) create(ctx *fasthttp.RequestCtx, run func(context.Context, domain.TaskDraft) (string, error)) {
	actor := h.actor(ctx)
	if actor == "" {
		return
	}
	var req transport.CreateTaskRequest
	if !h.decode(ctx, &req) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id, err := run(stdCtx, req.Draft(actor))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	task, _ := h.uc.Task(id)
	h.respondSuccess(ctx, http.StatusCreated, task)
}

func (h *TaskHandler) respondTask(ctx *fasthttp.RequestCtx, task *domain.Task, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// respondList answers a list fetch. Fetches degrade to an empty list, so the
// failure travels in meta.
func (h *TaskHandler) respondList(ctx *fasthttp.RequestCtx, tasks []domain.Task) {
	var meta *transport.ListMeta
	if err := h.uc.LastError(); err != nil {
		meta = &transport.ListMeta{Error: err.Error()}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewList(nonNil(tasks), meta))
}

func needsReason(action string) bool {
	return action == "decline" || action == "reject"
}

func nonNil(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}
