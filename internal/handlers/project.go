package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/services"
)

func (h *Handler) ListProjects(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	projects, err := h.svc.Projects.List(ctx.Request.Context(), user)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, projects)
}

func (h *Handler) CreateProject(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.CreateProjectInput

	if !h.bind(ctx, &body) {
		return
	}

	project, err := h.svc.Projects.Create(ctx.Request.Context(), user, body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, project)
}

// GetProject returns the project with its permits and permit statistics.
func (h *Handler) GetProject(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	detail, err := h.svc.Projects.Get(ctx.Request.Context(), user, ctx.Param("id"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func (h *Handler) UpdateProject(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.UpdateProjectInput

	if !h.bind(ctx, &body) {
		return
	}

	project, err := h.svc.Projects.Update(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, project)
}

func (h *Handler) AddTeamMember(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.AddMemberInput

	if !h.bind(ctx, &body) {
		return
	}

	project, err := h.svc.Projects.AddMember(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, project)
}
