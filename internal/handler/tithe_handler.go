package handler

import (
	"net/http"

	"purchaseboard/internal/middleware"
	"purchaseboard/internal/service"
	"purchaseboard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TitheHandler struct {
	titheService service.TitheService
}

func NewTitheHandler(titheService service.TitheService) *TitheHandler {
	return &TitheHandler{titheService: titheService}
}

func (h *TitheHandler) RegisterRoutes(router *gin.RouterGroup, requireApproved gin.HandlerFunc) {
	tasks := router.Group("/api/tithe-tasks", requireApproved)
	{
		tasks.GET("", h.ListTasks)
		tasks.POST("", h.CreateTask)
		tasks.GET("/:id", h.GetTask)
		tasks.PUT("/:id/complete", h.CompleteTask)
		tasks.POST("/:id/entries", h.AddEntry)
		tasks.DELETE("/:id/entries/:entryId", h.DeleteEntry)
	}
}

// CreateTask opens a new counting session assigned to one finance staff
// @Summary      Create tithe task
// @Tags         tithe
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTitheTaskDTO  true  "Assigned finance staff"
// @Success      201      {object}  service.TitheTaskResponse
// @Failure      400      {object}  response.ErrorBody
// @Router       /tithe-tasks [post]
func (h *TitheHandler) CreateTask(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	var req service.CreateTitheTaskDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	task, err := h.titheService.CreateTask(c.Request.Context(), principal, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TitheHandler) ListTasks(c *gin.Context) {
	tasks, err := h.titheService.ListTasks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TitheHandler) GetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid task id."))
		return
	}

	task, err := h.titheService.GetTask(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TitheHandler) CompleteTask(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid task id."))
		return
	}

	task, err := h.titheService.CompleteTask(c.Request.Context(), id, principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TitheHandler) AddEntry(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid task id."))
		return
	}

	var req service.CreateDedicationEntryDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.titheService.AddEntry(c.Request.Context(), taskID, principal, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *TitheHandler) DeleteEntry(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid task id."))
		return
	}
	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid entry id."))
		return
	}

	if err := h.titheService.DeleteEntry(c.Request.Context(), taskID, entryID, principal); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
