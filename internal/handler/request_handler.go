package handler

import (
	"net/http"

	"purchaseboard/internal/middleware"
	"purchaseboard/internal/service"
	"purchaseboard/pkg/pagination"
	"purchaseboard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestService service.RequestService
	commentService service.CommentService
}

func NewRequestHandler(requestService service.RequestService, commentService service.CommentService) *RequestHandler {
	return &RequestHandler{requestService: requestService, commentService: commentService}
}

// RegisterRoutes binds the board endpoints. Reads are public; every
// mutation sits behind the approval gate.
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup, requireApproved gin.HandlerFunc) {
	requirements := router.Group("/api/requirements")
	{
		requirements.GET("", h.ListRequirements)
		requirements.GET("/:id", h.GetRequirement)
		requirements.POST("", requireApproved, h.CreateRequirement)
		requirements.PUT("/:id", requireApproved, h.UpdateRequirement)
		requirements.DELETE("/:id", requireApproved, h.DeleteRequirement)

		requirements.POST("/:id/comments", requireApproved, h.AddComment)
		requirements.DELETE("/:id/comments/:commentId", requireApproved, h.DeleteComment)
	}
}

// ListRequirements returns every purchase request with its comment thread
// @Summary      List purchase requests
// @Description  Returns all purchase requests, newest first by default, each with its full comment thread
// @Tags         requirements
// @Produce      json
// @Param        sort  query     string  false  "newest (default) or oldest"
// @Success      200  {array}   service.RequestResponse
// @Failure      500  {object}  response.ErrorBody
// @Router       /requirements [get]
func (h *RequestHandler) ListRequirements(c *gin.Context) {
	views, err := h.requestService.List(c.Request.Context(), pagination.SortOrder(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *RequestHandler) GetRequirement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id."))
		return
	}

	view, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateRequirement registers a new purchase request in pending status
// @Summary      Create purchase request
// @Tags         requirements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "New request"
// @Success      201      {object}  service.RequestResponse
// @Failure      400      {object}  response.ErrorBody
// @Failure      401      {object}  response.ErrorBody
// @Router       /requirements [post]
func (h *RequestHandler) CreateRequirement(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	view, err := h.requestService.Create(c.Request.Context(), principal, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateRequirement applies a partial patch, including the purchase and
// revert transitions
// @Summary      Update purchase request
// @Description  Partial update. Setting status=purchased confirms the purchase; at most one caller wins a race. Setting status=pending reverts it (purchaser only).
// @Tags         requirements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.UpdateRequestDTO  true  "Fields to change"
// @Success      200      {object}  service.RequestResponse
// @Failure      400      {object}  response.ErrorBody
// @Failure      403      {object}  response.ErrorBody
// @Failure      404      {object}  response.ErrorBody
// @Failure      409      {object}  response.ErrorBody
// @Router       /requirements/{id} [put]
func (h *RequestHandler) UpdateRequirement(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id."))
		return
	}

	var req service.UpdateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	view, err := h.requestService.Update(c.Request.Context(), id, principal, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RequestHandler) DeleteRequirement(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id."))
		return
	}

	if err := h.requestService.Delete(c.Request.Context(), id, principal); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) AddComment(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id."))
		return
	}

	var req service.CreateCommentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	comment, err := h.commentService.Add(c.Request.Context(), id, principal, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *RequestHandler) DeleteComment(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error("Unauthorized."))
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id."))
		return
	}
	commentID, err := uuid.Parse(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid comment id."))
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), requestID, commentID, principal); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
