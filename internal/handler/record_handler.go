package handler

import (
	"net/http"
	"strconv"

	"purchaseboard/internal/service"
	"purchaseboard/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type RecordHandler struct {
	recordService service.RecordService
}

func NewRecordHandler(recordService service.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

func (h *RecordHandler) RegisterRoutes(router *gin.RouterGroup, requireApproved gin.HandlerFunc) {
	router.GET("/api/purchase-records", requireApproved, h.ListRecords)
}

// ListRecords returns the purchased-only ledger projection
// @Summary      List purchase records
// @Description  Completed purchases only, filterable by purchaser name and purchase-date range (unix seconds)
// @Tags         records
// @Produce      json
// @Security     BearerAuth
// @Param        purchaser  query     string  false  "Purchaser name substring"
// @Param        start      query     int     false  "Purchase date from (unix seconds)"
// @Param        end        query     int     false  "Purchase date to (unix seconds)"
// @Param        page       query     int     false  "Page number"
// @Param        limit      query     int     false  "Page size"
// @Success      200        {object}  service.PurchaseRecordPage
// @Failure      401        {object}  response.ErrorBody
// @Router       /purchase-records [get]
func (h *RecordHandler) ListRecords(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.RecordFilter{
		Purchaser: c.Query("purchaser"),
		Page:      params.Page,
		Limit:     params.Limit,
	}
	if raw := c.Query("start"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.Start = &v
		}
	}
	if raw := c.Query("end"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.End = &v
		}
	}

	page, err := h.recordService.ListRecords(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
