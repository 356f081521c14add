package handler

import (
	"net/http"
	"strconv"
	"time"

	"yourmind-go/internal/service"
	"yourmind-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理管理员相关的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListRiskAlerts 分页查询风险告警，可按用户和日期过滤。
func (h *AdminHandler) ListRiskAlerts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	userID := c.Query("userId")

	// 日期范围，end_date 包含当天
	var startTime, endTime *time.Time
	timeLayout := "2006-01-02"
	if startDateStr := c.Query("start_date"); startDateStr != "" {
		t, err := time.Parse(timeLayout, startDateStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid start_date format, use YYYY-MM-DD")
			return
		}
		startTime = &t
	}
	if endDateStr := c.Query("end_date"); endDateStr != "" {
		t, err := time.Parse(timeLayout, endDateStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid end_date format, use YYYY-MM-DD")
			return
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		endTime = &t
	}

	alerts, err := h.adminService.ListRiskAlerts(c.Request.Context(), userID, startTime, endTime, page, size)
	if err != nil {
		log.Error("ListRiskAlerts: Failed to list risk alerts", err)
		respondError(c, http.StatusInternalServerError, "위험 알림을 불러오지 못했습니다.")
		return
	}
	respondOK(c, alerts)
}
