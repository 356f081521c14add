package handler

import (
	"net/http"
	"strconv"

	"yourmind-go/internal/service"

	"github.com/gin-gonic/gin"
)

// LocationHandler 负责地址解析和附近机构查询。
type LocationHandler struct {
	locationService service.LocationService
}

// NewLocationHandler 创建一个新的 LocationHandler。
func NewLocationHandler(locationService service.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

// Address 把坐标解析为地址。
func (h *LocationHandler) Address(c *gin.Context) {
	lat, lng, ok := parseCoords(c)
	if !ok {
		return
	}
	addr, err := h.locationService.Address(c.Request.Context(), lat, lng)
	if err != nil {
		fail(c, "Address", err)
		return
	}
	respondOK(c, addr)
}

// Search 按关键词查询地址。
func (h *LocationHandler) Search(c *gin.Context) {
	addresses, err := h.locationService.SearchAddresses(c.Request.Context(), c.Query("query"))
	if err != nil {
		fail(c, "SearchAddresses", err)
		return
	}
	respondOK(c, gin.H{"addresses": addresses})
}

// NearbyFacilities 查询附近的精神科和心理咨询机构。
func (h *LocationHandler) NearbyFacilities(c *gin.Context) {
	lat, lng, ok := parseCoords(c)
	if !ok {
		return
	}
	radius, err := strconv.Atoi(c.DefaultQuery("radius", "5000"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "radius 값이 올바르지 않습니다.")
		return
	}
	result, err := h.locationService.NearbyFacilities(c.Request.Context(), lat, lng, radius)
	if err != nil {
		fail(c, "NearbyFacilities", err)
		return
	}
	respondOK(c, result)
}

func parseCoords(c *gin.Context) (float64, float64, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		respondError(c, http.StatusBadRequest, "위도(lat)와 경도(lng)가 필요합니다.")
		return 0, 0, false
	}
	return lat, lng, true
}
