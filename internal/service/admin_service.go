// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"

	"gorm.io/gorm"
)

// RiskAlertListResponse 定义了风险告警列表 API 的响应结构。
type RiskAlertListResponse struct {
	Content       []RiskAlertDetail `json:"content"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
	Size          int               `json:"size"`
	Number        int               `json:"number"`
}

// RiskAlertDetail 定义了告警列表项，附带用户名便于管理员联系。
type RiskAlertDetail struct {
	ID        uint            `json:"id"`
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
	Email     string          `json:"email"`
	SessionID string          `json:"sessionId"`
	MessageID string          `json:"messageId"`
	Level     string          `json:"level"`
	Advisory  string          `json:"advisory"`
	Excerpt   string          `json:"excerpt"`
	CreatedAt model.LocalTime `json:"createdAt"`
}

// AdminService 接口定义了管理员相关的业务操作。
type AdminService interface {
	// ListRiskAlerts 分页查询风险告警，page 从 1 开始
	ListRiskAlerts(ctx context.Context, userID string, startTime, endTime *time.Time, page, size int) (*RiskAlertListResponse, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	alertRepo repository.RiskAlertRepository
	userRepo  repository.UserRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(alertRepo repository.RiskAlertRepository, userRepo repository.UserRepository) AdminService {
	return &adminService{alertRepo: alertRepo, userRepo: userRepo}
}

func (s *adminService) ListRiskAlerts(ctx context.Context, userID string, startTime, endTime *time.Time, page, size int) (*RiskAlertListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	alerts, total, err := s.alertRepo.List(ctx, repository.RiskAlertFilter{
		UserID: userID,
		Since:  startTime,
		Until:  endTime,
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		return nil, err
	}

	// 同一页内的用户只查一次
	users := make(map[string]*model.UserProfile)
	content := make([]RiskAlertDetail, 0, len(alerts))
	for _, a := range alerts {
		u, seen := users[a.UserID]
		if !seen {
			found, err := s.userRepo.FindByID(ctx, a.UserID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to find user %s: %w", a.UserID, err)
			}
			// 用户已注销时为 nil
			u = found
			users[a.UserID] = u
		}
		d := RiskAlertDetail{
			ID:        a.ID,
			UserID:    a.UserID,
			SessionID: a.SessionID,
			MessageID: a.MessageID,
			Level:     a.Level,
			Advisory:  a.Advisory,
			Excerpt:   a.Excerpt,
			CreatedAt: model.LocalTime(a.CreatedAt),
		}
		if u != nil {
			d.UserName = u.Name
			d.Email = u.Email
		}
		content = append(content, d)
	}

	totalPages := int(total) / size
	if int(total)%size != 0 {
		totalPages++
	}
	return &RiskAlertListResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}
