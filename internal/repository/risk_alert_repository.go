package repository

import (
	"context"
	"time"

	"yourmind-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RiskAlertFilter 是查询风险告警的条件，零值字段不参与过滤。
type RiskAlertFilter struct {
	UserID string
	Since  *time.Time
	Until  *time.Time
	Offset int
	Limit  int
}

// RiskAlertRepository 定义了风险告警的持久化操作。
type RiskAlertRepository interface {
	// Create 按 MessageID 幂等写入，重复投递不会产生多条记录
	Create(ctx context.Context, alert *model.RiskAlert) error
	List(ctx context.Context, filter RiskAlertFilter) ([]model.RiskAlert, int64, error)
}

type riskAlertRepository struct {
	db *gorm.DB
}

func NewRiskAlertRepository(db *gorm.DB) RiskAlertRepository {
	return &riskAlertRepository{db: db}
}

func (r *riskAlertRepository) Create(ctx context.Context, alert *model.RiskAlert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(alert).Error
}

func (r *riskAlertRepository) List(ctx context.Context, filter RiskAlertFilter) ([]model.RiskAlert, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.RiskAlert{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("created_at <= ?", *filter.Until)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	var alerts []model.RiskAlert
	err := q.Order("created_at DESC").Offset(filter.Offset).Limit(limit).Find(&alerts).Error
	return alerts, total, err
}
