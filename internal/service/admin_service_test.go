package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/pkg/tasks"
)

func TestRiskAlertsProcessAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	alerts := repository.NewRiskAlertRepository(db)
	processor := NewRiskAlertService(alerts)
	publisher := NewDirectPublisher(processor)
	admin := NewAdminService(alerts, users)

	user := &model.UserProfile{Name: "박서준", Email: "seojun@example.com", Password: "x"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	for i := 0; i < 3; i++ {
		task := tasks.RiskAlertTask{
			UserID:    user.ID,
			SessionID: "s1",
			MessageID: fmt.Sprintf("m%d", i),
			Level:     "high",
			Advisory:  "위험 신호가 감지되었습니다.",
			Excerpt:   "죽고 싶어요",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := publisher.Publish(ctx, task); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	// 重复投递
	if err := processor.Process(ctx, tasks.RiskAlertTask{UserID: user.ID, SessionID: "s1", MessageID: "m0", Level: "high"}); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if err := processor.Process(ctx, tasks.RiskAlertTask{UserID: "gone", SessionID: "s2", MessageID: "m9", Level: "high"}); err != nil {
		t.Fatalf("process: %v", err)
	}

	page, err := admin.ListRiskAlerts(ctx, user.ID, nil, nil, 1, 2)
	if err != nil {
		t.Fatalf("ListRiskAlerts: %v", err)
	}
	if page.TotalElements != 3 || page.TotalPages != 2 || len(page.Content) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Content[0].MessageID != "m2" || page.Content[0].UserName != "박서준" {
		t.Errorf("first item = %+v, want newest alert with user name", page.Content[0])
	}

	all, _ := admin.ListRiskAlerts(ctx, "", nil, nil, 0, 0)
	if all.TotalElements != 4 || all.Number != 1 || all.Size != 20 {
		t.Errorf("all = %+v", all)
	}
	for _, a := range all.Content {
		if a.UserID == "gone" && a.UserName != "" {
			t.Errorf("deleted user resolved to %q", a.UserName)
		}
	}
}

type brokenUsers struct {
	repository.UserRepository
}

func (brokenUsers) FindByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	return nil, errors.New("connection reset")
}

func TestListRiskAlertsUserLookupError(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alerts := repository.NewRiskAlertRepository(db)
	if err := NewRiskAlertService(alerts).Process(ctx, tasks.RiskAlertTask{UserID: "u1", SessionID: "s1", MessageID: "m1", Level: "high"}); err != nil {
		t.Fatalf("process: %v", err)
	}

	admin := NewAdminService(alerts, brokenUsers{UserRepository: repository.NewUserRepository(db)})
	if _, err := admin.ListRiskAlerts(ctx, "", nil, nil, 1, 10); err == nil {
		t.Error("database error while resolving users was swallowed")
	}
}
