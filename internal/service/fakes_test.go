package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"yourmind-go/internal/counsel"
	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/pkg/database"
	"yourmind-go/pkg/llm"
	"yourmind-go/pkg/tasks"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.UserProfile{}, &model.ChatSession{}, &model.ChatMessage{}, &model.RiskAlert{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type memConversations struct {
	mu    sync.Mutex
	store map[string][]model.CompletionTurn
}

func newMemConversations() *memConversations {
	return &memConversations{store: make(map[string][]model.CompletionTurn)}
}

func (m *memConversations) Create(ctx context.Context, token string, turns []model.CompletionTurn) error {
	return m.Save(ctx, token, turns)
}

func (m *memConversations) Get(_ context.Context, token string) ([]model.CompletionTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns, ok := m.store[token]
	if !ok {
		return nil, repository.ErrConversationNotFound
	}
	return append([]model.CompletionTurn(nil), turns...), nil
}

func (m *memConversations) Save(_ context.Context, token string, turns []model.CompletionTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[token] = append([]model.CompletionTurn(nil), turns...)
	return nil
}

func (m *memConversations) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[token]; !ok {
		return repository.ErrConversationNotFound
	}
	delete(m.store, token)
	return nil
}

type memState struct {
	mu   sync.Mutex
	runs   map[string]counsel.TestRun
	busy   map[string]string
	leases int
}

func newMemState() *memState {
	return &memState{runs: make(map[string]counsel.TestRun), busy: make(map[string]string)}
}

func (m *memState) GetTestRun(_ context.Context, sessionID string) (counsel.TestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[sessionID], nil
}

func (m *memState) SaveTestRun(_ context.Context, sessionID string, run counsel.TestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !run.Selected() {
		delete(m.runs, sessionID)
		return nil
	}
	m.runs[sessionID] = run
	return nil
}

func (m *memState) ClearTestRun(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, sessionID)
	return nil
}

func (m *memState) AcquireBusy(_ context.Context, sessionID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.busy[sessionID]; held {
		return "", false, nil
	}
	m.leases++
	lease := fmt.Sprintf("lease-%d", m.leases)
	m.busy[sessionID] = lease
	return lease, true, nil
}

func (m *memState) ReleaseBusy(_ context.Context, sessionID, lease string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy[sessionID] == lease {
		delete(m.busy, sessionID)
	}
	return nil
}

type memBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *memBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[token] = ttl
	return nil
}

func (m *memBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[token]
	return ok, nil
}

// fakeLLM 按顺序记录收到的消息，返回固定回复或错误。
type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]llm.Message(nil), messages...))
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePublisher struct {
	mu    sync.Mutex
	tasks []tasks.RiskAlertTask
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, task tasks.RiskAlertTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return p.err
}

var errProvider = errors.New("provider down")
