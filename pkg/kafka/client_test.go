package kafka

import (
	"context"
	"errors"
	"testing"

	"yourmind-go/pkg/tasks"
)

type flakyProcessor struct {
	failures int
	calls    int
}

func (p *flakyProcessor) Process(ctx context.Context, task tasks.RiskAlertTask) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("db down")
	}
	return nil
}

func TestProcessWithRetry(t *testing.T) {
	task := tasks.RiskAlertTask{MessageID: "m1", Level: "high"}
	cases := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"first try", 0, 1, false},
		{"recovers on retry", 2, 3, false},
		{"gives up after max attempts", 5, maxAttempts, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &flakyProcessor{failures: tc.failures}
			err := processWithRetry(context.Background(), nil, p, task, 0)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if p.calls != tc.wantCalls {
				t.Errorf("calls = %d, want %d", p.calls, tc.wantCalls)
			}
		})
	}
}

func TestProcessWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &flakyProcessor{failures: 10}
	if err := processWithRetry(ctx, nil, p, tasks.RiskAlertTask{MessageID: "m2"}, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}
