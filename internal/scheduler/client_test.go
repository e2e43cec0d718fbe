package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "crm" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestClientEnqueuesSweepTasks(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueScoreRefresh(ctx, ScoreRefreshPayload{WindowHours: 24}); err != nil {
		t.Fatalf("enqueue score refresh: %v", err)
	}
	if err := client.EnqueueSLACheck(ctx); err != nil {
		t.Fatalf("enqueue sla check: %v", err)
	}

	opt, err := redisClientOpt("redis://"+mr.Addr(), false)
	if err != nil {
		t.Fatalf("redis opt: %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("crm")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending tasks = %d, want 2", len(pending))
	}

	seen := map[string]bool{}
	for _, task := range pending {
		seen[task.Type] = true
	}
	if !seen[TaskScoreRefresh] || !seen[TaskSLACheck] {
		t.Fatalf("unexpected pending task types: %v", seen)
	}
}

func TestScoreRefreshPayloadRoundTrip(t *testing.T) {
	task, err := NewScoreRefreshTask(ScoreRefreshPayload{WindowHours: 48, PerTenantLimit: 50})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskScoreRefresh {
		t.Fatalf("task type = %s", task.Type())
	}

	payload, err := ParseScoreRefreshPayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.WindowHours != 48 || payload.PerTenantLimit != 50 {
		t.Fatalf("payload = %+v", payload)
	}
}
