package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskScoreRefresh = "leads.score.refresh"

const TaskFollowUpSweep = "leads.followup.sweep"

const TaskFunnelStaleSweep = "funnel.stale.sweep"

const TaskSLACheck = "pipeline.sla.check"

const TaskPredictionRefresh = "pipeline.prediction.refresh"

type ScoreRefreshPayload struct {
	WindowHours    int `json:"windowHours"`
	PerTenantLimit int `json:"perTenantLimit"`
}

type FollowUpSweepPayload struct {
	Limit int `json:"limit"`
}

type FunnelStaleSweepPayload struct {
	IdleHours int `json:"idleHours"`
}

func NewScoreRefreshTask(payload ScoreRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskScoreRefresh, data), nil
}

func ParseScoreRefreshPayload(task *asynq.Task) (ScoreRefreshPayload, error) {
	var payload ScoreRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ScoreRefreshPayload{}, err
	}
	return payload, nil
}

func NewFollowUpSweepTask(payload FollowUpSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpSweep, data), nil
}

func ParseFollowUpSweepPayload(task *asynq.Task) (FollowUpSweepPayload, error) {
	var payload FollowUpSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpSweepPayload{}, err
	}
	return payload, nil
}

func NewFunnelStaleSweepTask(payload FunnelStaleSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFunnelStaleSweep, data), nil
}

func ParseFunnelStaleSweepPayload(task *asynq.Task) (FunnelStaleSweepPayload, error) {
	var payload FunnelStaleSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FunnelStaleSweepPayload{}, err
	}
	return payload, nil
}

func NewSLACheckTask() *asynq.Task {
	return asynq.NewTask(TaskSLACheck, nil)
}

func NewPredictionRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskPredictionRefresh, nil)
}
