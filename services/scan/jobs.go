package scan

import (
	"context"
	"fmt"

	"datagovapi/pkg/logger"
)

// RescanAllAsync launches a full-catalog rescan in the background and returns
// the tracking job ID.
func (o *Orchestrator) RescanAllAsync() string {
	jobID := GetJobMonitorService().StartJob(JobKindFullRescan, 0, "")
	go o.runJob(jobID, func(ctx context.Context) (*Summary, error) {
		return o.RescanAll(ctx, jobID)
	})
	return jobID
}

// RescanRuleAsync launches a rescan triggered by one rule change in the
// background and returns the tracking job ID.
func (o *Orchestrator) RescanRuleAsync(ruleID uint, category string) string {
	jobID := GetJobMonitorService().StartJob(JobKindRuleRescan, ruleID, category)
	go o.runJob(jobID, func(ctx context.Context) (*Summary, error) {
		return o.RescanRule(ctx, jobID, ruleID)
	})
	return jobID
}

func (o *Orchestrator) runJob(jobID string, run func(ctx context.Context) (*Summary, error)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Rescan job %s panic: %v", jobID, r)
			GetJobMonitorService().FailJob(jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	summary, err := run(context.Background())
	if err != nil {
		GetJobMonitorService().FailJob(jobID, err.Error())
		return
	}
	GetJobMonitorService().CompleteJob(jobID, summary)
}
