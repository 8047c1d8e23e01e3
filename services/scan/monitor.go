package scan

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"datagovapi/pkg/logger"
)

// Job kinds tracked by the monitor.
const (
	JobKindRuleRescan = "rule_rescan"
	JobKindFullRescan = "full_rescan"
)

// Job statuses.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Finished jobs stay visible this long before the pruning loop drops them.
const jobRetention = 24 * time.Hour

// JobInfo stores information about one background rescan.
type JobInfo struct {
	JobID        string     `json:"job_id"`
	Kind         string     `json:"kind"`
	RuleID       uint       `json:"rule_id,omitempty"`
	RuleCategory string     `json:"rule_category,omitempty"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Message      string     `json:"message"`
	Error        string     `json:"error,omitempty"`
	Summary      *Summary   `json:"summary,omitempty"`
}

// JobMonitorService tracks background rescan jobs in memory. Rescans run
// in-process so the monitor is updated directly by the orchestrator; the
// background loop only prunes finished jobs past retention.
type JobMonitorService struct {
	jobs    map[string]*JobInfo
	mu      sync.RWMutex
	seq     uint64
	stopCh  chan struct{}
	stopped bool
}

var (
	jobMonitorInstance *JobMonitorService
	jobMonitorOnce     sync.Once
)

// GetJobMonitorService returns singleton instance of JobMonitorService.
func GetJobMonitorService() *JobMonitorService {
	jobMonitorOnce.Do(func() {
		jobMonitorInstance = &JobMonitorService{
			jobs:   make(map[string]*JobInfo),
			stopCh: make(chan struct{}),
		}
		go jobMonitorInstance.startPruning()
	})
	return jobMonitorInstance
}

// StartJob registers a new running job and returns its ID.
func (jms *JobMonitorService) StartJob(kind string, ruleID uint, ruleCategory string) string {
	jms.mu.Lock()
	defer jms.mu.Unlock()

	jms.seq++
	jobID := fmt.Sprintf("scan-%d-%d", time.Now().Unix(), jms.seq)
	jms.jobs[jobID] = &JobInfo{
		JobID:        jobID,
		Kind:         kind,
		RuleID:       ruleID,
		RuleCategory: ruleCategory,
		Status:       JobRunning,
		StartTime:    time.Now(),
		Message:      "Rescan started",
	}
	logger.Infof("Added job %s to monitoring (kind=%s, rule=%s)", jobID, kind, ruleCategory)
	return jobID
}

// UpdateProgress updates a running job's progress percentage.
func (jms *JobMonitorService) UpdateProgress(jobID string, done, total int) {
	jms.mu.Lock()
	defer jms.mu.Unlock()

	job, exists := jms.jobs[jobID]
	if !exists || job.Status != JobRunning {
		return
	}
	if total > 0 {
		job.Progress = done * 100 / total
	}
	job.Message = fmt.Sprintf("Scanned %d of %d columns", done, total)
}

// CompleteJob marks a job as completed with its scan summary.
func (jms *JobMonitorService) CompleteJob(jobID string, summary *Summary) {
	jms.mu.Lock()
	defer jms.mu.Unlock()

	job, exists := jms.jobs[jobID]
	if !exists {
		logger.Warnf("Attempted to complete non-existent job %s", jobID)
		return
	}
	now := time.Now()
	job.Status = JobCompleted
	job.Progress = 100
	job.EndTime = &now
	job.Summary = summary
	job.Message = fmt.Sprintf("Rescan completed: %d columns scanned, %d flagged sensitive, %d issues opened",
		summary.ColumnsScanned, summary.FlaggedSensitive, summary.IssuesOpened)
	logger.Infof("Job %s completed: %s", jobID, job.Message)
}

// FailJob marks a job as failed.
func (jms *JobMonitorService) FailJob(jobID string, errMsg string) {
	jms.mu.Lock()
	defer jms.mu.Unlock()

	job, exists := jms.jobs[jobID]
	if !exists {
		return
	}
	now := time.Now()
	job.Status = JobFailed
	job.EndTime = &now
	job.Error = errMsg
	job.Message = "Rescan failed"
	logger.Errorf("Job %s failed: %s", jobID, errMsg)
}

// GetJob returns job information.
func (jms *JobMonitorService) GetJob(jobID string) (*JobInfo, bool) {
	jms.mu.RLock()
	defer jms.mu.RUnlock()

	job, exists := jms.jobs[jobID]
	if exists {
		// Return a copy to avoid race conditions
		jobCopy := *job
		return &jobCopy, true
	}
	return nil, false
}

// PaginatedJobsResult contains paginated jobs data with metadata.
type PaginatedJobsResult struct {
	Jobs       []JobInfo `json:"jobs"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// GetAllJobsPaginated returns paginated jobs information, newest first.
// Returns an empty jobs array when page exceeds available data.
func (jms *JobMonitorService) GetAllJobsPaginated(page, pageSize int) *PaginatedJobsResult {
	jms.mu.RLock()
	defer jms.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	// Map iteration order is undefined; sort for stable pagination across requests
	allJobs := make([]JobInfo, 0, len(jms.jobs))
	for _, job := range jms.jobs {
		allJobs = append(allJobs, *job)
	}
	sort.Slice(allJobs, func(i, j int) bool {
		if !allJobs[i].StartTime.Equal(allJobs[j].StartTime) {
			return allJobs[i].StartTime.After(allJobs[j].StartTime)
		}
		return allJobs[i].JobID > allJobs[j].JobID
	})

	total := len(allJobs)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start >= total {
		return &PaginatedJobsResult{
			Jobs:       []JobInfo{},
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		}
	}
	if end > total {
		end = total
	}

	return &PaginatedJobsResult{
		Jobs:       allJobs[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Stop stops the pruning loop.
func (jms *JobMonitorService) Stop() {
	jms.mu.Lock()
	defer jms.mu.Unlock()

	if !jms.stopped {
		close(jms.stopCh)
		jms.stopped = true
		logger.Infof("Job monitor service stopped")
	}
}

// startPruning runs the background retention loop.
func (jms *JobMonitorService) startPruning() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	logger.Infof("Job monitor service started")

	for {
		select {
		case <-jms.stopCh:
			return
		case <-ticker.C:
			jms.pruneFinished()
		}
	}
}

// pruneFinished drops finished jobs older than the retention window.
func (jms *JobMonitorService) pruneFinished() {
	jms.mu.Lock()
	defer jms.mu.Unlock()

	cutoff := time.Now().Add(-jobRetention)
	for id, job := range jms.jobs {
		if job.Status == JobRunning || job.EndTime == nil {
			continue
		}
		if job.EndTime.Before(cutoff) {
			delete(jms.jobs, id)
			logger.Debugf("Removed job %s from monitoring", id)
		}
	}
}
