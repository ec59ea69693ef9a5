package model

import "time"

// ExecutionRecord is one append-only ledger entry. Records are immutable
// once written; retention cleanup is a separate maintenance operation.
type ExecutionRecord struct {
	ExecutionID       string          `json:"execution_id"`
	AlertName         string          `json:"alert_name"`
	ExecutedAt        time.Time       `json:"executed_at"`
	DurationMS        int64           `json:"duration_ms"`
	Status            ExecutionStatus `json:"status"`
	ActualValue       *float64        `json:"actual_value,omitempty"`
	Threshold         *float64        `json:"threshold,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	TriggeredBy       TriggeredBy     `json:"triggered_by"`
	NotificationSent  bool            `json:"notification_sent"`
	NotificationError string          `json:"notification_error,omitempty"`
	Context           Context         `json:"context,omitempty"`
}

// ExecutionStats aggregates ledger entries for reporting
type ExecutionStats struct {
	TotalExecutions int     `json:"total_executions"`
	SuccessCount    int     `json:"success_count"`
	FailureCount    int     `json:"failure_count"`
	ErrorCount      int     `json:"error_count"`
	AvgDurationMS   float64 `json:"avg_duration_ms"`
	MinDurationMS   int64   `json:"min_duration_ms"`
	MaxDurationMS   int64   `json:"max_duration_ms"`
}

// ExecutionResult is returned to the caller of one evaluation
type ExecutionResult struct {
	AlertName        string          `json:"alert_name"`
	ExecutionID      string          `json:"execution_id,omitempty"`
	Status           ExecutionStatus `json:"status"`
	Duration         time.Duration   `json:"duration"`
	ShouldNotify     bool            `json:"should_notify"`
	NotificationSent bool            `json:"notification_sent"`
	Error            string          `json:"error,omitempty"`
	DryRun           bool            `json:"dry_run,omitempty"`
}
