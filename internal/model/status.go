package model

// CheckStatus is the outcome a check query reports for one evaluation
type CheckStatus string

const (
	CheckStatusAlert CheckStatus = "ALERT"
	CheckStatusOK    CheckStatus = "OK"
)

// AlertStatus is the lifecycle status stored per alert identity
type AlertStatus string

const (
	AlertStatusUnset AlertStatus = "unset"
	AlertStatusOK    AlertStatus = "OK"
	AlertStatusAlert AlertStatus = "ALERT"
	AlertStatusError AlertStatus = "ERROR"
)

// ExecutionStatus classifies one recorded evaluation
type ExecutionStatus string

const (
	// ExecutionStatusSuccess means the check ran and reported OK
	ExecutionStatusSuccess ExecutionStatus = "success"
	// ExecutionStatusFailure means the check ran and reported ALERT
	ExecutionStatusFailure ExecutionStatus = "failure"
	// ExecutionStatusError means the check itself could not be executed
	ExecutionStatusError ExecutionStatus = "error"
)

// TriggeredBy identifies what initiated an evaluation
type TriggeredBy string

const (
	TriggeredByManual TriggeredBy = "MANUAL"
	TriggeredByCron   TriggeredBy = "CRON"
	TriggeredByAPI    TriggeredBy = "API"
)
