package entity

// 任务状态（点击推进按 NOT_STARTED → IN_PROGRESS → DONE 循环）
const (
	TaskStatusNotStarted = "NOT_STARTED"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// NextTaskStatus 返回任务状态循环中的下一个状态
func NextTaskStatus(status string) string {
	switch status {
	case TaskStatusNotStarted:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusDone
	case TaskStatusDone:
		return TaskStatusNotStarted
	default:
		return TaskStatusNotStarted
	}
}

// 风险等级
const (
	RiskLevelLow    = "LOW"
	RiskLevelMedium = "MEDIUM"
	RiskLevelHigh   = "HIGH"
)

// 会议处理状态（异步解析流水线）
const (
	MeetingStatusProcessing = "PROCESSING"
	MeetingStatusDone       = "DONE"
	MeetingStatusError      = "ERROR"
)
