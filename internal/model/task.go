package model

import (
	"time"
)

// Task 快照任务（一次驱动执行对应一台设备）
type Task struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DeviceID   uint      `json:"device_id" gorm:"not null;index"`
	DeviceName string    `json:"device_name" gorm:"type:varchar(128)"`
	Driver     string    `json:"driver" gorm:"type:varchar(64)"`
	Type       string    `json:"type" gorm:"type:varchar(32);not null"`
	Status     string    `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	ErrorMsg   string    `json:"error_msg" gorm:"type:text"`
	Author     string    `json:"author" gorm:"type:varchar(128)"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Duration   int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 表名
func (Task) TableName() string {
	return "tasks"
}

// TaskStatus 任务状态枚举
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusSuccess   = "success"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// TaskType 任务类型枚举
const (
	TaskTypeSnapshot = "snapshot"
)

// TaskLog 任务日志（驱动可见的日志行）
type TaskLog struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TaskID    string    `json:"task_id" gorm:"type:varchar(64);not null;index"`
	Level     string    `json:"level" gorm:"type:varchar(16);not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (TaskLog) TableName() string {
	return "task_logs"
}

// TaskLog 级别
const (
	TaskLogDebug = "debug"
	TaskLogInfo  = "info"
	TaskLogWarn  = "warn"
	TaskLogError = "error"
)
