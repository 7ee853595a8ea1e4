package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/netsnapshot/netsnapshot/internal/database"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
)

// TaskLogger 任务日志，驱动与桥接层写入的行先缓存，任务结束时统一落库
type TaskLogger struct {
	db     *gorm.DB
	taskID string
	log    *logrus.Entry
	mu     sync.Mutex
	lines  []model.TaskLog
}

// NewTaskLogger 创建任务日志
func NewTaskLogger(db *gorm.DB, taskID, deviceName string) *TaskLogger {
	return &TaskLogger{db: db, taskID: taskID, log: logger.ForTask(taskID, deviceName)}
}

// Debug 调试行
func (l *TaskLogger) Debug(message string) { l.append(model.TaskLogDebug, message) }

// Info 信息行
func (l *TaskLogger) Info(message string) { l.append(model.TaskLogInfo, message) }

// Warn 警告行
func (l *TaskLogger) Warn(message string) { l.append(model.TaskLogWarn, message) }

// Error 错误行，任务仍按驱动结果判定成功与否
func (l *TaskLogger) Error(message string) { l.append(model.TaskLogError, message) }

func (l *TaskLogger) append(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, model.TaskLog{
		ID:      uuid.NewString(),
		TaskID:  l.taskID,
		Level:   level,
		Message: message,
	})
	l.log.WithField("level_task", level).Trace(message)
}

// Lines 当前缓存的日志行
func (l *TaskLogger) Lines() []model.TaskLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.TaskLog, len(l.lines))
	copy(out, l.lines)
	return out
}

// HasErrors 是否记录过错误级别的行
func (l *TaskLogger) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ln := range l.lines {
		if ln.Level == model.TaskLogError {
			return true
		}
	}
	return false
}

// Flush 写入数据库
func (l *TaskLogger) Flush() error {
	lines := l.Lines()
	if len(lines) == 0 {
		return nil
	}
	err := database.TransactionWithRetry(l.db, func(tx *gorm.DB) error {
		return tx.CreateInBatches(lines, 100).Error
	}, 5, 0)
	if err != nil {
		return fmt.Errorf("save task logs: %w", err)
	}
	return nil
}
