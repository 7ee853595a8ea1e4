package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/internal/database"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
	"github.com/netsnapshot/netsnapshot/internal/util"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
)

var (
	// ErrServiceNotRunning 服务未启动或已停止
	ErrServiceNotRunning = errors.New("snapshot service is not running")
	// ErrDriverNotFound 设备的驱动未注册
	ErrDriverNotFound = errors.New("driver not found")
	// ErrNoOutputs 没有可用的命令回显
	ErrNoOutputs = errors.New("no command output available")
)

// SnapshotService 快照服务
type SnapshotService struct {
	config  *config.Config
	db      *gorm.DB
	poller  Poller
	archive ArchiveWriter
	mutex   sync.RWMutex
	running bool
	tasks   map[string]context.CancelFunc
}

// SnapshotRequest 快照请求；Outputs 非空时直接使用，不再连接设备
type SnapshotRequest struct {
	DeviceID   uint              `json:"device_id"`
	DeviceName string            `json:"device_name,omitempty"`
	Outputs    map[string]string `json:"outputs,omitempty"`
	Author     string            `json:"author,omitempty"`
}

// SnapshotResult 快照结果
type SnapshotResult struct {
	TaskID     string          `json:"task_id"`
	DeviceID   uint            `json:"device_id"`
	DeviceName string          `json:"device_name"`
	Driver     string          `json:"driver"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Archived   []StoredObject  `json:"archived,omitempty"`
	Logs       []model.TaskLog `json:"logs"`
	DurationMS int64           `json:"duration_ms"`
}

// SnapshotOption 服务选项
type SnapshotOption func(*SnapshotService)

// WithPoller 替换回显采集方式
func WithPoller(p Poller) SnapshotOption {
	return func(s *SnapshotService) { s.poller = p }
}

// WithArchiveWriter 替换归档写入器，nil 表示不归档
func WithArchiveWriter(w ArchiveWriter) SnapshotOption {
	return func(s *SnapshotService) { s.archive = w }
}

// NewSnapshotService 创建快照服务
func NewSnapshotService(cfg *config.Config, db *gorm.DB, opts ...SnapshotOption) *SnapshotService {
	s := &SnapshotService{
		config:  cfg,
		db:      db,
		poller:  NewSSHPoller(cfg.SSH),
		archive: NewArchiveWriter(cfg.Storage),
		tasks:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 启动服务
func (s *SnapshotService) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return fmt.Errorf("snapshot service is already running")
	}
	s.running = true
	logger.Info("Snapshot service started")
	return nil
}

// Stop 停止服务并取消执行中的任务
func (s *SnapshotService) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.running {
		return nil
	}
	for id, cancel := range s.tasks {
		cancel()
		delete(s.tasks, id)
	}
	s.running = false
	logger.Info("Snapshot service stopped")
	return nil
}

// IsRunning 服务是否运行中
func (s *SnapshotService) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// Running 执行中的任务数
func (s *SnapshotService) Running() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.tasks)
}

func (s *SnapshotService) track(taskID string, cancel context.CancelFunc) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.running {
		return ErrServiceNotRunning
	}
	s.tasks[taskID] = cancel
	return nil
}

func (s *SnapshotService) untrack(taskID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.tasks, taskID)
}

// RunSnapshot 对一台设备执行快照
// 返回的 error 仅表示任务无法创建；驱动或采集失败体现在结果状态中
func (s *SnapshotService) RunSnapshot(ctx context.Context, req SnapshotRequest) (*SnapshotResult, error) {
	started := time.Now()
	task := &model.Task{
		ID:        uuid.NewString(),
		Type:      model.TaskTypeSnapshot,
		Status:    model.TaskStatusRunning,
		Author:    req.Author,
		StartTime: started,
	}
	if task.Author == "" {
		task.Author = s.config.Snapshot.Author
	}

	var cancel context.CancelFunc
	if s.config.Snapshot.TaskTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.config.Snapshot.TaskTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	if err := s.track(task.ID, cancel); err != nil {
		return nil, err
	}
	defer s.untrack(task.ID)

	session := database.NewSession(s.db)
	device, err := s.loadDevice(session, req)
	if err != nil {
		return nil, err
	}
	task.DeviceID = device.ID
	task.DeviceName = device.Name
	task.Driver = device.Driver
	if err := s.db.Create(task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	log := logger.ForTask(task.ID, device.Name)
	taskLog := NewTaskLogger(s.db, task.ID, device.Name)
	result := &SnapshotResult{TaskID: task.ID, DeviceID: device.ID, DeviceName: device.Name, Driver: device.Driver}

	log.Infof("Starting snapshot with driver %s", device.Driver)
	runErr := s.execute(ctx, session, device, task, taskLog, req, result)

	task.EndTime = time.Now()
	task.Duration = task.EndTime.Sub(started).Milliseconds()
	switch {
	case runErr == nil:
		task.Status = model.TaskStatusSuccess
		if taskLog.HasErrors() {
			taskLog.Warn("Snapshot finished with errors.")
		} else {
			taskLog.Info("Snapshot finished.")
		}
	case errors.Is(runErr, context.Canceled):
		task.Status = model.TaskStatusCancelled
		task.ErrorMsg = runErr.Error()
		taskLog.Warn("Snapshot cancelled.")
	default:
		task.Status = model.TaskStatusFailed
		task.ErrorMsg = runErr.Error()
		taskLog.Error(fmt.Sprintf("Snapshot failed: %v", runErr))
	}

	if err := taskLog.Flush(); err != nil {
		log.WithError(err).Error("Failed to save task logs")
	}
	if err := database.TransactionWithRetry(s.db, func(tx *gorm.DB) error {
		return tx.Save(task).Error
	}, 5, 0); err != nil {
		log.WithError(err).Error("Failed to update task")
	}

	result.Status = task.Status
	result.Error = task.ErrorMsg
	result.Logs = taskLog.Lines()
	result.DurationMS = task.Duration
	log.WithField("status", task.Status).Infof("Snapshot completed in %dms", task.Duration)
	return result, nil
}

func (s *SnapshotService) loadDevice(session *database.Session, req SnapshotRequest) (*model.Device, error) {
	if req.DeviceID != 0 {
		return session.LoadDeviceByID(req.DeviceID)
	}
	if req.DeviceName != "" {
		return session.LoadDeviceByName(req.DeviceName)
	}
	return nil, fmt.Errorf("device_id or device_name is required")
}

func (s *SnapshotService) execute(ctx context.Context, session *database.Session, device *model.Device,
	task *model.Task, taskLog *TaskLogger, req SnapshotRequest, result *SnapshotResult) error {
	drv, ok := driver.Get(device.Driver)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDriverNotFound, device.Driver)
	}
	desc := drv.Descriptor()

	outputs, err := s.collect(ctx, device, desc, req)
	if err != nil {
		return err
	}
	result.Archived = s.archiveOutputs(ctx, task, device, outputs, taskLog)

	if content := outputs.Get(desc.ConfigCommand); desc.ConfigCommand != "" && content != "" {
		cfg := &model.Configuration{Content: content, Author: task.Author, ChangeDate: task.StartTime}
		if analyzer, ok := drv.(driver.ConfigAnalyzer); ok {
			if err := contain(func() error { analyzer.AnalyzeConfig(cfg); return nil }); err != nil {
				taskLog.Error(fmt.Sprintf("Unable to analyze the configuration: %v", err))
			}
		}
		if err := session.AddConfiguration(device, cfg); err != nil {
			return fmt.Errorf("save configuration: %w", err)
		}
	}

	helper := script.NewDeviceHelper(device, session, taskLog, false,
		script.WithSchemas(driver.Schemas()),
		script.WithLogger(logger.ForTask(task.ID, device.Name)))
	helper.Reset()
	if err := contain(func() error { return drv.Snapshot(ctx, helper, outputs) }); err != nil {
		return fmt.Errorf("driver %s: %w", desc.Name, err)
	}

	if err := session.SaveDevice(device); err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

// collect 获取回显：请求携带的优先，否则经 SSH 轮询；统一编码与换行
func (s *SnapshotService) collect(ctx context.Context, device *model.Device, desc *driver.Descriptor, req SnapshotRequest) (driver.Outputs, error) {
	raw := make(map[string][]byte)
	if len(req.Outputs) > 0 {
		for cmd, out := range req.Outputs {
			raw[cmd] = []byte(out)
		}
	} else {
		if s.poller == nil {
			return nil, ErrNoOutputs
		}
		polled, err := s.poller.Poll(ctx, device, desc.PollCommands())
		if err != nil && len(polled) == 0 {
			return nil, fmt.Errorf("poll device: %w", err)
		}
		if err != nil {
			logger.WithField("device", device.Name).WithError(err).Warn("Polling ended early, continuing with partial outputs")
		}
		raw = polled
	}
	if len(raw) == 0 {
		return nil, ErrNoOutputs
	}
	outputs := make(driver.Outputs, len(raw))
	for cmd, b := range raw {
		outputs[cmd] = util.NormalizeOutput(b)
	}
	return outputs, nil
}

func (s *SnapshotService) archiveOutputs(ctx context.Context, task *model.Task, device *model.Device,
	outputs driver.Outputs, taskLog *TaskLogger) []StoredObject {
	if s.archive == nil {
		return nil
	}
	commands := make([]string, 0, len(outputs))
	for cmd := range outputs {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)

	stored := make([]StoredObject, 0, len(commands))
	for _, cmd := range commands {
		meta := ArchiveMeta{TaskID: task.ID, DeviceName: device.Name, Command: cmd, StartedAt: task.StartTime}
		obj, err := s.archive.Write(ctx, meta, outputs[cmd])
		if err != nil {
			taskLog.Warn(fmt.Sprintf("Unable to archive the output of '%s': %v", cmd, err))
			continue
		}
		stored = append(stored, obj)
	}
	return stored
}

// contain 执行驱动代码，panic 转换为错误
func contain(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Driver panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// BatchRequest 批量快照请求
type BatchRequest struct {
	DeviceIDs []uint `json:"device_ids"`
	Author    string `json:"author,omitempty"`
}

// RunBatch 并发执行多台设备的快照，单台失败不影响其它设备
func (s *SnapshotService) RunBatch(ctx context.Context, req BatchRequest) ([]*SnapshotResult, error) {
	if !s.IsRunning() {
		return nil, ErrServiceNotRunning
	}
	results := make([]*SnapshotResult, len(req.DeviceIDs))
	g, gctx := errgroup.WithContext(ctx)
	if n := s.config.Snapshot.Concurrent; n > 0 {
		g.SetLimit(n)
	}
	for i, id := range req.DeviceIDs {
		i, id := i, id
		g.Go(func() error {
			res, err := s.RunSnapshot(gctx, SnapshotRequest{DeviceID: id, Author: req.Author})
			if err != nil {
				res = &SnapshotResult{DeviceID: id, Status: model.TaskStatusFailed, Error: err.Error()}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Inspect 只读读取设备数据项
func (s *SnapshotService) Inspect(ctx context.Context, ref script.DeviceRef, item string) (interface{}, []model.TaskLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	session := database.NewSession(s.db)
	var (
		device *model.Device
		err    error
	)
	if id, ok := ref.ID(); ok {
		device, err = session.LoadDeviceByID(id)
	} else {
		device, err = session.LoadDeviceByName(ref.Name())
	}
	if err != nil {
		return nil, nil, err
	}
	taskLog := NewTaskLogger(s.db, "inspect", device.Name)
	helper := script.NewDeviceHelper(device, session, taskLog, true, script.WithSchemas(driver.Schemas()))
	return helper.Get(item), taskLog.Lines(), nil
}
