package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/netsnapshot/netsnapshot/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	retryAttempts = 5
	retrySleep    = 50 * time.Millisecond
)

// Session 单个任务使用的存储会话
// 已加载的设备保存在工作集中，同一 ID 重复加载返回同一实例；Evict 将设备移出工作集
type Session struct {
	db      *gorm.DB
	mu      sync.Mutex
	working map[uint]*model.Device
}

// NewSession 基于给定连接创建会话
func NewSession(conn *gorm.DB) *Session {
	return &Session{db: conn, working: make(map[uint]*model.Device)}
}

func (s *Session) withAssociations() *gorm.DB {
	return s.db.
		Joins("LastConfig").
		Preload("Modules").
		Preload("Interfaces.Addresses").
		Preload("Attributes").
		Preload("Diagnostics")
}

// LoadDeviceByID 按 ID 加载设备并带出最近一次配置
func (s *Session) LoadDeviceByID(id uint) (*model.Device, error) {
	s.mu.Lock()
	if d, ok := s.working[id]; ok {
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()
	return s.load("devices.id = ?", id)
}

// LoadDeviceByName 按名称加载设备并带出最近一次配置
func (s *Session) LoadDeviceByName(name string) (*model.Device, error) {
	s.mu.Lock()
	for _, d := range s.working {
		if d.Name == name {
			s.mu.Unlock()
			return d, nil
		}
	}
	s.mu.Unlock()
	return s.load("devices.name = ?", name)
}

func (s *Session) load(query string, arg interface{}) (*model.Device, error) {
	var d model.Device
	if err := s.withAssociations().Where(query, arg).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("load device: %w", err)
	}
	if d.LastConfig != nil && d.LastConfig.ID == 0 {
		d.LastConfig = nil
	}
	if d.LastConfig != nil {
		if err := s.db.Where("config_id = ?", d.LastConfig.ID).Find(&d.LastConfig.Attributes).Error; err != nil {
			return nil, fmt.Errorf("load config attributes: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.working[d.ID]; ok {
		return existing, nil
	}
	s.working[d.ID] = &d
	return &d, nil
}

// Evict 将设备移出工作集，之后的修改不会被 SaveDevice 以外的途径持久化
func (s *Session) Evict(d *model.Device) {
	if d == nil {
		return
	}
	s.mu.Lock()
	if cur, ok := s.working[d.ID]; ok && cur == d {
		delete(s.working, d.ID)
	}
	s.mu.Unlock()
}

// WorkingSet 当前工作集中的设备 ID
func (s *Session) WorkingSet() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.working))
	for id := range s.working {
		ids = append(ids, id)
	}
	return ids
}

// CreateDevice 新建设备
func (s *Session) CreateDevice(d *model.Device) error {
	if d.NetworkClass == "" {
		d.NetworkClass = model.NetworkClassUnknown
	}
	return TransactionWithRetry(s.db, func(tx *gorm.DB) error {
		return tx.Omit("LastConfig").Create(d).Error
	}, retryAttempts, retrySleep)
}

// ListDevices 列出设备（不带关联）
func (s *Session) ListDevices(offset, limit int) ([]model.Device, int64, error) {
	var (
		devices []model.Device
		total   int64
	)
	if err := s.db.Model(&model.Device{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := s.db.Order("id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&devices).Error; err != nil {
		return nil, 0, err
	}
	return devices, total, nil
}

// SaveDevice 持久化驱动运行后的设备状态
// 模块、接口（含地址）与设备属性整体替换；诊断结果与配置不受影响
func (s *Session) SaveDevice(d *model.Device) error {
	return TransactionWithRetry(s.db, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(d).Error; err != nil {
			return fmt.Errorf("update device: %w", err)
		}

		var ifaceIDs []uint
		if err := tx.Model(&model.NetworkInterface{}).Where("device_id = ?", d.ID).Pluck("id", &ifaceIDs).Error; err != nil {
			return err
		}
		if len(ifaceIDs) > 0 {
			if err := tx.Where("interface_id IN ?", ifaceIDs).Delete(&model.NetworkAddress{}).Error; err != nil {
				return err
			}
		}
		for _, table := range []interface{}{&model.NetworkInterface{}, &model.Module{}, &model.DeviceAttribute{}} {
			if err := tx.Where("device_id = ?", d.ID).Delete(table).Error; err != nil {
				return err
			}
		}

		for i := range d.Modules {
			d.Modules[i].ID = 0
			d.Modules[i].DeviceID = d.ID
		}
		if len(d.Modules) > 0 {
			if err := tx.Create(&d.Modules).Error; err != nil {
				return fmt.Errorf("save modules: %w", err)
			}
		}
		for i := range d.Interfaces {
			ni := &d.Interfaces[i]
			ni.ID = 0
			ni.DeviceID = d.ID
			for j := range ni.Addresses {
				ni.Addresses[j].ID = 0
				ni.Addresses[j].InterfaceID = 0
			}
			if err := tx.Create(ni).Error; err != nil {
				return fmt.Errorf("save interface %s: %w", ni.Name, err)
			}
		}
		for i := range d.Attributes {
			d.Attributes[i].ID = 0
			d.Attributes[i].DeviceID = d.ID
		}
		if len(d.Attributes) > 0 {
			if err := tx.Create(&d.Attributes).Error; err != nil {
				return fmt.Errorf("save attributes: %w", err)
			}
		}
		return nil
	}, retryAttempts, retrySleep)
}

// AddConfiguration 保存新的配置版本并设为设备的最近配置
func (s *Session) AddConfiguration(d *model.Device, cfg *model.Configuration) error {
	cfg.DeviceID = d.ID
	if cfg.ChangeDate.IsZero() {
		cfg.ChangeDate = time.Now()
	}
	err := TransactionWithRetry(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(cfg).Error; err != nil {
			return fmt.Errorf("save configuration: %w", err)
		}
		return tx.Model(&model.Device{}).Where("id = ?", d.ID).Update("last_config_id", cfg.ID).Error
	}, retryAttempts, retrySleep)
	if err != nil {
		return err
	}
	d.LastConfigID = &cfg.ID
	d.LastConfig = cfg
	return nil
}

// AddDiagnostic 记录诊断结果，同名结果被覆盖
func (s *Session) AddDiagnostic(d *model.Device, name, data string) error {
	result := model.DiagnosticResult{DeviceID: d.ID, DiagnosticName: name, Data: data}
	err := TransactionWithRetry(s.db, func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ? AND diagnostic_name = ?", d.ID, name).Delete(&model.DiagnosticResult{}).Error; err != nil {
			return err
		}
		return tx.Create(&result).Error
	}, retryAttempts, retrySleep)
	if err != nil {
		return err
	}
	for i := range d.Diagnostics {
		if d.Diagnostics[i].DiagnosticName == name {
			d.Diagnostics[i] = result
			return nil
		}
	}
	d.Diagnostics = append(d.Diagnostics, result)
	return nil
}
