package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/netip"
	"strings"

	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Session 借用的存储会话（由存储层按任务隔离）
type Session interface {
	LoadDeviceByID(id uint) (*model.Device, error)
	LoadDeviceByName(name string) (*model.Device, error)
	// Evict 将临时加载的设备移出会话
	Evict(device *model.Device)
}

// TaskLogger 任务可见日志
type TaskLogger interface {
	Debug(message string)
	Info(message string)
	Warn(message string)
	Error(message string)
}

// Schema 驱动的属性定义表
type Schema interface {
	Description() string
	Attributes() []model.AttributeDefinition
}

// Schemas 按驱动名查找属性定义表
type Schemas interface {
	Lookup(driver string) (Schema, bool)
}

// Resolver DNS 解析（*net.Resolver 满足该接口）
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// DeviceRef 跨设备读取时的目标设备（按 ID 或名称）
type DeviceRef struct {
	id     uint
	name   string
	byName bool
}

// DeviceID 按数值 ID 引用设备
func DeviceID(id uint) DeviceRef { return DeviceRef{id: id} }

// DeviceName 按名称引用设备
func DeviceName(name string) DeviceRef { return DeviceRef{name: name, byName: true} }

// ID 按 ID 引用时返回数值 ID
func (r DeviceRef) ID() (uint, bool) { return r.id, !r.byName }

// Name 按名称引用时的设备名
func (r DeviceRef) Name() string { return r.name }

func (r DeviceRef) String() string {
	if r.byName {
		return "named " + r.name
	}
	return fmt.Sprintf("%d", r.id)
}

// DeviceHelper 驱动与设备模型之间的唯一中介
// 每次驱动执行创建一个实例，绑定一台设备，不跨任务共享，因此不加锁
type DeviceHelper struct {
	device   *model.Device
	session  Session
	task     TaskLogger
	readOnly bool
	schemas  Schemas
	resolver Resolver
	log      *logrus.Entry
}

// Option 构造选项
type Option func(*DeviceHelper)

// WithSchemas 指定驱动属性定义来源
func WithSchemas(s Schemas) Option {
	return func(h *DeviceHelper) { h.schemas = s }
}

// WithResolver 指定 nslookup 使用的解析器
func WithResolver(r Resolver) Option {
	return func(h *DeviceHelper) { h.resolver = r }
}

// WithLogger 指定内部运维日志
func WithLogger(entry *logrus.Entry) Option {
	return func(h *DeviceHelper) { h.log = entry }
}

// NewDeviceHelper 绑定设备、会话与任务日志
func NewDeviceHelper(device *model.Device, session Session, taskLogger TaskLogger, readOnly bool, opts ...Option) *DeviceHelper {
	h := &DeviceHelper{
		device:   device,
		session:  session,
		task:     taskLogger,
		readOnly: readOnly,
		schemas:  noSchemas{},
		resolver: net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.WithField("component", "script")
	}
	return h
}

// ReadOnly 是否只读模式
func (h *DeviceHelper) ReadOnly() bool { return h.readOnly }

// Device 返回绑定的设备
func (h *DeviceHelper) Device() *model.Device { return h.device }

// Get 读取绑定设备的字段、属性或诊断结果；无匹配返回 nil
func (h *DeviceHelper) Get(item string) interface{} {
	h.log.Debugf("Script request for item %s on current device.", item)
	return h.deviceItem(h.device, item)
}

// GetOn 读取另一台设备的数据
// 目标即绑定设备时直接走内存；否则 加载 -> 提取 -> 移出会话。任何失败都返回 nil
func (h *DeviceHelper) GetOn(item string, ref DeviceRef) interface{} {
	h.log.Debugf("Script request for item %s on device %s.", item, ref)
	if h.isBound(ref) {
		return h.Get(item)
	}
	other, err := h.load(ref)
	if err == nil && other == nil {
		err = model.ErrDeviceNotFound
	}
	if err != nil {
		entry := h.log.WithError(err).WithField("device", ref.String())
		if errors.Is(err, model.ErrDeviceNotFound) {
			entry.Errorf("Device not found on script get, item %s, device %s.", item, ref)
			h.task.Warn(fmt.Sprintf("Unable to find the device %s.", ref))
		} else {
			entry.Errorf("Error on script get, item %s, device %s.", item, ref)
			h.task.Warn(fmt.Sprintf("Unable to get data %s for device %s.", item, ref))
		}
		return nil
	}
	defer h.session.Evict(other)
	return h.deviceItem(other, item)
}

func (h *DeviceHelper) isBound(ref DeviceRef) bool {
	if ref.byName {
		return h.device.Name == ref.name
	}
	return h.device.ID == ref.id
}

func (h *DeviceHelper) load(ref DeviceRef) (*model.Device, error) {
	if h.session == nil {
		return nil, errors.New("no storage session")
	}
	if ref.byName {
		return h.session.LoadDeviceByName(ref.name)
	}
	return h.session.LoadDeviceByID(ref.id)
}

// Add 向设备追加模块、接口（对象值）或 VRF、虚拟设备（字符串值）
// 构造失败时记录日志并放弃本次调用，已追加到设备上的内容不回滚
func (h *DeviceHelper) Add(key string, value Value) {
	if h.readOnly {
		h.forbid(fmt.Sprintf("Adding key '%s' is forbidden.", key), fmt.Sprintf("Adding key %s is forbidden", key))
		return
	}
	var err error
	switch value.Kind() {
	case KindNull:
		return
	case KindMap:
		err = h.addStructured(key, value.Map())
	case KindText:
		err = h.addText(key, value.Text())
	default:
		err = fmt.Errorf("unsupported %s value", value.Kind())
	}
	if err != nil {
		h.log.WithError(err).Errorf("Error during snapshot while adding device attribute key '%s'.", key)
		h.task.Error(fmt.Sprintf("Can't add device attribute %s: %v", key, err))
	}
}

// Set 设置内置字段或设备级属性
func (h *DeviceHelper) Set(key string, value Value) {
	if h.readOnly {
		h.forbid(fmt.Sprintf("Setting key '%s' is forbidden.", key), fmt.Sprintf("Setting key %s is forbidden", key))
		return
	}
	if value.IsNull() {
		return
	}
	if err := h.set(key, value); err != nil {
		h.log.WithError(err).Errorf("Error during snapshot while setting device attribute key '%s'.", key)
		h.task.Error(fmt.Sprintf("Can't set device attribute %s: %v", key, err))
	}
}

func (h *DeviceHelper) set(key string, value Value) error {
	switch value.Kind() {
	case KindMap:
		return fmt.Errorf("unsupported %s value", value.Kind())
	case KindNumber:
		if math.IsNaN(value.Number()) || math.IsInf(value.Number(), 0) {
			return &ValidationError{Key: key, Reason: fmt.Sprintf("number %v is not finite", value.Number())}
		}
	case KindText:
		if setter, ok := fieldSetters[key]; ok {
			return setter(h.device, value.Text())
		}
	}
	schema, ok := h.schema(h.device)
	if !ok {
		return fmt.Errorf("no driver %q for device %s", h.device.Driver, h.device.Name)
	}
	// 名称先匹配即停止扫描，再检查类型；类型不符直接丢弃
	for _, def := range schema.Attributes() {
		if def.Level != model.LevelDevice || def.Name != key {
			continue
		}
		switch {
		case value.Kind() == KindBool && def.Type == model.AttributeBinary:
			h.device.AddAttribute(model.DeviceAttribute{AttributeValue: model.BinaryValue(key, value.Bool())})
		case value.Kind() == KindNumber && def.Type == model.AttributeNumeric:
			h.device.AddAttribute(model.DeviceAttribute{AttributeValue: model.NumericValue(key, value.Number())})
		case value.Kind() == KindText && def.Type == model.AttributeText:
			h.device.AddAttribute(model.DeviceAttribute{AttributeValue: model.TextValue(key, value.Text())})
		case value.Kind() == KindText && def.Type == model.AttributeLongText:
			h.device.AddAttribute(model.DeviceAttribute{AttributeValue: model.LongTextValue(key, value.Text())})
		}
		return nil
	}
	return nil
}

// Reset 清空设备可变字段，供每次驱动执行从头填充
func (h *DeviceHelper) Reset() {
	if h.readOnly {
		h.forbid("Resetting device is forbidden.", "Resetting device is forbidden")
		return
	}
	h.device.Clear()
}

// Debug 仅写入任务日志
func (h *DeviceHelper) Debug(message string) {
	h.task.Debug(message)
}

// Nslookup 解析主机名或地址，失败时返回空的 name/address
func (h *DeviceHelper) Nslookup(host string) map[string]string {
	name, address := "", ""
	ctx := context.Background()
	if addr, err := netip.ParseAddr(strings.TrimSpace(host)); err == nil {
		address = addr.String()
		if names, err := h.resolver.LookupAddr(ctx, address); err == nil && len(names) > 0 {
			name = strings.TrimSuffix(names[0], ".")
		}
	} else if addrs, err := h.resolver.LookupHost(ctx, host); err == nil && len(addrs) > 0 {
		if a, err := netip.ParseAddr(addrs[0]); err == nil {
			address = a.String()
			name = host
		}
	}
	return map[string]string{"name": name, "address": address}
}

func (h *DeviceHelper) forbid(internal, visible string) {
	h.log.Warn(internal)
	h.task.Error(visible)
}

func (h *DeviceHelper) schema(d *model.Device) (Schema, bool) {
	if h.schemas == nil {
		return nil, false
	}
	return h.schemas.Lookup(d.Driver)
}

type noSchemas struct{}

func (noSchemas) Lookup(string) (Schema, bool) { return nil, false }
