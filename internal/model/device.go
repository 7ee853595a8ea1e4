package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrDeviceNotFound 设备不存在
var ErrDeviceNotFound = errors.New("device not found")

// NetworkClass 设备网络分类
type NetworkClass string

const (
	NetworkClassFirewall           NetworkClass = "FIREWALL"
	NetworkClassLoadBalancer       NetworkClass = "LOADBALANCER"
	NetworkClassRouter             NetworkClass = "ROUTER"
	NetworkClassServer             NetworkClass = "SERVER"
	NetworkClassSwitch             NetworkClass = "SWITCH"
	NetworkClassSwitchRouter       NetworkClass = "SWITCHROUTER"
	NetworkClassAccessPoint        NetworkClass = "ACCESSPOINT"
	NetworkClassWirelessController NetworkClass = "WIRELESSCONTROLLER"
	NetworkClassConsoleServer      NetworkClass = "CONSOLESERVER"
	NetworkClassUnknown            NetworkClass = "UNKNOWN"
)

var networkClasses = []NetworkClass{
	NetworkClassFirewall, NetworkClassLoadBalancer, NetworkClassRouter, NetworkClassServer,
	NetworkClassSwitch, NetworkClassSwitchRouter, NetworkClassAccessPoint,
	NetworkClassWirelessController, NetworkClassConsoleServer, NetworkClassUnknown,
}

// ParseNetworkClass 按枚举名解析网络分类
func ParseNetworkClass(s string) (NetworkClass, error) {
	for _, nc := range networkClasses {
		if string(nc) == s {
			return nc, nil
		}
	}
	return "", fmt.Errorf("no network class named %q", s)
}

// Device 受管设备
// 表名：devices
// - Driver: 驱动注册名（如 cisco_ios），决定属性定义表
// - Vrfs/VirtualDevices: 去重集合，以 JSON 序列化保存
// - LastConfig: 最近一次保存的配置（可为空）
type Device struct {
	ID                uint               `json:"id" gorm:"primaryKey;autoIncrement"`
	Name              string             `json:"name" gorm:"type:varchar(128);uniqueIndex;not null"`
	Driver            string             `json:"driver" gorm:"type:varchar(64);not null"`
	ManagementAddress string             `json:"management_address" gorm:"type:varchar(64)"`
	Family            string             `json:"family" gorm:"type:varchar(128)"`
	Location          string             `json:"location" gorm:"type:varchar(256)"`
	Contact           string             `json:"contact" gorm:"type:varchar(256)"`
	SoftwareVersion   string             `json:"software_version" gorm:"type:varchar(128)"`
	SerialNumber      string             `json:"serial_number" gorm:"type:varchar(128)"`
	Comments          string             `json:"comments" gorm:"type:text"`
	NetworkClass      NetworkClass       `json:"network_class" gorm:"type:varchar(32);not null;default:'UNKNOWN'"`
	Vrfs              []string           `json:"vrfs" gorm:"serializer:json"`
	VirtualDevices    []string           `json:"virtual_devices" gorm:"serializer:json"`
	Modules           []Module           `json:"modules"`
	Interfaces        []NetworkInterface `json:"interfaces"`
	Attributes        []DeviceAttribute  `json:"attributes"`
	Diagnostics       []DiagnosticResult `json:"diagnostics"`
	LastConfigID      *uint              `json:"last_config_id"`
	LastConfig        *Configuration     `json:"last_config,omitempty" gorm:"foreignKey:LastConfigID"`
	EolModule         string             `json:"eol_module" gorm:"type:varchar(128)"`
	EosModule         string             `json:"eos_module" gorm:"type:varchar(128)"`
	EolDate           *time.Time         `json:"eol_date"`
	EosDate           *time.Time         `json:"eos_date"`
	CreatedAt         time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Device) TableName() string { return "devices" }

// AddVrf 加入 VRF（重复忽略）
func (d *Device) AddVrf(name string) {
	d.Vrfs = addUnique(d.Vrfs, name)
}

// AddVirtualDevice 加入虚拟设备（重复忽略）
func (d *Device) AddVirtualDevice(name string) {
	d.VirtualDevices = addUnique(d.VirtualDevices, name)
}

// AddAttribute 写入设备属性，同名属性被替换
func (d *Device) AddAttribute(attr DeviceAttribute) {
	for i := range d.Attributes {
		if d.Attributes[i].Name == attr.Name {
			attr.ID = d.Attributes[i].ID
			attr.DeviceID = d.Attributes[i].DeviceID
			d.Attributes[i] = attr
			return
		}
	}
	attr.DeviceID = d.ID
	d.Attributes = append(d.Attributes, attr)
}

// Attribute 按名称查找设备属性
func (d *Device) Attribute(name string) (*DeviceAttribute, bool) {
	for i := range d.Attributes {
		if d.Attributes[i].Name == name {
			return &d.Attributes[i], true
		}
	}
	return nil, false
}

// Clear 清空驱动可写的全部字段，名称、驱动、序列号与备注保持不变
func (d *Device) Clear() {
	d.Family = ""
	d.Location = ""
	d.Contact = ""
	d.SoftwareVersion = ""
	d.NetworkClass = NetworkClassUnknown
	d.Attributes = nil
	d.Vrfs = nil
	d.VirtualDevices = nil
	d.Interfaces = nil
	d.Modules = nil
	d.EolModule = ""
	d.EosModule = ""
	d.EolDate = nil
	d.EosDate = nil
}

func addUnique(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}

// Module 硬件模块
// 表名：device_modules
type Module struct {
	ID           uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID     uint   `json:"device_id" gorm:"index;not null"`
	Slot         string `json:"slot" gorm:"type:varchar(128)"`
	PartNumber   string `json:"part_number" gorm:"type:varchar(128)"`
	SerialNumber string `json:"serial_number" gorm:"type:varchar(128)"`
}

func (Module) TableName() string { return "device_modules" }

// NetworkInterface 设备接口
// 表名：network_interfaces
type NetworkInterface struct {
	ID              uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID        uint             `json:"device_id" gorm:"index;not null"`
	Name            string           `json:"name" gorm:"type:varchar(128);not null"`
	VirtualDevice   string           `json:"virtual_device" gorm:"type:varchar(128)"`
	Vrf             string           `json:"vrf" gorm:"type:varchar(128)"`
	Enabled         bool             `json:"enabled"`
	Level3          bool             `json:"level3"`
	Description     string           `json:"description" gorm:"type:text"`
	PhysicalAddress PhysicalAddress  `json:"mac" gorm:"column:mac;type:varchar(16)"`
	Addresses       []NetworkAddress `json:"addresses" gorm:"foreignKey:InterfaceID"`
}

func (NetworkInterface) TableName() string { return "network_interfaces" }

// AddAddress 追加地址（保持顺序）
func (ni *NetworkInterface) AddAddress(a NetworkAddress) {
	ni.Addresses = append(ni.Addresses, a)
}

// IPv4Addresses 按原顺序返回 IPv4 地址
func (ni *NetworkInterface) IPv4Addresses() []NetworkAddress {
	return ni.addressesOf(FamilyIPv4)
}

// IPv6Addresses 按原顺序返回 IPv6 地址
func (ni *NetworkInterface) IPv6Addresses() []NetworkAddress {
	return ni.addressesOf(FamilyIPv6)
}

func (ni *NetworkInterface) addressesOf(f AddressFamily) []NetworkAddress {
	out := make([]NetworkAddress, 0, len(ni.Addresses))
	for _, a := range ni.Addresses {
		if a.Family == f {
			out = append(out, a)
		}
	}
	return out
}

// DiagnosticResult 诊断结果（由诊断子系统写入）
// 表名：diagnostic_results
type DiagnosticResult struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID       uint      `json:"device_id" gorm:"index;not null"`
	DiagnosticName string    `json:"diagnostic_name" gorm:"type:varchar(128);not null"`
	Data           string    `json:"data" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (DiagnosticResult) TableName() string { return "diagnostic_results" }
