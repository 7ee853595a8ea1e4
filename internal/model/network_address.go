package model

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// AddressFamily 地址族
type AddressFamily int

const (
	FamilyIPv4 AddressFamily = 4
	FamilyIPv6 AddressFamily = 6
)

// AddressUsage 地址用途
type AddressUsage string

const (
	UsagePrimary   AddressUsage = "PRIMARY"
	UsageSecondary AddressUsage = "SECONDARY"
	UsageLoopback  AddressUsage = "LOOPBACK"
	UsageVRRP      AddressUsage = "VRRP"
	UsageHSRP      AddressUsage = "HSRP"
	UsageGLBP      AddressUsage = "GLBP"
)

var addressUsages = []AddressUsage{UsagePrimary, UsageSecondary, UsageLoopback, UsageVRRP, UsageHSRP, UsageGLBP}

// ErrInvalidAddress 地址构造失败
var ErrInvalidAddress = errors.New("invalid network address")

// ParseAddressUsage 解析用途标签（区分大小写，与驱动约定一致）
func ParseAddressUsage(s string) (AddressUsage, error) {
	for _, u := range addressUsages {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("no address usage named %q", s)
}

// NetworkAddress 接口上的三层地址
// 表名：network_addresses
type NetworkAddress struct {
	ID           uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	InterfaceID  uint          `json:"interface_id" gorm:"index;not null"`
	Family       AddressFamily `json:"family" gorm:"not null"`
	IP           string        `json:"ip" gorm:"type:varchar(64);not null"`
	PrefixLength int           `json:"prefix_length" gorm:"not null"`
	Usage        AddressUsage  `json:"usage" gorm:"type:varchar(16);not null;default:'PRIMARY'"`
}

func (NetworkAddress) TableName() string { return "network_addresses" }

// NewNetwork4Address 以前缀长度构造 IPv4 地址
func NewNetwork4Address(ip string, prefixLength int) (NetworkAddress, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is4() {
		return NetworkAddress{}, fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidAddress, ip)
	}
	if prefixLength < 0 || prefixLength > 32 {
		return NetworkAddress{}, fmt.Errorf("%w: IPv4 prefix length %d out of range", ErrInvalidAddress, prefixLength)
	}
	return NetworkAddress{Family: FamilyIPv4, IP: addr.String(), PrefixLength: prefixLength, Usage: UsagePrimary}, nil
}

// NewNetwork4AddressMask 以点分十进制掩码构造 IPv4 地址
func NewNetwork4AddressMask(ip string, mask string) (NetworkAddress, error) {
	m, err := netip.ParseAddr(strings.TrimSpace(mask))
	if err != nil || !m.Is4() {
		return NetworkAddress{}, fmt.Errorf("%w: %q is not a dotted-decimal mask", ErrInvalidAddress, mask)
	}
	b := m.As4()
	ones, bits := net.IPMask(b[:]).Size()
	if bits == 0 {
		return NetworkAddress{}, fmt.Errorf("%w: mask %q is not contiguous", ErrInvalidAddress, mask)
	}
	return NewNetwork4Address(ip, ones)
}

// NewNetwork6Address 构造 IPv6 地址
func NewNetwork6Address(ip string, prefixLength int) (NetworkAddress, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return NetworkAddress{}, fmt.Errorf("%w: %q is not an IPv6 address", ErrInvalidAddress, ip)
	}
	if prefixLength < 0 || prefixLength > 128 {
		return NetworkAddress{}, fmt.Errorf("%w: IPv6 prefix length %d out of range", ErrInvalidAddress, prefixLength)
	}
	return NetworkAddress{Family: FamilyIPv6, IP: addr.WithZone("").String(), PrefixLength: prefixLength, Usage: UsagePrimary}, nil
}

func (a NetworkAddress) String() string {
	return fmt.Sprintf("%s/%d", a.IP, a.PrefixLength)
}

// PhysicalAddress 48 位 MAC，统一以 xxxx.xxxx.xxxx 形式保存
type PhysicalAddress string

// ZeroPhysicalAddress 全零 MAC（驱动未提供时的默认值）
const ZeroPhysicalAddress PhysicalAddress = "0000.0000.0000"

// ParsePhysicalAddress 解析冒号、短横线或思科点分格式的 MAC
func ParsePhysicalAddress(s string) (PhysicalAddress, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid physical address %q: %w", s, err)
	}
	if len(hw) != 6 {
		return "", fmt.Errorf("invalid physical address %q: not a 48-bit MAC", s)
	}
	return PhysicalAddress(fmt.Sprintf("%02x%02x.%02x%02x.%02x%02x", hw[0], hw[1], hw[2], hw[3], hw[4], hw[5])), nil
}
