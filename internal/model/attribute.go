package model

import "time"

// AttributeType 属性值类型
type AttributeType string

const (
	AttributeText     AttributeType = "TEXT"
	AttributeLongText AttributeType = "LONGTEXT"
	AttributeNumeric  AttributeType = "NUMERIC"
	AttributeBinary   AttributeType = "BINARY"
)

// AttributeLevel 属性作用域
type AttributeLevel string

const (
	LevelDevice AttributeLevel = "DEVICE"
	LevelConfig AttributeLevel = "CONFIG"
)

// AttributeValue 设备属性与配置属性共用的取值部分
// 只有与 Type 对应的一列有效
type AttributeValue struct {
	Name   string        `json:"name" gorm:"type:varchar(128);not null"`
	Type   AttributeType `json:"type" gorm:"type:varchar(16);not null"`
	Number float64       `json:"number,omitempty"`
	Text   string        `json:"text,omitempty" gorm:"type:text"`
	Flag   bool          `json:"flag,omitempty"`
}

// Data 返回与类型对应的具体值
func (v AttributeValue) Data() interface{} {
	switch v.Type {
	case AttributeNumeric:
		return v.Number
	case AttributeBinary:
		return v.Flag
	case AttributeText, AttributeLongText:
		return v.Text
	default:
		return nil
	}
}

// NumericValue 数值型属性值
func NumericValue(name string, n float64) AttributeValue {
	return AttributeValue{Name: name, Type: AttributeNumeric, Number: n}
}

// TextValue 短文本属性值
func TextValue(name string, s string) AttributeValue {
	return AttributeValue{Name: name, Type: AttributeText, Text: s}
}

// LongTextValue 长文本属性值
func LongTextValue(name string, s string) AttributeValue {
	return AttributeValue{Name: name, Type: AttributeLongText, Text: s}
}

// BinaryValue 开关型属性值
func BinaryValue(name string, b bool) AttributeValue {
	return AttributeValue{Name: name, Type: AttributeBinary, Flag: b}
}

// DeviceAttribute 设备级属性
// 表名：device_attributes，同一设备内名称唯一（由 Device.AddAttribute 保证）
type DeviceAttribute struct {
	ID             uint `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID       uint `json:"device_id" gorm:"index;not null"`
	AttributeValue `gorm:"embedded"`
}

func (DeviceAttribute) TableName() string { return "device_attributes" }

// ConfigAttribute 配置级属性
// 表名：config_attributes，同一配置内名称唯一
type ConfigAttribute struct {
	ID             uint `json:"id" gorm:"primaryKey;autoIncrement"`
	ConfigID       uint `json:"config_id" gorm:"index;not null"`
	AttributeValue `gorm:"embedded"`
}

func (ConfigAttribute) TableName() string { return "config_attributes" }

// Configuration 设备配置版本
// 表名：configurations
type Configuration struct {
	ID         uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID   uint              `json:"device_id" gorm:"index;not null"`
	Content    string            `json:"content" gorm:"type:text"`
	Author     string            `json:"author" gorm:"type:varchar(128)"`
	ChangeDate time.Time         `json:"change_date"`
	Attributes []ConfigAttribute `json:"attributes" gorm:"foreignKey:ConfigID"`
	CreatedAt  time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

func (Configuration) TableName() string { return "configurations" }

// Attribute 按名称查找配置属性
func (c *Configuration) Attribute(name string) (*ConfigAttribute, bool) {
	for i := range c.Attributes {
		if c.Attributes[i].Name == name {
			return &c.Attributes[i], true
		}
	}
	return nil, false
}

// AddAttribute 写入配置属性，同名替换
func (c *Configuration) AddAttribute(v AttributeValue) {
	for i := range c.Attributes {
		if c.Attributes[i].Name == v.Name {
			c.Attributes[i].AttributeValue = v
			return
		}
	}
	c.Attributes = append(c.Attributes, ConfigAttribute{ConfigID: c.ID, AttributeValue: v})
}

// AttributeDefinition 驱动声明的属性定义（静态，运行期不可变）
type AttributeDefinition struct {
	Name      string         `json:"name" yaml:"name"`
	Title     string         `json:"title" yaml:"title"`
	Level     AttributeLevel `json:"level" yaml:"level"`
	Type      AttributeType  `json:"type" yaml:"type"`
	Checkable bool           `json:"checkable" yaml:"checkable"`
}
