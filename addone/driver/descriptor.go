package driver

import (
	"fmt"
	"strings"

	"github.com/netsnapshot/netsnapshot/internal/model"
	"gopkg.in/yaml.v3"
)

// Descriptor 驱动描述（随平台包以 YAML 内嵌）
type Descriptor struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Vendor      string `yaml:"vendor" json:"vendor"`
	Version     string `yaml:"version" json:"version"`
	// ConfigCommand 取运行配置的命令；为空表示该驱动不保存配置版本
	ConfigCommand string                      `yaml:"config_command" json:"config_command"`
	Commands      []string                    `yaml:"commands" json:"commands"`
	Attributes    []model.AttributeDefinition `yaml:"attributes" json:"attributes"`
}

// ParseDescriptor 解析并校验 YAML 描述
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse driver descriptor: %w", err)
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return nil, fmt.Errorf("driver descriptor has no name")
	}
	for i, a := range d.Attributes {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("driver %s: attribute %d has no name", d.Name, i)
		}
		switch a.Level {
		case model.LevelDevice, model.LevelConfig:
		default:
			return nil, fmt.Errorf("driver %s: attribute %s has invalid level %q", d.Name, a.Name, a.Level)
		}
		switch a.Type {
		case model.AttributeText, model.AttributeLongText, model.AttributeNumeric, model.AttributeBinary:
		default:
			return nil, fmt.Errorf("driver %s: attribute %s has invalid type %q", d.Name, a.Name, a.Type)
		}
	}
	return &d, nil
}

// MustDescriptor 供平台包 init 使用，描述错误直接 panic
func MustDescriptor(data []byte) *Descriptor {
	d, err := ParseDescriptor(data)
	if err != nil {
		panic(err)
	}
	return d
}

// PollCommands 需要在设备上执行的全部命令（配置命令排在最前，去重）
func (d *Descriptor) PollCommands() []string {
	out := make([]string, 0, len(d.Commands)+1)
	seen := make(map[string]struct{})
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	add(d.ConfigCommand)
	for _, c := range d.Commands {
		add(c)
	}
	return out
}

// schema 将描述适配为脚本层的属性定义表
type schema struct{ d *Descriptor }

func (s schema) Description() string { return s.d.Description }
func (s schema) Attributes() []model.AttributeDefinition { return s.d.Attributes }
