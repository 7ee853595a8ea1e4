package driver

import (
	"context"
	"strings"

	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

// Helper 驱动可见的设备操作（由 script.DeviceHelper 实现）
type Helper interface {
	Get(item string) interface{}
	GetOn(item string, ref script.DeviceRef) interface{}
	Add(key string, value script.Value)
	Set(key string, value script.Value)
	Reset()
	Debug(message string)
	Nslookup(host string) map[string]string
	ReadOnly() bool
}

var _ Helper = (*script.DeviceHelper)(nil)

// Outputs 命令 -> 原始回显
type Outputs map[string]string

// Get 按命令取回显，忽略首尾空白与大小写差异
func (o Outputs) Get(command string) string {
	if v, ok := o[command]; ok {
		return v
	}
	want := strings.ToLower(strings.TrimSpace(command))
	for k, v := range o {
		if strings.ToLower(strings.TrimSpace(k)) == want {
			return v
		}
	}
	return ""
}

// Driver 厂商驱动
type Driver interface {
	Descriptor() *Descriptor
	// Snapshot 将采集回显写入设备；单条数据的问题由 Helper 记录，不应中断执行
	Snapshot(ctx context.Context, h Helper, out Outputs) error
}

// ConfigAnalyzer 可选接口：从运行配置中提取 CONFIG 级属性
type ConfigAnalyzer interface {
	AnalyzeConfig(cfg *model.Configuration)
}
