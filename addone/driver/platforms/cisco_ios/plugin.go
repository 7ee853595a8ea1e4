package cisco_ios

import (
	"context"
	_ "embed"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

//go:embed descriptor.yaml
var descriptorYAML []byte

// Plugin 为 cisco_ios 平台驱动
type Plugin struct {
	desc *driver.Descriptor
}

// New 从内嵌描述构造驱动
func New() *Plugin { return &Plugin{desc: driver.MustDescriptor(descriptorYAML)} }

func (p *Plugin) Descriptor() *driver.Descriptor { return p.desc }

// Snapshot 按命令依次解析回显
func (p *Plugin) Snapshot(ctx context.Context, h driver.Helper, out driver.Outputs) error {
	config := out.Get(p.desc.ConfigCommand)
	steps := []struct {
		command string
		parse   func(h driver.Helper, raw string)
	}{
		{"show version", parseShowVersion},
		{"show inventory", parseShowInventory},
		{p.desc.ConfigCommand, parseRunningConfig},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := out.Get(s.command)
		if raw == "" {
			h.Debug("No output for '" + s.command + "', skipped.")
			continue
		}
		s.parse(h, raw)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	parseInterfaces(h, out.Get("show interfaces"), out.Get("show ipv6 interface"), config)
	return nil
}

func text(s string) script.Value { return script.Text(s) }

func init() { driver.Register(New()) }
