package huawei_vrp

import (
	"context"
	_ "embed"
	"regexp"
	"strings"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

//go:embed descriptor.yaml
var descriptorYAML []byte

// Plugin 为 huawei_vrp 平台驱动（S/CE 交换机与 AR 路由器）
type Plugin struct {
	desc *driver.Descriptor
}

func New() *Plugin { return &Plugin{desc: driver.MustDescriptor(descriptorYAML)} }

func (p *Plugin) Descriptor() *driver.Descriptor { return p.desc }

// Snapshot 按命令依次解析回显
func (p *Plugin) Snapshot(ctx context.Context, h driver.Helper, out driver.Outputs) error {
	config := out.Get(p.desc.ConfigCommand)
	steps := []struct {
		command string
		parse   func(driver.Helper, string)
	}{
		{"display version", parseDisplayVersion},
		{"display esn", parseDisplayESN},
		{"display elabel brief", parseDisplayElabel},
		{p.desc.ConfigCommand, parseCurrentConfig},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := out.Get(s.command)
		if strings.TrimSpace(raw) == "" {
			h.Debug("No output for '" + s.command + "', skipped.")
			continue
		}
		s.parse(h, raw)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	parseDisplayInterface(h, out.Get("display interface"), config)
	return nil
}

var (
	reSysname    = regexp.MustCompile(`(?m)^sysname (\S+)`)
	reVpnInst    = regexp.MustCompile(`(?m)^ip vpn-instance (\S+)`)
	reIfHeader   = regexp.MustCompile(`^interface (\S+)`)
	reIfBinding  = regexp.MustCompile(`^ip binding vpn-instance (\S+)`)
	reCfgVersion = regexp.MustCompile(`(?m)^!Software Version (\S+)`)
)

// 仅处理 display current-configuration 回显
func parseCurrentConfig(h driver.Helper, raw string) {
	if v, ok := driver.FirstMatch(reSysname, raw); ok {
		h.Set("name", script.Text(v))
	}
	for _, m := range reVpnInst.FindAllStringSubmatch(raw, -1) {
		h.Add("vrf", script.Text(m[1]))
	}
}

func interfaceVrfs(config string) map[string]string {
	out := make(map[string]string)
	for name, body := range driver.Sections(config, reIfHeader) {
		for _, ln := range body {
			if m := reIfBinding.FindStringSubmatch(ln); m != nil {
				out[name] = m[1]
			}
		}
	}
	return out
}

// AnalyzeConfig 提取 CONFIG 级属性
func (p *Plugin) AnalyzeConfig(cfg *model.Configuration) {
	if v, ok := driver.FirstMatch(reCfgVersion, cfg.Content); ok {
		cfg.AddAttribute(model.TextValue("configSoftwareVersion", v))
	}
	stp := true
	for _, ln := range driver.Lines(cfg.Content) {
		if strings.TrimSpace(ln) == "stp disable" {
			stp = false
			break
		}
	}
	cfg.AddAttribute(model.BinaryValue("stpEnabled", stp))
}

var _ driver.ConfigAnalyzer = (*Plugin)(nil)

func init() { driver.Register(New()) }
