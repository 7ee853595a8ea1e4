package cisco_ios

import (
	"regexp"
	"strings"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/model"
)

var (
	reHostname    = regexp.MustCompile(`(?m)^hostname (\S+)`)
	reVrfDef      = regexp.MustCompile(`(?m)^(?:vrf definition|ip vrf) (\S+)`)
	reIfaceHeader = regexp.MustCompile(`^interface (\S+)`)
	reIfaceVrf    = regexp.MustCompile(`^(?:ip )?vrf forwarding (\S+)`)
	reIOSVersion  = regexp.MustCompile(`(?m)^version (\S+)`)
	reBannerMotd  = regexp.MustCompile(`(?s)\nbanner motd \^C(.*?)\^C`)
)

// 仅处理 show running-config 回显
func parseRunningConfig(h driver.Helper, raw string) {
	if v, ok := driver.FirstMatch(reHostname, raw); ok {
		h.Set("name", text(v))
	}
	for _, m := range reVrfDef.FindAllStringSubmatch(raw, -1) {
		h.Add("vrf", text(m[1]))
	}
}

// interfaceVrfs 接口名 -> VRF
func interfaceVrfs(config string) map[string]string {
	out := make(map[string]string)
	for name, body := range driver.Sections(config, reIfaceHeader) {
		for _, ln := range body {
			if m := reIfaceVrf.FindStringSubmatch(ln); m != nil {
				out[name] = m[1]
			}
		}
	}
	return out
}

// AnalyzeConfig 提取 CONFIG 级属性
func (p *Plugin) AnalyzeConfig(cfg *model.Configuration) {
	content := cfg.Content
	if v, ok := driver.FirstMatch(reIOSVersion, content); ok {
		cfg.AddAttribute(model.TextValue("iosVersion", v))
	}
	encrypted := false
	for _, ln := range driver.Lines(content) {
		if strings.TrimSpace(ln) == "service password-encryption" {
			encrypted = true
			break
		}
	}
	cfg.AddAttribute(model.BinaryValue("passwordEncryption", encrypted))
	if m := reBannerMotd.FindStringSubmatch(content); m != nil {
		cfg.AddAttribute(model.LongTextValue("bannerMotd", strings.TrimSpace(m[1])))
	}
}

var _ driver.ConfigAnalyzer = (*Plugin)(nil)
