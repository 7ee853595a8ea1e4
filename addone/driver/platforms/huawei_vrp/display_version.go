package huawei_vrp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

var (
	reVrp    = regexp.MustCompile(`Version (\S+) \((?:\S+ )?(V\d+R\d+\S*)\)`)
	reUptime = regexp.MustCompile(`(?m)^(?:HUAWEI|Huawei) (\S+)(.*?) uptime is (\d+) weeks?, (\d+) days?`)
	rePatch  = regexp.MustCompile(`(?m)^Patch Version\s*:\s*(\S+)`)
	reESN    = regexp.MustCompile(`ESN of [^:]+:\s*(\S+)`)
)

// 仅处理 display version 回显
func parseDisplayVersion(h driver.Helper, raw string) {
	if m := reVrp.FindStringSubmatch(raw); m != nil {
		h.Set("vrpVersion", script.Text(m[1]))
		h.Set("softwareVersion", script.Text(m[2]))
	}
	if m := reUptime.FindStringSubmatch(raw); m != nil {
		h.Set("family", script.Text(m[1]))
		h.Set("networkClass", script.Text(string(classify(m[1], m[2]))))
		weeks, _ := strconv.Atoi(m[3])
		days, _ := strconv.Atoi(m[4])
		h.Set("uptimeDays", script.Number(float64(weeks*7+days)))
	}
	if v, ok := driver.FirstMatch(rePatch, raw); ok {
		h.Set("patchVersion", script.Text(v))
	}
}

// 仅处理 display esn 回显，取第一块主控的 ESN
func parseDisplayESN(h driver.Helper, raw string) {
	if v, ok := driver.FirstMatch(reESN, raw); ok {
		h.Set("serialNumber", script.Text(v))
	}
}

// 仅处理 display elabel brief 回显：Slot BoardType BarCode Description
func parseDisplayElabel(h driver.Helper, raw string) {
	for _, ln := range driver.Lines(raw) {
		fields := strings.Fields(ln)
		if len(fields) < 3 || strings.EqualFold(fields[0], "slot") || strings.HasPrefix(fields[0], "-") {
			continue
		}
		h.Add("module", script.Map(script.Bindings{
			"slot":         fields[0],
			"partNumber":   fields[1],
			"serialNumber": fields[2],
		}))
	}
}

// classify 按型号与描述推断网络分类
func classify(platform, label string) model.NetworkClass {
	p := strings.ToUpper(platform)
	l := strings.ToLower(label)
	switch {
	case strings.HasPrefix(p, "USG"), strings.HasPrefix(p, "EUDEMON"):
		return model.NetworkClassFirewall
	case strings.HasPrefix(p, "AC6"):
		return model.NetworkClassWirelessController
	case strings.HasPrefix(p, "AP"), strings.HasPrefix(p, "AIRENGINE"):
		return model.NetworkClassAccessPoint
	case strings.Contains(l, "routing switch"), strings.HasPrefix(p, "CE"):
		return model.NetworkClassSwitchRouter
	case strings.Contains(l, "switch"), strings.HasPrefix(p, "S"):
		return model.NetworkClassSwitch
	case strings.Contains(l, "router"), strings.HasPrefix(p, "AR"), strings.HasPrefix(p, "NE"):
		return model.NetworkClassRouter
	default:
		return model.NetworkClassUnknown
	}
}
