package cisco_ios

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

var (
	reVersion      = regexp.MustCompile(`(?m)^Cisco IOS.*?, Version ([^ ,\r\n]+)`)
	reImage        = regexp.MustCompile(`(?m)^System image file is "([^"]+)"`)
	rePlatform     = regexp.MustCompile(`(?mi)^cisco (\S+) \(.*\) processor.*with (\d+)K(?:/(\d+)K)? bytes of memory`)
	reBoardID      = regexp.MustCompile(`(?m)^Processor board ID (\S+)`)
	reConfRegister = regexp.MustCompile(`(?m)^Configuration register is (\S+)`)
)

// 仅处理 show version 回显
func parseShowVersion(h driver.Helper, raw string) {
	if v, ok := driver.FirstMatch(reVersion, raw); ok {
		h.Set("softwareVersion", text(v))
	}
	if v, ok := driver.FirstMatch(reImage, raw); ok {
		h.Set("iosImageFile", text(v))
	}
	if m := rePlatform.FindStringSubmatch(raw); m != nil {
		h.Set("family", text(m[1]))
		h.Set("networkClass", text(string(classify(m[1]))))
		total := 0
		for _, kb := range m[2:] {
			if n, err := strconv.Atoi(kb); err == nil {
				total += n
			}
		}
		h.Set("mainMemorySize", script.Number(float64(total/1024)))
	}
	if v, ok := driver.FirstMatch(reBoardID, raw); ok {
		h.Set("serialNumber", text(v))
	}
	if v, ok := driver.FirstMatch(reConfRegister, raw); ok {
		h.Set("configRegister", text(v))
	}
}

// classify 按型号推断网络分类
func classify(platform string) model.NetworkClass {
	p := strings.ToUpper(platform)
	switch {
	case strings.HasPrefix(p, "AIR-"):
		return model.NetworkClassAccessPoint
	case strings.HasPrefix(p, "WS-C37"), strings.HasPrefix(p, "WS-C38"), strings.HasPrefix(p, "WS-C45"),
		strings.HasPrefix(p, "WS-C65"), strings.HasPrefix(p, "C93"), strings.HasPrefix(p, "C94"), strings.HasPrefix(p, "C95"):
		return model.NetworkClassSwitchRouter
	case strings.HasPrefix(p, "WS-C"), strings.HasPrefix(p, "C92"), strings.HasPrefix(p, "IE-"):
		return model.NetworkClassSwitch
	case strings.HasPrefix(p, "ISR"), strings.HasPrefix(p, "ASR"), strings.HasPrefix(p, "CSR"),
		strings.HasPrefix(p, "C8"), strings.HasPrefix(p, "CISCO"):
		return model.NetworkClassRouter
	default:
		return model.NetworkClassUnknown
	}
}
