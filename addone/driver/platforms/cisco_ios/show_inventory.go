package cisco_ios

import (
	"regexp"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

var (
	reInvName = regexp.MustCompile(`^NAME: "([^"]*)"`)
	reInvPID  = regexp.MustCompile(`^PID: ?(\S*)\s*, VID:.*, SN: ?(\S*)`)
)

// 仅处理 show inventory 回显：NAME 行与紧随其后的 PID 行组成一个模块
func parseShowInventory(h driver.Helper, raw string) {
	slot := ""
	for _, ln := range driver.Lines(raw) {
		if m := reInvName.FindStringSubmatch(ln); m != nil {
			slot = m[1]
			continue
		}
		m := reInvPID.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		h.Add("module", script.Map(script.Bindings{
			"slot":         slot,
			"partNumber":   m[1],
			"serialNumber": m[2],
		}))
		slot = ""
	}
}
