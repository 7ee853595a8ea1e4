package huawei_vrp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

var (
	reIfState = regexp.MustCompile(`^(\S+) current state : (.+)$`)
	reIfDescr = regexp.MustCompile(`^Description\s*:\s*(.*)$`)
	reIfIPv4  = regexp.MustCompile(`^Internet Address is (\d+\.\d+\.\d+\.\d+)/(\d+)(.*)$`)
	reIfIPv6  = regexp.MustCompile(`(?i)^\s*IPv6 Address is ([0-9a-f:]+)/(\d+)`)
	reIfMac   = regexp.MustCompile(`(?i)Hardware address is ([0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4})`)
	reIfL2    = regexp.MustCompile(`^Switch Port`)
)

// 仅处理 display interface 回显
func parseDisplayInterface(h driver.Helper, raw, config string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	vrfs := interfaceVrfs(config)
	var cur script.Bindings
	var ips []interface{}
	flush := func() {
		if cur == nil {
			return
		}
		cur["ip"] = ips
		if _, set := cur["level3"]; !set {
			cur["level3"] = len(ips) > 0
		}
		h.Add("networkInterface", script.Map(cur))
		cur, ips = nil, nil
	}
	for _, ln := range driver.Lines(raw) {
		ln = strings.TrimRight(ln, " ")
		if m := reIfState.FindStringSubmatch(ln); m != nil {
			flush()
			cur = script.Bindings{
				"name":    m[1],
				"enabled": !strings.HasPrefix(strings.ToLower(m[2]), "administratively"),
				"vrf":     vrfs[m[1]],
			}
			continue
		}
		if cur == nil {
			continue
		}
		switch {
		case reIfDescr.MatchString(ln):
			cur["description"] = strings.TrimSpace(reIfDescr.FindStringSubmatch(ln)[1])
		case reIfIPv4.MatchString(ln):
			m := reIfIPv4.FindStringSubmatch(ln)
			prefix, _ := strconv.Atoi(m[2])
			usage := "PRIMARY"
			if strings.Contains(m[3], "Sub") {
				usage = "SECONDARY"
			}
			ips = append(ips, script.Bindings{"ip": m[1], "mask": prefix, "usage": usage})
		case reIfIPv6.MatchString(ln):
			m := reIfIPv6.FindStringSubmatch(ln)
			prefix, _ := strconv.Atoi(m[2])
			ips = append(ips, script.Bindings{"ipv6": m[1], "mask": prefix})
		case reIfL2.MatchString(ln):
			cur["level3"] = false
		}
		if m := reIfMac.FindStringSubmatch(ln); m != nil {
			cur["mac"] = strings.ReplaceAll(m[1], "-", ".")
		}
	}
	flush()
}
