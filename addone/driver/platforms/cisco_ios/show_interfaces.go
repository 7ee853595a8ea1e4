package cisco_ios

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/script"
)

var (
	reIfaceStatus = regexp.MustCompile(`^(\S+) is (administratively down|up|down|deleted)`)
	reIfaceMac    = regexp.MustCompile(`address is ([0-9a-fA-F]{4}\.[0-9a-fA-F]{4}\.[0-9a-fA-F]{4})`)
	reIfaceDescr  = regexp.MustCompile(`^\s+Description: (.*)$`)
	reIfaceIPv4   = regexp.MustCompile(`^\s+Internet address is (\d+\.\d+\.\d+\.\d+)/(\d+)`)
	reIPv6Header  = regexp.MustCompile(`^(\S+) is .*line protocol`)
	reIPv6Global  = regexp.MustCompile(`^\s+([0-9A-Fa-f:]+), subnet is [0-9A-Fa-f:]+/(\d+)`)
)

type iface struct {
	name, description, mac string
	enabled                bool
	ips                    []interface{}
}

// 处理 show interfaces 与 show ipv6 interface 回显，合并为接口列表
func parseInterfaces(h driver.Helper, raw, rawV6, config string) {
	if raw == "" {
		return
	}
	var (
		order  []string
		byName = make(map[string]*iface)
		cur    *iface
	)
	for _, ln := range driver.Lines(raw) {
		if m := reIfaceStatus.FindStringSubmatch(ln); m != nil {
			cur = &iface{name: m[1], enabled: m[2] != "administratively down"}
			byName[cur.name] = cur
			order = append(order, cur.name)
			continue
		}
		if cur == nil {
			continue
		}
		if m := reIfaceMac.FindStringSubmatch(ln); m != nil && cur.mac == "" {
			cur.mac = strings.ToLower(m[1])
		} else if m := reIfaceDescr.FindStringSubmatch(ln); m != nil {
			cur.description = strings.TrimSpace(m[1])
		} else if m := reIfaceIPv4.FindStringSubmatch(ln); m != nil {
			usage := "PRIMARY"
			if len(cur.ips) > 0 {
				usage = "SECONDARY"
			}
			cur.ips = append(cur.ips, script.Bindings{"ip": m[1], "mask": atoi(m[2]), "usage": usage})
		}
	}

	cur = nil
	for _, ln := range driver.Lines(rawV6) {
		if m := reIPv6Header.FindStringSubmatch(ln); m != nil {
			cur = byName[m[1]]
			continue
		}
		if cur == nil {
			continue
		}
		if m := reIPv6Global.FindStringSubmatch(ln); m != nil {
			cur.ips = append(cur.ips, script.Bindings{"ipv6": m[1], "mask": atoi(m[2])})
		}
	}

	vrfs := interfaceVrfs(config)
	for _, name := range order {
		ifc := byName[name]
		data := script.Bindings{
			"name":        ifc.name,
			"description": ifc.description,
			"enabled":     ifc.enabled,
			"level3":      len(ifc.ips) > 0,
			"vrf":         vrfs[ifc.name],
			"ip":          ifc.ips,
		}
		if ifc.mac != "" {
			data["mac"] = ifc.mac
		}
		h.Add("networkInterface", script.Map(data))
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
