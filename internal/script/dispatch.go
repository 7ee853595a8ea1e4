package script

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/netsnapshot/netsnapshot/internal/model"
)

type itemGetter func(d *model.Device, schema Schema) interface{}

// builtinItems 内置字段，优先于属性与诊断结果
var builtinItems = map[string]itemGetter{
	"type": func(_ *model.Device, s Schema) interface{} {
		if s == nil {
			return nil
		}
		return s.Description()
	},
	"name":            func(d *model.Device, _ Schema) interface{} { return d.Name },
	"family":          func(d *model.Device, _ Schema) interface{} { return d.Family },
	"location":        func(d *model.Device, _ Schema) interface{} { return d.Location },
	"contact":         func(d *model.Device, _ Schema) interface{} { return d.Contact },
	"softwareVersion": func(d *model.Device, _ Schema) interface{} { return d.SoftwareVersion },
	"serialNumber":    func(d *model.Device, _ Schema) interface{} { return d.SerialNumber },
	"networkClass": func(d *model.Device, _ Schema) interface{} {
		if d.NetworkClass == "" {
			return nil
		}
		return string(d.NetworkClass)
	},
	"virtualDevices": func(d *model.Device, _ Schema) interface{} { return append([]string{}, d.VirtualDevices...) },
	"vrfs":           func(d *model.Device, _ Schema) interface{} { return append([]string{}, d.Vrfs...) },
	"modules":        func(d *model.Device, _ Schema) interface{} { return modulesOf(d) },
	"interfaces":     func(d *model.Device, _ Schema) interface{} { return interfacesOf(d) },
}

// fieldSetters 字符串值直接写入的保留键
var fieldSetters = map[string]func(d *model.Device, v string) error{
	"name":            func(d *model.Device, v string) error { d.Name = v; return nil },
	"family":          func(d *model.Device, v string) error { d.Family = v; return nil },
	"location":        func(d *model.Device, v string) error { d.Location = v; return nil },
	"contact":         func(d *model.Device, v string) error { d.Contact = v; return nil },
	"softwareVersion": func(d *model.Device, v string) error { d.SoftwareVersion = v; return nil },
	"serialNumber":    func(d *model.Device, v string) error { d.SerialNumber = v; return nil },
	"comments":        func(d *model.Device, v string) error { d.Comments = v; return nil },
	"networkClass": func(d *model.Device, v string) error {
		nc, err := model.ParseNetworkClass(v)
		if err != nil {
			return err
		}
		d.NetworkClass = nc
		return nil
	},
}

func (h *DeviceHelper) deviceItem(d *model.Device, item string) interface{} {
	schema, hasSchema := h.schema(d)
	if get, ok := builtinItems[item]; ok {
		if !hasSchema {
			schema = nil
		}
		return get(d, schema)
	}
	var defs []model.AttributeDefinition
	if hasSchema {
		defs = schema.Attributes()
	}
	for _, def := range defs {
		if !def.Checkable || (def.Name != item && def.Title != item) {
			continue
		}
		// 第一个匹配的定义即终止扫描，即使没有对应的值
		switch def.Level {
		case model.LevelConfig:
			if d.LastConfig == nil {
				return nil
			}
			if attr, ok := d.LastConfig.Attribute(def.Name); ok {
				return attr.Data()
			}
		case model.LevelDevice:
			if attr, ok := d.Attribute(def.Name); ok {
				return attr.Data()
			}
		}
		return nil
	}
	for _, result := range d.Diagnostics {
		if result.DiagnosticName != "" && result.DiagnosticName == item {
			return result.Data
		}
	}
	return nil
}

func modulesOf(d *model.Device) []map[string]string {
	modules := make([]map[string]string, 0, len(d.Modules))
	for _, m := range d.Modules {
		modules = append(modules, map[string]string{
			"slot":         m.Slot,
			"partNumber":   m.PartNumber,
			"serialNumber": m.SerialNumber,
		})
	}
	return modules
}

func interfacesOf(d *model.Device) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(d.Interfaces))
	for i := range d.Interfaces {
		ni := &d.Interfaces[i]
		ips := make([]map[string]string, 0, len(ni.Addresses))
		for _, a := range ni.IPv4Addresses() {
			ips = append(ips, map[string]string{"ip": a.IP, "mask": strconv.Itoa(a.PrefixLength), "usage": string(a.Usage)})
		}
		for _, a := range ni.IPv6Addresses() {
			ips = append(ips, map[string]string{"ipv6": a.IP, "mask": strconv.Itoa(a.PrefixLength), "usage": string(a.Usage)})
		}
		out = append(out, map[string]interface{}{
			"name":          ni.Name,
			"description":   ni.Description,
			"mac":           string(ni.PhysicalAddress),
			"virtualDevice": ni.VirtualDevice,
			"vrf":           ni.Vrf,
			"enabled":       ni.Enabled,
			"level3":        ni.Level3,
			"ip":            ips,
		})
	}
	return out
}

func (h *DeviceHelper) addText(key, value string) error {
	switch key {
	case "vrf":
		h.device.AddVrf(value)
	case "virtualDevice":
		h.device.AddVirtualDevice(value)
	}
	return nil
}

func (h *DeviceHelper) addStructured(key string, data Bindings) error {
	switch key {
	case "module":
		return h.addModule(data)
	case "networkInterface":
		return h.addInterface(data)
	}
	return nil
}

func (h *DeviceHelper) addModule(data Bindings) error {
	slot, err := optString(data, "slot", "")
	if err != nil {
		return err
	}
	part, err := optString(data, "partNumber", "")
	if err != nil {
		return err
	}
	serial, err := optString(data, "serialNumber", "")
	if err != nil {
		return err
	}
	h.device.Modules = append(h.device.Modules, model.Module{
		DeviceID:     h.device.ID,
		Slot:         slot,
		PartNumber:   part,
		SerialNumber: serial,
	})
	return nil
}

func (h *DeviceHelper) addInterface(data Bindings) error {
	name, err := ToString(data, "name")
	if err != nil {
		return err
	}
	ni := model.NetworkInterface{DeviceID: h.device.ID, Name: name}
	if ni.VirtualDevice, err = optString(data, "virtualDevice", ""); err != nil {
		return err
	}
	if ni.Vrf, err = optString(data, "vrf", ""); err != nil {
		return err
	}
	if ni.Description, err = optString(data, "description", ""); err != nil {
		return err
	}
	if ni.Enabled, err = optFlag(data, "enabled"); err != nil {
		return err
	}
	if ni.Level3, err = optFlag(data, "level3"); err != nil {
		return err
	}
	mac, err := optString(data, "mac", string(model.ZeroPhysicalAddress))
	if err != nil {
		return err
	}
	if ni.PhysicalAddress, err = model.ParsePhysicalAddress(mac); err != nil {
		return err
	}
	entries, err := addressEntries(data["ip"])
	if err != nil {
		return err
	}

	// 地址逐条构造，失败即停止；接口连同已构造的地址仍会挂到设备上
	var buildErr error
	for i, raw := range entries {
		addr, err := buildAddress(raw)
		if err != nil {
			buildErr = fmt.Errorf("ip entry %d: %w", i, err)
			break
		}
		ni.AddAddress(addr)
	}
	h.device.Interfaces = append(h.device.Interfaces, ni)
	return buildErr
}

func buildAddress(raw interface{}) (model.NetworkAddress, error) {
	entry, ok := asBindings(raw)
	if !ok {
		return model.NetworkAddress{}, invalid("ip", "the entry is not a script object")
	}
	var (
		addr model.NetworkAddress
		err  error
	)
	mask := entry["mask"]
	if v6, present := entry["ipv6"]; present && v6 != nil {
		ip, ok := v6.(string)
		if !ok {
			return addr, invalid("ipv6", "the value is not a string")
		}
		prefix, ok := asInt(mask)
		if !ok {
			return addr, invalid("mask", "the value is not an integer")
		}
		addr, err = model.NewNetwork6Address(ip, prefix)
	} else if prefix, isNum := asInt(mask); isNum {
		ip, ok := entry["ip"].(string)
		if !ok {
			return addr, invalid("ip", "the value is not a string")
		}
		addr, err = model.NewNetwork4Address(ip, prefix)
	} else {
		ip, ok := entry["ip"].(string)
		if !ok {
			return addr, invalid("ip", "the value is not a string")
		}
		dotted, ok := mask.(string)
		if !ok {
			return addr, invalid("mask", "the value is neither a prefix length nor a dotted mask")
		}
		addr, err = model.NewNetwork4AddressMask(ip, dotted)
	}
	if err != nil {
		return addr, err
	}
	if raw, present := entry["usage"]; present && raw != nil {
		tag, ok := raw.(string)
		if !ok {
			return addr, invalid("usage", "the value is not a string")
		}
		usage, err := model.ParseAddressUsage(tag)
		if err != nil {
			return addr, err
		}
		addr.Usage = usage
	}
	return addr, nil
}

// addressEntries 接受数组或以下标为键的脚本对象
func addressEntries(raw interface{}) ([]interface{}, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return x, nil
	case []Bindings:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, nil
	case []map[string]interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, nil
	}
	b, ok := asBindings(raw)
	if !ok {
		return nil, invalid("ip", "the value is not a collection")
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])
		if errI == nil && errJ == nil {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	out := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		out = append(out, b[k])
	}
	return out, nil
}

// optString 缺失或 null 时取默认值
func optString(data Bindings, key, def string) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(key, "the value is not a string")
	}
	return s, nil
}

// optFlag 缺失时为 true，显式 null 时为 false
func optFlag(data Bindings, key string) (bool, error) {
	v, ok := data[key]
	if !ok {
		return true, nil
	}
	if v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalid(key, "the value is not a boolean")
	}
	return b, nil
}
