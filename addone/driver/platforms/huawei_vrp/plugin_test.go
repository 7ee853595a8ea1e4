package huawei_vrp

import (
	"context"
	"testing"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const displayVersion = `Huawei Versatile Routing Platform Software
VRP (R) software, Version 5.170 (S5720 V200R011C10SPC500)
Copyright (C) 2000-2018 HUAWEI TECH CO., LTD
HUAWEI S5720-28X-SI-AC Routing Switch uptime is 1 week, 2 days, 3 hours, 4 minutes
Patch Version: V200R011SPH009
`

const displayESN = `ESN of slot 0: 2102351931P0C3000154
`

const displayElabel = `Slot    BoardType          BarCode              Description
------------------------------------------------------------------------
0       S5720-28X-SI-AC    2102351931P0C3000154 S5720-28X-SI-AC(24 Ethernet 10/100/1000 ports)
PWR1    PAC-150W           2102312HMB10C3000321 150W AC Power Module
`

const displayInterface = `GigabitEthernet0/0/1 current state : UP
Line protocol current state : UP
Description:TO-CORE
Switch Port, PVID :    1, TPID : 8100(Hex), The Maximum Frame Length is 9216
IP Sending Frames' Format is PKTFMT_ETHNT_2, Hardware address is 4c1f-cc12-3456
GigabitEthernet0/0/2 current state : Administratively DOWN
Line protocol current state : DOWN
Vlanif10 current state : UP
Line protocol current state : UP
Route Port,The Maximum Transmit Unit is 1500
Internet Address is 10.10.10.1/24
Internet Address is 10.10.11.1/24 Sub
IPv6 Address is 2001:DB8:10::1/64
IP Sending Frames' Format is PKTFMT_ETHNT_2, Hardware address is 4c1f-cc12-3400
`

const currentConfig = `!Software Version V200R011C10SPC500
#
sysname ACC-SW-01
#
ip vpn-instance MGMT
 ipv4-family
#
stp disable
#
interface Vlanif10
 ip binding vpn-instance MGMT
 ip address 10.10.10.1 255.255.255.0
#
return
`

type taskLines struct{ errs []string }

func (t *taskLines) Debug(string) {}
func (t *taskLines) Info(string) {}
func (t *taskLines) Warn(string) {}
func (t *taskLines) Error(m string) { t.errs = append(t.errs, m) }

func TestSnapshot(t *testing.T) {
	p, ok := driver.Get("huawei_vrp")
	require.True(t, ok)

	dev := &model.Device{ID: 3, Name: "10.0.0.3", Driver: "huawei_vrp"}
	task := &taskLines{}
	h := script.NewDeviceHelper(dev, nil, task, false, script.WithSchemas(driver.Schemas()))
	require.NoError(t, p.Snapshot(context.Background(), h, driver.Outputs{
		"display version":               displayVersion,
		"display esn":                   displayESN,
		"display elabel brief":          displayElabel,
		"display interface":             displayInterface,
		"display current-configuration": currentConfig,
	}))
	assert.Empty(t, task.errs)

	assert.Equal(t, "ACC-SW-01", dev.Name)
	assert.Equal(t, "V200R011C10SPC500", dev.SoftwareVersion)
	assert.Equal(t, "S5720-28X-SI-AC", dev.Family)
	assert.Equal(t, "2102351931P0C3000154", dev.SerialNumber)
	assert.Equal(t, model.NetworkClassSwitchRouter, dev.NetworkClass)
	assert.Equal(t, []string{"MGMT"}, dev.Vrfs)
	assert.Equal(t, "5.170", h.Get("vrpVersion"))
	assert.Equal(t, "V200R011SPH009", h.Get("patchVersion"))
	_, ok = dev.Attribute("uptimeDays")
	assert.True(t, ok)

	require.Len(t, dev.Modules, 2)
	assert.Equal(t, "PWR1", dev.Modules[1].Slot)
	assert.Equal(t, "PAC-150W", dev.Modules[1].PartNumber)

	require.Len(t, dev.Interfaces, 3)
	gi1 := dev.Interfaces[0]
	assert.Equal(t, "TO-CORE", gi1.Description)
	assert.Equal(t, model.PhysicalAddress("4c1f.cc12.3456"), gi1.PhysicalAddress)
	assert.False(t, gi1.Level3)
	assert.True(t, gi1.Enabled)
	assert.False(t, dev.Interfaces[1].Enabled)

	vlan := dev.Interfaces[2]
	assert.Equal(t, "MGMT", vlan.Vrf)
	assert.True(t, vlan.Level3)
	require.Len(t, vlan.Addresses, 3)
	assert.Equal(t, model.UsagePrimary, vlan.Addresses[0].Usage)
	assert.Equal(t, model.UsageSecondary, vlan.Addresses[1].Usage)
	assert.Equal(t, "2001:db8:10::1", vlan.Addresses[2].IP)
}

func TestAnalyzeConfig(t *testing.T) {
	cfg := &model.Configuration{Content: currentConfig}
	New().AnalyzeConfig(cfg)

	v, ok := cfg.Attribute("configSoftwareVersion")
	require.True(t, ok)
	assert.Equal(t, "V200R011C10SPC500", v.Text)
	stp, ok := cfg.Attribute("stpEnabled")
	require.True(t, ok)
	assert.False(t, stp.Flag)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.NetworkClassRouter, classify("AR2220E", " Router"))
	assert.Equal(t, model.NetworkClassFirewall, classify("USG6650", ""))
	assert.Equal(t, model.NetworkClassSwitch, classify("S5735-L48T4S-A1", " Switch"))
	assert.Equal(t, model.NetworkClassSwitchRouter, classify("CE6881-48S6CQ", ""))
}
