package cisco_ios

import (
	"context"
	"testing"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const showVersion = `Cisco IOS XE Software, Version 17.03.04a
Cisco IOS Software [Amsterdam], ISR Software (X86_64_LINUX_IOSD-UNIVERSALK9-M), Version 17.3.4a, RELEASE SOFTWARE (fc3)
ROM: IOS-XE ROMMON
core-rt1 uptime is 12 weeks, 3 days, 4 hours, 5 minutes
System image file is "bootflash:isr4400-universalk9.17.03.04a.SPA.bin"
cisco ISR4451-X/K9 (2RU) processor with 1795979K/6147K bytes of memory.
Processor board ID FOC12345ABC
Configuration register is 0x2102
`

const showInventory = `NAME: "Chassis", DESCR: "Cisco ISR4451 Chassis"
PID: ISR4451-X/K9      , VID: V04  , SN: FOC12345ABC

NAME: "Power Supply Module 0", DESCR: "450W AC Power Supply for Cisco ISR 4450, ISR 4350"
PID: XXX-XXXX-XX       , VID: XXX  , SN: PST1234567
`

const showInterfaces = `GigabitEthernet0/0/0 is up, line protocol is up
  Hardware is ISR4451-X-4x1GE, address is 0c27.24cf.aa00 (bia 0c27.24cf.aa00)
  Description: WAN uplink
  Internet address is 198.51.100.2/30
  MTU 1500 bytes, BW 1000000 Kbit/sec, DLY 10 usec,
GigabitEthernet0/0/1 is administratively down, line protocol is down
  Hardware is ISR4451-X-4x1GE, address is 0c27.24cf.aa01 (bia 0c27.24cf.aa01)
Loopback0 is up, line protocol is up
  Hardware is Loopback
  Internet address is 10.255.0.1/32
`

const showIPv6 = `GigabitEthernet0/0/0 is up, line protocol is up
  IPv6 is enabled, link-local address is FE80::E27:24FF:FECF:AA00
  Global unicast address(es):
    2001:DB8:0:1::2, subnet is 2001:DB8:0:1::/64
`

const runningConfig = `Building configuration...

version 17.3
service password-encryption
hostname core-rt1
!
vrf definition MGMT
 address-family ipv4
!
interface GigabitEthernet0/0/0
 description WAN uplink
 ip address 198.51.100.2 255.255.255.252
!
interface GigabitEthernet0/0/1
 vrf forwarding MGMT
 shutdown
!
banner motd ^C
Authorized access only
^C
end
`

type taskLines struct{ errs []string }

func (t *taskLines) Debug(string) {}
func (t *taskLines) Info(string) {}
func (t *taskLines) Warn(string) {}
func (t *taskLines) Error(m string) { t.errs = append(t.errs, m) }

func TestSnapshot(t *testing.T) {
	p, ok := driver.Get("cisco_ios")
	require.True(t, ok)

	dev := &model.Device{ID: 1, Name: "10.0.0.1", Driver: "cisco_ios"}
	task := &taskLines{}
	h := script.NewDeviceHelper(dev, nil, task, false, script.WithSchemas(driver.Schemas()))
	err := p.Snapshot(context.Background(), h, driver.Outputs{
		"show version":        showVersion,
		"show inventory":      showInventory,
		"show interfaces":     showInterfaces,
		"show ipv6 interface": showIPv6,
		"show running-config": runningConfig,
	})
	require.NoError(t, err)
	assert.Empty(t, task.errs)

	assert.Equal(t, "core-rt1", dev.Name)
	assert.Equal(t, "17.03.04a", dev.SoftwareVersion)
	assert.Equal(t, "ISR4451-X/K9", dev.Family)
	assert.Equal(t, "FOC12345ABC", dev.SerialNumber)
	assert.Equal(t, model.NetworkClassRouter, dev.NetworkClass)
	assert.Equal(t, []string{"MGMT"}, dev.Vrfs)
	assert.Equal(t, "bootflash:isr4400-universalk9.17.03.04a.SPA.bin", h.Get("iosImageFile"))
	assert.Equal(t, float64(1759), h.Get("mainMemorySize"))
	assert.Equal(t, "0x2102", h.Get("configRegister"))

	require.Len(t, dev.Modules, 2)
	assert.Equal(t, "Chassis", dev.Modules[0].Slot)
	assert.Equal(t, "PST1234567", dev.Modules[1].SerialNumber)

	require.Len(t, dev.Interfaces, 3)
	wan := dev.Interfaces[0]
	assert.Equal(t, "WAN uplink", wan.Description)
	assert.Equal(t, model.PhysicalAddress("0c27.24cf.aa00"), wan.PhysicalAddress)
	assert.True(t, wan.Enabled)
	require.Len(t, wan.Addresses, 2)
	assert.Equal(t, 30, wan.Addresses[0].PrefixLength)
	assert.Equal(t, "2001:db8:0:1::2", wan.Addresses[1].IP)

	down := dev.Interfaces[1]
	assert.False(t, down.Enabled)
	assert.False(t, down.Level3)
	assert.Equal(t, "MGMT", down.Vrf)

	loop := dev.Interfaces[2]
	assert.Equal(t, model.ZeroPhysicalAddress, loop.PhysicalAddress)
	assert.Equal(t, "10.255.0.1", loop.Addresses[0].IP)
}

func TestSnapshotCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dev := &model.Device{Name: "r1", Driver: "cisco_ios"}
	h := script.NewDeviceHelper(dev, nil, &taskLines{}, false, script.WithSchemas(driver.Schemas()))

	err := New().Snapshot(ctx, h, driver.Outputs{"show version": showVersion})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dev.SoftwareVersion)
}

func TestAnalyzeConfig(t *testing.T) {
	cfg := &model.Configuration{Content: runningConfig}
	New().AnalyzeConfig(cfg)

	v, ok := cfg.Attribute("iosVersion")
	require.True(t, ok)
	assert.Equal(t, "17.3", v.Text)
	enc, ok := cfg.Attribute("passwordEncryption")
	require.True(t, ok)
	assert.True(t, enc.Flag)
	banner, ok := cfg.Attribute("bannerMotd")
	require.True(t, ok)
	assert.Equal(t, "Authorized access only", banner.Text)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.NetworkClassSwitchRouter, classify("C9300-48P"))
	assert.Equal(t, model.NetworkClassSwitch, classify("WS-C2960X-48FPD-L"))
	assert.Equal(t, model.NetworkClassAccessPoint, classify("AIR-AP2802I-E-K9"))
	assert.Equal(t, model.NetworkClassUnknown, classify("N9K-C93180YC-EX"))
}
