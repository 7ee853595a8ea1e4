package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open(config.SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "snap.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func seedDevice(t *testing.T, s *Session, name string) *model.Device {
	t.Helper()
	d := &model.Device{Name: name, Driver: "cisco_ios", ManagementAddress: "192.0.2.1"}
	require.NoError(t, s.CreateDevice(d))
	require.NotZero(t, d.ID)
	return d
}

func TestSessionLoadNotFound(t *testing.T) {
	s := NewSession(openTestDB(t))

	_, err := s.LoadDeviceByID(42)
	assert.ErrorIs(t, err, model.ErrDeviceNotFound)
	_, err = s.LoadDeviceByName("ghost")
	assert.ErrorIs(t, err, model.ErrDeviceNotFound)
}

func TestSessionSaveAndReload(t *testing.T) {
	conn := openTestDB(t)
	s := NewSession(conn)
	d := seedDevice(t, s, "core-rt1")
	assert.Equal(t, model.NetworkClassUnknown, d.NetworkClass)

	d.Family = "ISR4451"
	d.NetworkClass = model.NetworkClassRouter
	d.AddVrf("MGMT")
	d.Modules = []model.Module{{Slot: "0", PartNumber: "ISR4451-X/K9", SerialNumber: "FOC1"}}
	ni := model.NetworkInterface{Name: "Gi0/0/0", PhysicalAddress: model.ZeroPhysicalAddress, Enabled: true, Level3: true}
	addr, err := model.NewNetwork4Address("10.0.0.1", 24)
	require.NoError(t, err)
	ni.AddAddress(addr)
	d.Interfaces = []model.NetworkInterface{ni}
	d.AddAttribute(model.DeviceAttribute{AttributeValue: model.TextValue("iosImageFile", "flash:a.bin")})
	require.NoError(t, s.SaveDevice(d))

	// 再保存一次，关联应整体替换而不是累加
	require.NoError(t, s.SaveDevice(d))

	fresh := NewSession(conn)
	loaded, err := fresh.LoadDeviceByName("core-rt1")
	require.NoError(t, err)
	assert.Equal(t, "ISR4451", loaded.Family)
	assert.Equal(t, model.NetworkClassRouter, loaded.NetworkClass)
	assert.Equal(t, []string{"MGMT"}, loaded.Vrfs)
	require.Len(t, loaded.Modules, 1)
	require.Len(t, loaded.Interfaces, 1)
	require.Len(t, loaded.Interfaces[0].Addresses, 1)
	assert.Equal(t, "10.0.0.1", loaded.Interfaces[0].Addresses[0].IP)
	require.Len(t, loaded.Attributes, 1)
	assert.Nil(t, loaded.LastConfig)

	var count int64
	require.NoError(t, conn.Model(&model.NetworkAddress{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSessionConfigurationAndDiagnostics(t *testing.T) {
	conn := openTestDB(t)
	s := NewSession(conn)
	d := seedDevice(t, s, "edge-sw1")

	cfg := &model.Configuration{Content: "hostname edge-sw1", Author: "test"}
	cfg.AddAttribute(model.TextValue("configRegister", "0x2102"))
	require.NoError(t, s.AddConfiguration(d, cfg))
	require.NoError(t, s.AddDiagnostic(d, "uptime", "1 week"))
	require.NoError(t, s.AddDiagnostic(d, "uptime", "2 weeks"))
	assert.Len(t, d.Diagnostics, 1)

	loaded, err := NewSession(conn).LoadDeviceByID(d.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastConfig)
	assert.Equal(t, "hostname edge-sw1", loaded.LastConfig.Content)
	attr, ok := loaded.LastConfig.Attribute("configRegister")
	require.True(t, ok)
	assert.Equal(t, "0x2102", attr.Text)
	require.Len(t, loaded.Diagnostics, 1)
	assert.Equal(t, "2 weeks", loaded.Diagnostics[0].Data)
}

func TestSessionWorkingSet(t *testing.T) {
	s := NewSession(openTestDB(t))
	seedDevice(t, s, "a")

	first, err := s.LoadDeviceByName("a")
	require.NoError(t, err)
	second, err := s.LoadDeviceByID(first.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []uint{first.ID}, s.WorkingSet())

	s.Evict(first)
	assert.Empty(t, s.WorkingSet())

	third, err := s.LoadDeviceByID(first.ID)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestSessionListDevices(t *testing.T) {
	s := NewSession(openTestDB(t))
	for _, n := range []string{"r1", "r2", "r3"} {
		seedDevice(t, s, n)
	}

	page, total, err := s.ListDevices(1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "r2", page[0].Name)
}

func TestIsBusyError(t *testing.T) {
	assert.False(t, IsBusyError(nil))
	assert.False(t, IsBusyError(assert.AnError))
	assert.True(t, IsBusyError(errors.New("database is locked (5) (SQLITE_BUSY)")))
}
