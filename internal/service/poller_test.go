package service

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/internal/database"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
	"github.com/netsnapshot/netsnapshot/simulate"
)

func startSimulator(t *testing.T, device string, outputs map[string]string) config.SSHConfig {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, device)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for cmd, out := range outputs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, cmd+".txt"), []byte(out), 0o644))
	}
	srv, err := simulate.Start(config.SimulateConfig{Listen: "127.0.0.1:0", Root: root, Password: "lab"})
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	_, port, err := net.SplitHostPort(srv.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return config.SSHConfig{Port: p, Username: device, Password: "lab", ConnectTimeout: 5 * time.Second}
}

func TestSSHPollerAgainstSimulator(t *testing.T) {
	sshCfg := startSimulator(t, "lab-rt1", map[string]string{
		"show version": "version 4.2\n",
		"show config":  "hostname lab-rt1\n",
	})
	poller := NewSSHPoller(sshCfg)
	device := &model.Device{Name: "lab-rt1", ManagementAddress: "127.0.0.1"}

	out, err := poller.Poll(context.Background(), device, []string{"show config", "show version", "show clock"})
	require.NoError(t, err)
	assert.Equal(t, "version 4.2\r\n", string(out["show version"]))
	assert.Equal(t, "hostname lab-rt1\r\n", string(out["show config"]))
	// 失败命令的错误回显同样保留
	assert.Contains(t, string(out["show clock"]), "Invalid input")
}

func TestSSHPollerNeedsAddress(t *testing.T) {
	poller := NewSSHPoller(config.SSHConfig{Username: "x", Password: "y"})

	_, err := poller.Poll(context.Background(), &model.Device{Name: "bare"}, []string{"show version"})
	assert.ErrorContains(t, err, "no management address")
}

func TestSnapshotOverSSH(t *testing.T) {
	sshCfg := startSimulator(t, "lab-rt9", map[string]string{
		"show version": "version 5.0",
		"show config":  "hostname lab-rt9\nbanner motd x",
	})
	s, conn := newTestService(t, WithPoller(NewSSHPoller(sshCfg)))
	d := &model.Device{Name: "lab-rt9", Driver: "lab_os", ManagementAddress: "127.0.0.1"}
	require.NoError(t, database.NewSession(conn).CreateDevice(d))

	res, err := s.RunSnapshot(context.Background(), SnapshotRequest{DeviceID: d.ID})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusSuccess, res.Status, res.Error)

	v, _, err := s.Inspect(context.Background(), script.DeviceID(d.ID), "softwareVersion")
	require.NoError(t, err)
	assert.Equal(t, "5.0", v)
}
