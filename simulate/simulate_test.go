package simulate

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
	sshc "github.com/netsnapshot/netsnapshot/pkg/ssh"
)

func startLab(t *testing.T, hostKey string) (*Server, string, int) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lab-rt1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lab-rt1", "show_version.txt"), []byte("Lab OS 1.0\nuptime 3 days"), 0o644))

	srv, err := Start(config.SimulateConfig{Listen: "127.0.0.1:0", Root: root, Password: "lab", HostKey: hostKey})
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	host, port, err := net.SplitHostPort(srv.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return srv, host, p
}

func TestSimulatedDeviceExec(t *testing.T) {
	_, host, port := startLab(t, "")

	c := sshc.NewClient(&sshc.Config{Timeout: 5 * time.Second})
	require.NoError(t, c.Connect(context.Background(), &sshc.ConnectionInfo{Host: host, Port: port, Username: "lab-rt1", Password: "lab"}))
	defer c.Close()

	results, err := c.ExecuteCommands(context.Background(), []string{"show version", "show clock"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Lab OS 1.0\r\nuptime 3 days\r\n", string(results[0].Output))
	assert.Equal(t, 0, results[0].ExitCode)
	assert.Equal(t, 1, results[1].ExitCode)
	assert.Contains(t, string(results[1].Output), "Invalid input")
}

func TestSimulatedDeviceRejectsPassword(t *testing.T) {
	_, host, port := startLab(t, "")

	c := sshc.NewClient(&sshc.Config{Timeout: 5 * time.Second})
	err := c.Connect(context.Background(), &sshc.ConnectionInfo{Host: host, Port: port, Username: "lab-rt1", Password: "nope"})
	assert.Error(t, err)
}

func TestHostKeyPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "host.pem")

	first, err := loadOrCreateHostKey(path)
	require.NoError(t, err)
	second, err := loadOrCreateHostKey(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey().Marshal(), second.PublicKey().Marshal())
}

func TestLoadCommandOutputStaysInRoot(t *testing.T) {
	srv, _, _ := startLab(t, "")

	_, found := srv.loadCommandOutput("../lab-rt1", "show version")
	assert.False(t, found)
	_, found = srv.loadCommandOutput("lab-rt1", "../../etc/passwd")
	assert.False(t, found)
	out, found := srv.loadCommandOutput("lab-rt1", "show_version")
	assert.True(t, found)
	assert.Contains(t, out, "Lab OS")
}
