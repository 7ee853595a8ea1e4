package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
	"github.com/netsnapshot/netsnapshot/pkg/ssh"
)

// Poller 从设备获取命令回显
type Poller interface {
	Poll(ctx context.Context, device *model.Device, commands []string) (map[string][]byte, error)
}

// SSHPoller 通过 SSH exec 逐条执行命令
type SSHPoller struct {
	cfg config.SSHConfig
}

// NewSSHPoller 创建 SSH 轮询器
func NewSSHPoller(cfg config.SSHConfig) *SSHPoller {
	return &SSHPoller{cfg: cfg}
}

// Poll 连接设备管理地址执行命令；单条命令失败只记录，不影响其它命令
func (p *SSHPoller) Poll(ctx context.Context, device *model.Device, commands []string) (map[string][]byte, error) {
	host := strings.TrimSpace(device.ManagementAddress)
	if host == "" {
		return nil, fmt.Errorf("device %s has no management address", device.Name)
	}
	client := ssh.NewClient(&ssh.Config{Timeout: p.cfg.ConnectTimeout, KeepAlive: p.cfg.KeepAliveInterval})
	info := &ssh.ConnectionInfo{
		Host:     host,
		Port:     p.cfg.Port,
		Username: p.cfg.Username,
		Password: p.cfg.Password,
		KeyFile:  p.cfg.KeyFile,
	}
	if err := client.Connect(ctx, info); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", host, err)
	}
	defer client.Close()

	results, err := client.ExecuteCommands(ctx, commands)
	out := make(map[string][]byte, len(results))
	for _, r := range results {
		if r.Error != "" {
			logger.WithFields(logrus.Fields{
				"device":    device.Name,
				"command":   r.Command,
				"exit_code": r.ExitCode,
			}).Warnf("Command failed: %s", r.Error)
		}
		if len(r.Output) > 0 {
			out[r.Command] = r.Output
		}
	}
	return out, err
}
