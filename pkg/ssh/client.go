package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config SSH配置
type Config struct {
	Timeout   time.Duration `yaml:"timeout"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Client SSH客户端（一台设备一条连接，命令逐条通过 exec 会话执行）
type Client struct {
	config     *Config
	connection *ssh.Client
	mutex      sync.RWMutex
	// 保存最近一次成功连接的参数，用于在会话创建失败（如 EOF）时自动重连
	info *ConnectionInfo
}

// ConnectionInfo SSH连接信息
type ConnectionInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	KeyFile  string `json:"key_file,omitempty"`
}

// CommandResult 命令执行结果
type CommandResult struct {
	Command  string        `json:"command"`
	Output   []byte        `json:"output"`
	Error    string        `json:"error"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// ErrNotConnected 连接未建立
var ErrNotConnected = errors.New("SSH connection not established")

// NewClient 创建SSH客户端
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{Timeout: 10 * time.Second}
	}
	return &Client{config: config}
}

func (c *Client) clientConfig(info *ConnectionInfo) (*ssh.ClientConfig, error) {
	sshConfig := &ssh.ClientConfig{
		User:            info.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.config.Timeout,
		Config: ssh.Config{
			// 兼容旧版本网络设备的密钥交换算法
			KeyExchanges: []string{
				"curve25519-sha256",
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
				"diffie-hellman-group-exchange-sha256",
				"diffie-hellman-group-exchange-sha1",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
			},
			Ciphers: []string{
				"aes128-ctr",
				"aes192-ctr",
				"aes256-ctr",
				"aes128-gcm@openssh.com",
				"aes256-gcm@openssh.com",
				"aes128-cbc",
				"aes256-cbc",
				"3des-cbc",
			},
			MACs: []string{
				"hmac-sha2-256-etm@openssh.com",
				"hmac-sha2-256",
				"hmac-sha1",
				"hmac-sha1-96",
			},
		},
		HostKeyAlgorithms: []string{
			"ssh-ed25519",
			"rsa-sha2-256",
			"rsa-sha2-512",
			"ssh-rsa",
			"ecdsa-sha2-nistp256",
			"ecdsa-sha2-nistp384",
			"ecdsa-sha2-nistp521",
		},
	}

	if info.KeyFile != "" {
		pem, err := os.ReadFile(info.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if info.Password != "" {
		// 同时尝试 password 与 keyboard-interactive，提高与网络设备的兼容性
		sshConfig.Auth = append(sshConfig.Auth,
			ssh.Password(info.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = info.Password
				}
				return answers, nil
			}),
		)
	}
	if len(sshConfig.Auth) == 0 {
		return nil, fmt.Errorf("no credentials for %s", info.Host)
	}
	return sshConfig, nil
}

// Connect 连接SSH服务器
func (c *Client) Connect(ctx context.Context, info *ConnectionInfo) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connectLocked(ctx, info)
}

func (c *Client) connectLocked(ctx context.Context, info *ConnectionInfo) error {
	sshConfig, err := c.clientConfig(info)
	if err != nil {
		return err
	}
	c.info = info

	port := info.Port
	if port <= 0 {
		port = 22
	}
	address := net.JoinHostPort(info.Host, fmt.Sprintf("%d", port))
	dialer := &net.Dialer{Timeout: c.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, sshConfig)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SSH connection: %w", err)
	}
	c.connection = ssh.NewClient(sshConn, chans, reqs)

	go c.keepAlive(ctx, c.connection)
	return nil
}

// newSessionWithRetry 创建会话（带重试）
// 部分设备在登录后立即打开通道会返回 "administratively prohibited" 或 EOF
func (c *Client) newSessionWithRetry(ctx context.Context) (*ssh.Session, error) {
	backoffs := []time.Duration{0, 200 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second}
	var lastErr error
	for _, d := range backoffs {
		if d > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}
		c.mutex.Lock()
		conn := c.connection
		if conn == nil {
			c.mutex.Unlock()
			return nil, ErrNotConnected
		}
		sess, err := conn.NewSession()
		if err == nil {
			c.mutex.Unlock()
			return sess, nil
		}
		lastErr = err
		if strings.Contains(strings.ToLower(err.Error()), "eof") && c.info != nil {
			// 连接已被设备关闭，按保存的参数重连一次
			_ = conn.Close()
			c.connection = nil
			rctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
			if rerr := c.connectLocked(rctx, c.info); rerr != nil {
				lastErr = rerr
			}
			cancel()
		}
		c.mutex.Unlock()
	}
	return nil, lastErr
}

// ExecuteCommand 执行单个命令，ctx 取消时关闭会话
func (c *Client) ExecuteCommand(ctx context.Context, command string) (*CommandResult, error) {
	startTime := time.Now()
	result := &CommandResult{Command: command}

	session, err := c.newSessionWithRetry(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create session: %v", err)
		result.ExitCode = -1
		return result, err
	}
	defer session.Close()

	type outcome struct {
		out []byte
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- outcome{out, err}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		_ = session.Close()
		res = outcome{err: ctx.Err()}
	case res = <-done:
	}

	result.Duration = time.Since(startTime)
	result.Output = res.out
	if res.err != nil {
		result.Error = res.err.Error()
		var exitErr *ssh.ExitError
		if errors.As(res.err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
		} else {
			result.ExitCode = -1
		}
		return result, res.err
	}
	return result, nil
}

// ExecuteCommands 批量执行命令；单条失败记录在结果中并继续
func (c *Client) ExecuteCommands(ctx context.Context, commands []string) ([]*CommandResult, error) {
	results := make([]*CommandResult, 0, len(commands))
	for _, command := range commands {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, _ := c.ExecuteCommand(ctx, command)
		results = append(results, result)
	}
	return results, nil
}

// Close 关闭SSH连接
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.connection != nil {
		err := c.connection.Close()
		c.connection = nil
		return err
	}
	return nil
}

// IsConnected 发送 keepalive 请求做轻量检查，不创建会话
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	conn := c.connection
	c.mutex.RUnlock()
	if conn == nil {
		return false
	}
	_, _, err := conn.SendRequest("keepalive@openssh.com", false, nil)
	return err == nil
}

// keepAlive 保持连接活跃，连接替换或断开后退出
func (c *Client) keepAlive(ctx context.Context, conn *ssh.Client) {
	if c.config.KeepAlive <= 0 {
		return
	}
	ticker := time.NewTicker(c.config.KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := conn.SendRequest("keepalive@openssh.com", false, nil); err != nil {
				c.mutex.Lock()
				if c.connection == conn {
					_ = conn.Close()
					c.connection = nil
				}
				c.mutex.Unlock()
				return
			}
		}
	}
}
