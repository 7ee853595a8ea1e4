package simulate

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
)

// Server 模拟网络设备的 SSH 服务，只支持 exec 会话
// 登录用户名作为设备名，命令回显读取 <root>/<设备名>/<命令>.txt
type Server struct {
	cfg       config.SimulateConfig
	sshConfig *ssh.ServerConfig
	listener  net.Listener
	log       *logrus.Entry
	mu        sync.Mutex
	active    int
	wg        sync.WaitGroup
}

// Start 监听并开始接受连接
func Start(cfg config.SimulateConfig) (*Server, error) {
	signer, err := loadOrCreateHostKey(cfg.HostKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init host key: %w", err)
	}
	s := &Server{cfg: cfg, log: logger.WithField("component", "simulate")}
	s.sshConfig = &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if string(password) == cfg.Password {
				return nil, nil
			}
			s.log.Debugf("Auth failed for %s", meta.User())
			return nil, fmt.Errorf("access denied")
		},
		KeyboardInteractiveCallback: func(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(meta.User(), "Authentication", []string{"Password:"}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) > 0 && answers[0] == cfg.Password {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied")
		},
	}
	s.sshConfig.AddHostKey(signer)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, err
	}
	s.listener = ln
	s.log.Infof("Simulated devices listening on %s, outputs from %s", ln.Addr(), cfg.Root)

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr 实际监听地址
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Stop 关闭监听并等待连接结束
func (s *Server) Stop() {
	_ = s.listener.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.WithError(err).Warn("Accept failed")
			return
		}
		s.mu.Lock()
		if s.cfg.MaxConn > 0 && s.active >= s.cfg.MaxConn {
			s.mu.Unlock()
			_ = conn.Close()
			s.log.Warn("Connection rejected, max_conn exceeded")
			continue
		}
		s.active++
		s.mu.Unlock()

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConn(c)
			s.mu.Lock()
			s.active--
			s.mu.Unlock()
		}(conn)
	}
}

func (s *Server) handleConn(nc net.Conn) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, s.sshConfig)
	if err != nil {
		s.log.WithError(err).Debug("SSH handshake failed")
		_ = nc.Close()
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	device := conn.User()
	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := ch.Accept()
		if err != nil {
			s.log.WithError(err).Debug("Channel accept failed")
			continue
		}
		go s.handleSession(channel, requests, device)
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request, device string) {
	defer channel.Close()
	for req := range requests {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		status := uint32(0)
		out, found := s.loadCommandOutput(device, payload.Command)
		if found {
			_, _ = channel.Write([]byte(out))
		} else {
			s.log.Debugf("No output for '%s' on %s", payload.Command, device)
			_, _ = channel.Stderr().Write([]byte("% Invalid input detected at '^' marker.\r\n"))
			status = 1
		}
		_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

// loadCommandOutput 依次尝试原命令名与空格替换为下划线的文件名
func (s *Server) loadCommandOutput(device, cmd string) (string, bool) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || strings.ContainsAny(device, `/\`) || strings.Contains(device, "..") {
		return "", false
	}
	base := filepath.Join(s.cfg.Root, device)
	for _, name := range []string{cmd, strings.ReplaceAll(cmd, " ", "_")} {
		if strings.ContainsAny(name, `/\`) {
			continue
		}
		if bs, err := os.ReadFile(filepath.Join(base, name+".txt")); err == nil {
			return ensureCRLF(string(bs)), true
		}
	}
	return "", false
}

// loadOrCreateHostKey 读取持久化的主机密钥，不存在则生成 ed25519 密钥并写入
func loadOrCreateHostKey(path string) (ssh.Signer, error) {
	if path != "" {
		if bs, err := os.ReadFile(path); err == nil {
			return ssh.ParsePrivateKey(bs)
		}
	}
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	if path != "" {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
		if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write host key: %w", err)
		}
	}
	return ssh.NewSignerFromKey(key)
}

// ensureCRLF 设备回显统一使用 CRLF 结尾
func ensureCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	if !strings.HasSuffix(s, "\r\n") {
		s += "\r\n"
	}
	return s
}
