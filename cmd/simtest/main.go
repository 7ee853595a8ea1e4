package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	_ "github.com/netsnapshot/netsnapshot/addone/driver/platforms/cisco_ios"
	_ "github.com/netsnapshot/netsnapshot/addone/driver/platforms/huawei_vrp"
	"github.com/netsnapshot/netsnapshot/internal/util"
	sshc "github.com/netsnapshot/netsnapshot/pkg/ssh"
)

// simtest 登录设备（默认本地模拟设备）执行驱动需要的全部命令，打印整理后的回显前几行
func main() {
	host := flag.String("host", "127.0.0.1", "设备地址")
	port := flag.Int("port", 2222, "SSH 端口")
	user := flag.String("user", "lab-ios1", "用户名（模拟设备中即设备名）")
	password := flag.String("password", "lab", "密码")
	drv := flag.String("driver", "cisco_ios", "驱动名")
	lines := flag.Int("lines", 10, "每条命令打印的行数")
	flag.Parse()

	d, ok := driver.Get(*drv)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown driver %s\n", *drv)
		os.Exit(2)
	}

	client := sshc.NewClient(&sshc.Config{Timeout: 5 * time.Second, KeepAlive: 10 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.Connect(ctx, &sshc.ConnectionInfo{Host: *host, Port: *port, Username: *user, Password: *password}); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	results, err := client.ExecuteCommands(ctx, d.Descriptor().PollCommands())
	for _, r := range results {
		fmt.Printf("== %s (exit %d, %s)\n", r.Command, r.ExitCode, r.Duration.Round(time.Millisecond))
		fmt.Println(headLines(util.NormalizeOutput(r.Output), *lines))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "stopped: %v\n", err)
		os.Exit(1)
	}
}

func headLines(s string, n int) string {
	all := strings.Split(s, "\n")
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return strings.Join(all, "\n")
}
