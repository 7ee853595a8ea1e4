package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	SSH      SSHConfig      `mapstructure:"ssh"`
	Log      LogConfig      `mapstructure:"log"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// LogLevel GORM 日志级别：silent | error | warn | info
	LogLevel string `mapstructure:"log_level"`
}

// StorageConfig 原始采集输出归档配置
type StorageConfig struct {
	// Backend 归档后端：none | local | minio
	Backend string      `mapstructure:"backend"`
	Prefix  string      `mapstructure:"prefix"`
	Local   LocalConfig `mapstructure:"local"`
	Minio   MinioConfig `mapstructure:"minio"`
}

// LocalConfig 本地归档目录
type LocalConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	MkdirIfMissing bool   `mapstructure:"mkdir_if_missing"`
}

// MinioConfig 对象存储配置（原始数据）
type MinioConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// SSHConfig SSH轮询配置
type SSHConfig struct {
	Port              int           `mapstructure:"port"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	KeyFile           string        `mapstructure:"key_file"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SnapshotConfig 快照任务配置
type SnapshotConfig struct {
	// Concurrent 批量快照的并发设备数
	Concurrent int `mapstructure:"concurrent"`
	// TaskTimeout 单台设备快照的超时
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// Author 写入配置版本的作者名
	Author string `mapstructure:"author"`
}

// SimulateConfig 本地模拟设备（联调用）
// 用户名即设备名，回显取自 Root/<设备名>/<命令>.txt
type SimulateConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Listen   string `mapstructure:"listen"`
	Root     string `mapstructure:"root"`
	Password string `mapstructure:"password"`
	// HostKey 主机密钥文件，不存在时生成；为空则每次启动临时生成
	HostKey string `mapstructure:"host_key"`
	MaxConn int    `mapstructure:"max_conn"`
}

var globalConfig *Config

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("NETSNAPSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = replaceEnvVars(config)
	normalize(&config)

	globalConfig = &config
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("database.sqlite.path", "./data/netsnapshot.db")
	v.SetDefault("database.sqlite.conn_max_lifetime", time.Hour)
	v.SetDefault("database.sqlite.log_level", "warn")

	// 原始输出默认不归档
	v.SetDefault("storage.backend", "none")
	v.SetDefault("storage.prefix", "snapshots")
	v.SetDefault("storage.local.base_dir", "./data/raw")
	v.SetDefault("storage.local.mkdir_if_missing", true)
	v.SetDefault("storage.minio.port", 9000)
	v.SetDefault("storage.minio.bucket", "netsnapshot-raw")

	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.connect_timeout", 7*time.Second)
	v.SetDefault("ssh.keep_alive_interval", 30*time.Second)

	v.SetDefault("snapshot.concurrent", 8)
	v.SetDefault("snapshot.task_timeout", 5*time.Minute)
	v.SetDefault("snapshot.author", "netsnapshot")

	v.SetDefault("simulate.enable", false)
	v.SetDefault("simulate.listen", "127.0.0.1:2222")
	v.SetDefault("simulate.root", "./simulate/devices")
	v.SetDefault("simulate.password", "lab")
	v.SetDefault("simulate.host_key", "./simulate/_hostkey_ed25519.pem")
	v.SetDefault("simulate.max_conn", 32)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "./logs/netsnapshot.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// replaceEnvVars 替换 ${VAR} 形式的敏感字段
func replaceEnvVars(config Config) Config {
	config.SSH.Password = expandEnv(config.SSH.Password)
	config.Storage.Minio.AccessKey = expandEnv(config.Storage.Minio.AccessKey)
	config.Storage.Minio.SecretKey = expandEnv(config.Storage.Minio.SecretKey)
	return config
}

func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}
	return s
}

func normalize(cfg *Config) {
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Snapshot.Concurrent <= 0 {
		cfg.Snapshot.Concurrent = 1
	}
}

// GetServerAddr 获取服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
