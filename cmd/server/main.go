package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/api/router"
	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/internal/database"
	"github.com/netsnapshot/netsnapshot/internal/service"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
	"github.com/netsnapshot/netsnapshot/simulate"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(loggerConfig(cfg)); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("Starting netsnapshot server with %d drivers", len(driver.List()))

	if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	snapshotService := service.NewSnapshotService(cfg, database.GetDB())
	ctx := context.Background()
	if err := snapshotService.Start(ctx); err != nil {
		logger.Fatalf("Failed to start snapshot service: %v", err)
	}
	defer snapshotService.Stop()

	// 本地模拟设备（可选）
	if cfg.Simulate.Enable {
		sim, err := simulate.Start(cfg.Simulate)
		if err != nil {
			logger.WithError(err).Warn("Simulated devices not started")
		} else {
			defer sim.Stop()
		}
	}

	r := router.SetupRouter(cfg.Server.Mode, database.GetDB(), snapshotService)
	server := &http.Server{
		Addr:           cfg.GetServerAddr(),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		logger.Infof("Server listening on %s (mode %s)", server.Addr, cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	go watchConfig(*configPath, cfg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Info("Server shutdown complete")
	}
}

func loggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
}

// watchConfig 配置文件变化时重新加载；数据库与监听地址需要重启才生效
func watchConfig(path string, cfg *config.Config) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithError(err).Warn("Config watch init failed")
		return
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		logger.WithError(err).Warn("Config watch add failed")
		return
	}

	var debounce *time.Timer
	trigger := func() {
		newCfg, err := config.Load(path)
		if err != nil {
			logger.WithError(err).Warn("Config reload failed")
			return
		}
		// 原地覆盖，保持指针不变
		*cfg = *newCfg
		if err := logger.Init(loggerConfig(cfg)); err != nil {
			logger.WithError(err).Warn("Logger reload failed")
		}
		logger.Info("Config reloaded")
	}
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, trigger)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.WithError(err).Warn("Config watch error")
		}
	}
}
