package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"finpalette/config"
	"finpalette/dataaccess"
	"finpalette/database"
	"finpalette/localstore"
	"finpalette/middleware"
	"finpalette/migration"
	"finpalette/remotestore"
	"finpalette/router"
	"finpalette/service"

	"github.com/alecthomas/kong"
)

// Globals 全局参数
type Globals struct {
	Config string `help:"外部配置文件路径（可选）" short:"c" type:"path"`
}

// ServeCmd 启动 HTTP 服务
type ServeCmd struct {
	Port string `help:"监听端口，如: 8080 或 :8080" short:"p"`
}

// AutoMigrateCmd 只执行表结构迁移
type AutoMigrateCmd struct{}

// Commands 子命令
type Commands struct {
	Serve       ServeCmd       `cmd:"" default:"1" help:"启动 HTTP 服务"`
	AutoMigrate AutoMigrateCmd `cmd:"" name:"automigrate" help:"创建或更新数据库表结构"`
}

func loadConfig(globals *Globals) (*config.Config, error) {
	cfg, err := config.LoadConfig(globals.Config)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}

// openLocal 按配置选择游客数据存储
func openLocal(cfg config.LocalConfig) (localstore.Provider, *localstore.FileProvider, error) {
	if cfg.Driver == "memory" {
		return localstore.NewMemoryProvider(), nil, nil
	}
	fp, err := localstore.NewFileProvider(cfg.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("打开本地存储目录失败: %w", err)
	}
	return fp, fp, nil
}

func (cmd *ServeCmd) Run(ctx *kong.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	if cmd.Port != "" {
		port := cmd.Port
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		log.Printf("命令行指定端口: %s", port)
	}
	config.PrintConfig()

	db, err := database.Init(cfg)
	if err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	middleware.InitJWT(cfg)

	provider, fileProvider, err := openLocal(cfg.Local)
	if err != nil {
		return err
	}
	local := localstore.NewRegistry(provider)
	remote := remotestore.New(db)

	broadcaster := service.NewBroadcaster()
	defer broadcaster.Close()

	data := dataaccess.New(local, remote,
		dataaccess.WithTimeout(cfg.Server.Timeout),
		dataaccess.WithNotifier(broadcaster),
	)

	dispatcher := migration.NewDispatcher(migration.NewMigrator(remote, local))
	dispatcher.OnMigrated(func(userID uint, guestKey string, result migration.Result) {
		data.InvalidateGuest(guestKey)
		data.InvalidateUser(userID)
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fileProvider != nil {
		// 本地文件被外部修改时丢弃对应游客的缓存
		if err := fileProvider.Watch(runCtx, data.InvalidateGuest); err != nil {
			log.Printf("[localstore] 无法监听 %s: %v", fileProvider.Dir(), err)
		}
	}

	r := router.SetupRouter(router.Deps{
		Config:      cfg,
		Remote:      remote,
		Local:       local,
		Data:        data,
		Dispatcher:  dispatcher,
		Broadcaster: broadcaster,
	})

	srv := &http.Server{Addr: cfg.Server.Port, Handler: r}
	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("关闭服务失败: %v", err)
		}
	}()

	log.Printf("==========================================")
	log.Printf("  Finpalette %s 已启动", buildVersion())
	log.Printf("==========================================")
	log.Printf("  Swagger:  http://localhost%s/swagger/index.html", cfg.Server.Port)
	log.Printf("  API接口:  http://localhost%s/api/v1/", cfg.Server.Port)
	log.Printf("==========================================")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("服务器启动失败: %w", err)
	}
	return nil
}

func (cmd *AutoMigrateCmd) Run(ctx *kong.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	if _, err := database.Init(cfg); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(ctx.Stdout, "表结构已更新")
	return nil
}
