// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Voxlit/NovelVoiceStudio/internal/api"
	"github.com/Voxlit/NovelVoiceStudio/internal/app"
	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	"github.com/Voxlit/NovelVoiceStudio/internal/di"
	"github.com/Voxlit/NovelVoiceStudio/internal/utils"
)

func main() {
	// 1. 首先加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	if err := utils.InitLogger(baseConfig.LogDir, baseConfig.DebugMode); err != nil {
		logrus.Fatalf("初始化日志失败: %v", err)
	}
	logrus.Infof("启动 NovelVoiceStudio 服务器，端口: %s", baseConfig.Port)

	// 3. 创建必要的目录
	createDirectories(baseConfig)

	// 4. 初始化配置系统
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		logrus.Fatalf("初始化配置系统失败: %v", err)
	}

	// 5. 初始化所有服务（按依赖顺序）
	if err := app.InitServices(); err != nil {
		logrus.Fatalf("初始化服务失败: %v", err)
	}

	// 6. 服务健康检查
	if err := performHealthCheck(); err != nil {
		logrus.Warnf("服务健康检查警告: %v", err)
	}

	// 7. 设置路由（只获取服务，不创建）
	router, err := api.SetupRouter()
	if err != nil {
		logrus.Fatalf("设置路由失败: %v", err)
	}

	logrus.Infof("访问地址: http://localhost:%s/api/projects", baseConfig.Port)

	setupGracefulShutdown(router, baseConfig.Port)
}

// 健康检查函数
func performHealthCheck() error {
	container := di.GetContainer()

	// 检查关键服务是否已注册
	criticalServices := []string{"project", "chapter", "dialogue", "audio", "export", "progress"}

	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("关键服务未注册: %s", serviceName)
		}
	}

	return nil
}

// 优雅关闭函数
func setupGracefulShutdown(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// 在新的 goroutine 中启动服务器
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号以进行优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("正在关闭服务器...")

	// 给定超时时间关闭服务器，等待进行中的合成任务收尾
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("服务器强制关闭: %v", err)
	}

	logrus.Info("服务器优雅关闭完成")
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "projects"),
		filepath.Join(cfg.DataDir, "audio"),
		filepath.Join(cfg.DataDir, "exports"),
		cfg.LogDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logrus.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}
}
