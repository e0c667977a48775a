package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-match-go/internal/api/handler"
	"cv-match-go/internal/api/router"
	"cv-match-go/internal/config"
	appCoreLogger "cv-match-go/internal/logger"
	"cv-match-go/internal/matcher"
	"cv-match-go/internal/outbox"
	"cv-match-go/internal/parser"
	"cv-match-go/internal/processor"
	"cv-match-go/internal/storage"
	"cv-match-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	shutdownTracing, err := tracing.InitTracerProvider(ctx, &cfg.Tracing)
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}
	if cfg.Tracing.Enabled {
		glog.Infof("链路追踪已启用, endpoint: %s", cfg.Tracing.Endpoint)
	}

	// 存储层
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 声明匹配事件的消息拓扑
	if storageManager.RabbitMQ != nil {
		if err := setupMessageTopology(storageManager.RabbitMQ, &cfg.RabbitMQ); err != nil {
			glog.Fatalf("声明RabbitMQ拓扑失败: %v", err)
		}
		glog.Info("RabbitMQ拓扑声明成功")
	}

	// 消息中继：把outbox中的匹配完成事件投递到消息队列
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relayLogger := log.New(appCoreLogger.Logger, "[MessageRelay] ", log.LstdFlags|log.Lshortfile)
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, &cfg.RabbitMQ, relayLogger)
		messageRelay.Start()
		glog.Info("消息中继服务已启动")
	}

	// DashScope向量化器，延迟初始化给打分引擎
	embedderProvider := matcher.EmbedderProvider(func() (matcher.TextEmbedder, error) {
		return parser.NewDashScopeEmbedder(cfg.DashScope.APIKey, cfg.DashScope.Embedding,
			parser.WithEmbedderLogger(componentLogger(cfg, "[EmbedderMain] ")))
	})

	// Qwen聊天模型，驱动岗位/简历的结构化提取
	llmModel, err := parser.NewQwenChatModel(cfg.DashScope.APIKey, cfg.DashScope.Model, cfg.DashScope.APIURL,
		parser.WithChatModelLogger(componentLogger(cfg, "[QwenMain] ")))
	if err != nil {
		glog.Fatalf("初始化Qwen聊天模型失败: %v", err)
	}
	glog.Info("Qwen聊天模型初始化成功")

	recordExtractor := parser.NewRecordExtractor(llmModel, componentLogger(cfg, "[ExtractorMain] "))
	glog.Info("结构化提取器初始化成功")

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx,
		parser.WithEinoLogger(componentLogger(cfg, "[EinoPDFMain] ")))
	if err != nil {
		glog.Fatalf("创建PDF提取器失败: %v", err)
	}
	glog.Info("PDF提取器初始化成功")

	matchEngine := matcher.NewEngine(embedderProvider,
		matcher.WithLogger(componentLogger(cfg, "[MatcherMain] ")))
	glog.Info("匹配打分引擎初始化成功")

	matchService, err := processor.NewMatchService(cfg, storageManager, pdfExtractor, recordExtractor, matchEngine, appCoreLogger.Logger)
	if err != nil {
		glog.Fatalf("初始化匹配服务失败: %v", err)
	}
	glog.Info("匹配服务初始化成功")

	matchHandler := handler.NewMatchHandler(cfg, matchService)

	// HTTP服务器，挂上otel中间件
	serverTracer, serverTraceCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(serverTraceCfg))

	router.RegisterRoutes(h, matchHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
		glog.Info("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Errorf("关闭链路追踪失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog全局日志并接管Hertz的日志输出
func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
}

// setupMessageTopology 声明匹配事件交换机、结果队列及其绑定
func setupMessageTopology(mq *storage.RabbitMQ, cfg *config.RabbitMQConfig) error {
	if cfg.MatchEventsExchange == "" {
		return nil
	}
	if err := mq.EnsureExchange(cfg.MatchEventsExchange, "topic", true); err != nil {
		return err
	}
	if cfg.MatchResultsQueue == "" {
		return nil
	}
	if err := mq.EnsureQueue(cfg.MatchResultsQueue, true); err != nil {
		return err
	}
	return mq.BindQueue(cfg.MatchResultsQueue, cfg.MatchEventsExchange, cfg.MatchCompletedRoutingKey)
}

// componentLogger 为各组件创建标准库logger，debug级别时输出到stderr
func componentLogger(cfg *config.Config, prefix string) *log.Logger {
	if cfg.Logger.Level == "debug" {
		return log.New(os.Stderr, prefix, log.LstdFlags|log.Lshortfile)
	}
	return log.New(io.Discard, "", 0)
}
