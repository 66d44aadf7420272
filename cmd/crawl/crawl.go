package crawl

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nrich-sunny/spiders/collect"
	"github.com/Nrich-sunny/spiders/collector"
	"github.com/Nrich-sunny/spiders/collector/feedstorage"
	"github.com/Nrich-sunny/spiders/collector/sqlstorage"
	"github.com/Nrich-sunny/spiders/engine"
	"github.com/Nrich-sunny/spiders/limiter"
	"github.com/Nrich-sunny/spiders/log"
	"github.com/Nrich-sunny/spiders/parse"
	"github.com/Nrich-sunny/spiders/proxy"
	"github.com/go-micro/plugins/v4/config/encoder/toml"
	"github.com/spf13/cobra"
	"go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	"go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var CrawlCmd = &cobra.Command{
	Use:   "crawl [spider...]",
	Short: "run spiders.",
	Long:  "run the named spiders, or every spider configured in Tasks when none is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(configPath, workCount, args)
	},
}

var configPath string
var workCount int

func init() {
	CrawlCmd.Flags().StringVar(&configPath, "config", "config.toml", "set config file path")
	CrawlCmd.Flags().IntVar(&workCount, "workers", 5, "set worker count")
}

type StorageConfig struct {
	Kind       string
	FeedPath   string
	SqlUrl     string
	BatchCount int
}

// LoadConfig 读取 toml 格式的配置文件
func LoadConfig(path string) (config.Config, error) {
	enc := toml.NewEncoder()
	cfg, err := config.NewConfig(config.WithReader(json.NewReader(reader.WithEncoder(enc))))
	if err != nil {
		return nil, err
	}
	err = cfg.Load(file.NewSource(
		file.WithPath(path),
		source.WithEncoder(enc),
	))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func Run(path string, workers int, names []string) error {
	// load config
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}

	// log
	logText := cfg.Get("logLevel").String("INFO")
	logLevel, err := zapcore.ParseLevel(logText)
	if err != nil {
		return err
	}
	var plugin log.Plugin
	if logFile := cfg.Get("logFile").String(""); logFile != "" {
		var c io.Closer
		plugin, c = log.NewFilePlugin(logFile, logLevel,
			log.WithMaxSize(cfg.Get("logMaxSize").Int(200)),
			log.WithMaxBackups(cfg.Get("logMaxBackups").Int(0)),
			log.WithMaxAge(cfg.Get("logMaxAge").Int(0)),
			log.WithCompress(cfg.Get("logCompress").Bool(true)),
		)
		defer c.Close()
	} else {
		plugin = log.NewStdoutPlugin(logLevel)
	}
	logger := log.NewLogger(plugin)
	logger.Info("log init end")
	defer logger.Sync()

	// set zap global logger
	zap.ReplaceGlobals(logger)

	// proxy
	proxyURLs := cfg.Get("fetcher", "proxy").StringSlice([]string{})
	timeout := cfg.Get("fetcher", "timeout").Int(5000)
	logger.Sugar().Info("proxy list: ", proxyURLs, " timeout: ", timeout)
	var p proxy.ProxyFunc
	if len(proxyURLs) > 0 {
		p, err = proxy.RoundRobinProxySwitcher(proxyURLs...)
		if err != nil {
			logger.Error("RoundRobinProxySwitcher failed", zap.Error(err))
			return err
		}
	}

	fetchers := map[string]collect.Fetcher{
		"base": collect.BaseFetch{},
		"browser": collect.BrowserFetch{
			Timeout: time.Duration(timeout) * time.Millisecond,
			Proxy:   p,
			Logger:  logger.Named("fetcher"),
		},
		"colly": collect.CollyFetch{
			Timeout: time.Duration(timeout) * time.Millisecond,
			Proxy:   p,
		},
	}

	// storage
	var sConfig StorageConfig
	if err := cfg.Get("storage").Scan(&sConfig); err != nil {
		logger.Error("get storage config failed", zap.Error(err))
		return err
	}
	storage, closer, err := NewStorage(logger, sConfig)
	if err != nil {
		logger.Error("create storage failed", zap.Error(err))
		return err
	}
	defer closer.Close()

	// init tasks
	var tConfig []collect.TaskConfig
	if err := cfg.Get("Tasks").Scan(&tConfig); err != nil {
		logger.Error("init seed tasks", zap.Error(err))
	}
	seeds, err := ParseTaskConfig(logger, fetchers, storage, tConfig, names)
	if err != nil {
		return err
	}

	crawler := engine.NewEngine(
		engine.WithFetcher(fetchers["browser"]),
		engine.WithLogger(logger.Named("engine")),
		engine.WithWorkCount(workers),
		engine.WithSeeds(seeds),
		engine.WithScheduler(engine.NewSchedule()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return crawler.Run(ctx)
}

// NewStorage 根据配置创建存储，返回的 closer 需要在退出前调用
func NewStorage(logger *zap.Logger, cfg StorageConfig) (collector.Storage, io.Closer, error) {
	switch cfg.Kind {
	case "mysql":
		s, err := sqlstorage.New(
			sqlstorage.WithSqlUrl(cfg.SqlUrl),
			sqlstorage.WithLogger(logger.Named("sqlDB")),
			sqlstorage.WithBatchCount(cfg.BatchCount),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "", "feed":
		s, err := feedstorage.New(
			feedstorage.WithPath(cfg.FeedPath),
			feedstorage.WithLogger(logger.Named("feed")),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
}

// ParseTaskConfig 由任务模板与配置生成待运行的任务。
// names 为空时运行配置中的全部任务；指定但未配置的任务使用默认参数。
func ParseTaskConfig(logger *zap.Logger, fetchers map[string]collect.Fetcher, s collector.Storage, cfgs []collect.TaskConfig, names []string) ([]*collect.Task, error) {
	byName := make(map[string]collect.TaskConfig, len(cfgs))
	for _, cfg := range cfgs {
		byName[cfg.Name] = cfg
	}
	if len(names) == 0 {
		for _, cfg := range cfgs {
			names = append(names, cfg.Name)
		}
	}

	tasks := make([]*collect.Task, 0, len(names))
	for _, name := range names {
		tmpl, ok := parse.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown spider %q", name)
		}
		cfg, ok := byName[name]
		if !ok {
			cfg = collect.TaskConfig{Name: name, MaxDepth: tmpl.MaxDepth}
		}

		opts := []collect.Option{
			collect.WithName(name),
			collect.WithAllowedDomains(tmpl.AllowedDomains...),
			collect.WithLogger(logger.Named(name)),
			collect.WithStorage(s),
			collect.WithCookie(cfg.Cookie),
			collect.WithWaitTime(cfg.WaitTime),
			collect.WithReload(cfg.Reload),
			collect.WithMaxDepth(cfg.MaxDepth),
		}
		if cfg.Fetcher != "" {
			f, ok := fetchers[cfg.Fetcher]
			if !ok {
				return nil, fmt.Errorf("task %s: unknown fetcher %q", name, cfg.Fetcher)
			}
			opts = append(opts, collect.WithFetcher(f))
		}

		var specs []limiter.Spec
		for _, lcfg := range cfg.Limits {
			specs = append(specs, limiter.Spec{
				EventCount: lcfg.EventCount,
				EventDur:   time.Duration(lcfg.EventDur) * time.Second,
				Bucket:     lcfg.Bucket,
			})
		}
		if l := limiter.Build(specs...); l != nil {
			opts = append(opts, collect.WithLimit(l))
		}

		t := collect.NewTask(opts...)
		t.Rule = tmpl.Rule
		tasks = append(tasks, t)
		logger.Debug("task ready", zap.String("task", name), zap.Any("config", cfg))
	}
	return tasks, nil
}
