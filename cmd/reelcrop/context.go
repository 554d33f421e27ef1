package main

import (
	"log/slog"
	"strings"
	"sync"

	"reelcrop/internal/adapters/cookies"
	"reelcrop/internal/adapters/downloader"
	"reelcrop/internal/adapters/execrunner"
	"reelcrop/internal/adapters/ffmpeg"
	"reelcrop/internal/adapters/localstorage"
	"reelcrop/internal/adapters/telegram"
	"reelcrop/internal/adapters/ytdlp"
	"reelcrop/internal/config"
	"reelcrop/internal/core/ports"
	"reelcrop/internal/logging"
	"reelcrop/internal/service"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
	closeLog   func() error
	loggerErr  error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, envFlag: envFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFlag != nil && strings.TrimSpace(*c.envFlag) != "" {
			if err := config.LoadDotEnv(strings.TrimSpace(*c.envFlag)); err != nil {
				c.configErr = err
				return
			}
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.log, c.closeLog, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			File:   cfg.Logging.File,
		})
	})
	return c.log, c.loggerErr
}

// close releases the log file once the command is done.
func (c *commandContext) close() {
	if c.closeLog != nil {
		_ = c.closeLog()
	}
}

// pipeline holds the wired collaborators shared by serve and process.
type pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	cookies  *cookies.Store
	notifier ports.Notifier
	executor *service.Executor
}

func newNotifier(cfg *config.Config, logger *slog.Logger) ports.Notifier {
	if !cfg.NotificationsEnabled() {
		logger.Warn("telegram credentials not configured, notifications disabled")
		return telegram.Noop{}
	}
	return telegram.NewNotifier(telegram.Target{
		BotToken:   cfg.Telegram.BotToken,
		ChatID:     cfg.Telegram.ChatID,
		APIBaseURL: cfg.Telegram.APIBaseURL,
	}, logger)
}

func (c *commandContext) buildPipeline() (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}

	runner := execrunner.New(logger)
	userAgent := cfg.Tools.UserAgent
	if userAgent == "" {
		userAgent = ytdlp.DefaultUserAgent
	}
	fetcher := downloader.NewRouter(
		downloader.NewHTTPDownloader(userAgent),
		ytdlp.NewYtDlpDownloader(cfg.Tools.YtDlp, runner, logger).WithUserAgent(userAgent),
	)
	store := cookies.NewStore(cfg.Paths.CookiesFile)
	notifier := newNotifier(cfg, logger)

	exec := service.NewExecutor(service.Dependencies{
		Fetcher:    fetcher,
		Transcoder: ffmpeg.NewTranscoder(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, runner, logger),
		Notifier:   notifier,
		Workspace:  localstorage.NewLocalStorage(cfg.Paths.WorkDir),
		Cookies:    store,
	}, service.Options{
		Workers:   cfg.Executor.Workers,
		QueueSize: cfg.Executor.QueueSize,
	}, logger)

	return &pipeline{
		cfg:      cfg,
		logger:   logger,
		cookies:  store,
		notifier: notifier,
		executor: exec,
	}, nil
}
