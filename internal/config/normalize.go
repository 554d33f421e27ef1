package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables that override file values.
const (
	EnvBotToken  = "TELEGRAM_BOT_TOKEN"
	EnvChatID    = "MY_CHAT_ID"
	EnvListen    = "REELCROP_LISTEN"
	EnvWorkDir   = "REELCROP_WORK_DIR"
	EnvCookies   = "REELCROP_COOKIES"
	EnvAPIToken  = "REELCROP_API_TOKEN"
	EnvWorkers   = "REELCROP_WORKERS"
	EnvLogLevel  = "REELCROP_LOG_LEVEL"
	EnvLogFormat = "REELCROP_LOG_FORMAT"
)

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strOverrides := []struct {
		key string
		dst *string
	}{
		{EnvBotToken, &c.Telegram.BotToken},
		{EnvChatID, &c.Telegram.ChatID},
		{EnvListen, &c.Server.Listen},
		{EnvWorkDir, &c.Paths.WorkDir},
		{EnvCookies, &c.Paths.CookiesFile},
		{EnvAPIToken, &c.Server.APIToken},
		{EnvLogLevel, &c.Logging.Level},
		{EnvLogFormat, &c.Logging.Format},
	}
	for _, o := range strOverrides {
		if v, ok := lookup(o.key); ok && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Executor.Workers = n
	}
	return nil
}

func (c *Config) normalize() error {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	c.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	c.Server.Listen = strings.TrimSpace(c.Server.Listen)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	var err error
	if c.Paths.WorkDir, err = ExpandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return err
	}
	if c.Paths.CookiesFile, err = ExpandPath(strings.TrimSpace(c.Paths.CookiesFile)); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return err
	}
	return nil
}
