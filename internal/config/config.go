package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	BaseURL   string `json:"base_url"`
	Token     string `json:"token"`
	TimeoutMS int    `json:"timeout_ms"`
}

type HubConfig struct {
	ReconnectDelaysMS  []int `json:"reconnect_delays_ms"`
	HandshakeTimeoutMS int   `json:"handshake_timeout_ms"`
}

type StorageConfig struct {
	BaseDir            string `json:"base_dir"`
	DBName             string `json:"db_name"`
	ScrollbackMaxBytes int    `json:"scrollback_max_bytes"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	Redaction bool   `json:"redaction"`
}

type UIConfig struct {
	// Locale 界面语言（en / zh-CN），为空时按环境变量检测。
	// Locale is the UI language (en / zh-CN); detected from the environment when empty.
	Locale string `json:"locale"`
	// Plain 强制使用行模式控制台而不是全屏界面。
	// Plain forces the line-mode console instead of the full-screen view.
	Plain bool `json:"plain"`
}

type Config struct {
	API     APIConfig     `json:"api"`
	Hub     HubConfig     `json:"hub"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
	UI      UIConfig      `json:"ui"`
}

type fileHubConfig struct {
	ReconnectDelaysMS  *[]int `json:"reconnect_delays_ms"`
	HandshakeTimeoutMS *int   `json:"handshake_timeout_ms"`
}

type fileLoggingConfig struct {
	Level     *string `json:"level"`
	File      *string `json:"file"`
	Redaction *bool   `json:"redaction"`
}

type fileUIConfig struct {
	Locale *string `json:"locale"`
	Plain  *bool   `json:"plain"`
}

type fileConfig struct {
	API     *APIConfig         `json:"api"`
	Hub     *fileHubConfig     `json:"hub"`
	Storage *StorageConfig     `json:"storage"`
	Logging *fileLoggingConfig `json:"logging"`
	UI      *fileUIConfig      `json:"ui"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000",
			TimeoutMS: DefaultAPITimeoutMS,
		},
		Hub: HubConfig{
			ReconnectDelaysMS:  append([]int(nil), DefaultReconnectDelaysMS...),
			HandshakeTimeoutMS: DefaultHandshakeTimeoutMS,
		},
		Storage: StorageConfig{
			BaseDir:            DefaultBaseDir,
			DBName:             DefaultDBName,
			ScrollbackMaxBytes: DefaultScrollbackMaxBytes,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Redaction: true,
		},
	}
}

// Load 按优先级合并配置：默认值 → 全局配置 → 项目或显式配置 → 环境变量
// Load merges configuration in order: defaults, global file, project or explicit file, environment.
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("OVPN_CONSOLE_CONFIG")); envPath != "" && resolvedPath == "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

// DBPath is the scrollback database file.
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.BaseDir, c.Storage.DBName)
}

// LogPath is the log file; relative names live under the data directory.
func (c Config) LogPath() string {
	if filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(c.Storage.BaseDir, c.Logging.File)
}

// ReconnectDelays converts the configured delays to durations.
func (c Config) ReconnectDelays() []time.Duration {
	out := make([]time.Duration, 0, len(c.Hub.ReconnectDelaysMS))
	for _, ms := range c.Hub.ReconnectDelaysMS {
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out
}

func (c Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutMS) * time.Millisecond
}

func (c Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Hub.HandshakeTimeoutMS) * time.Millisecond
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".ovpn-console", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		DefaultProjectConfigFileName,
		".ovpn-console/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.API != nil {
		cfg.API = mergeAPI(cfg.API, *fc.API)
	}
	if fc.Hub != nil {
		if fc.Hub.ReconnectDelaysMS != nil {
			cfg.Hub.ReconnectDelaysMS = append([]int{}, (*fc.Hub.ReconnectDelaysMS)...)
		}
		if fc.Hub.HandshakeTimeoutMS != nil {
			cfg.Hub.HandshakeTimeoutMS = *fc.Hub.HandshakeTimeoutMS
		}
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.Logging != nil {
		if fc.Logging.Level != nil {
			cfg.Logging.Level = *fc.Logging.Level
		}
		if fc.Logging.File != nil {
			cfg.Logging.File = *fc.Logging.File
		}
		if fc.Logging.Redaction != nil {
			cfg.Logging.Redaction = *fc.Logging.Redaction
		}
	}
	if fc.UI != nil {
		if fc.UI.Locale != nil {
			cfg.UI.Locale = *fc.UI.Locale
		}
		if fc.UI.Plain != nil {
			cfg.UI.Plain = *fc.UI.Plain
		}
	}
}

func mergeAPI(base APIConfig, override APIConfig) APIConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Token) != "" {
		base.Token = override.Token
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	return base
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	if strings.TrimSpace(override.DBName) != "" {
		base.DBName = override.DBName
	}
	if override.ScrollbackMaxBytes > 0 {
		base.ScrollbackMaxBytes = override.ScrollbackMaxBytes
	}
	return base
}

func normalize(cfg *Config) error {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = Default().API.BaseURL
	}
	cfg.API.Token = strings.TrimSpace(cfg.API.Token)
	if cfg.API.TimeoutMS <= 0 {
		cfg.API.TimeoutMS = DefaultAPITimeoutMS
	}

	// 空列表表示断线后不重连；负值视为 0。
	delays := make([]int, 0, len(cfg.Hub.ReconnectDelaysMS))
	for _, ms := range cfg.Hub.ReconnectDelaysMS {
		if ms < 0 {
			ms = 0
		}
		delays = append(delays, ms)
	}
	cfg.Hub.ReconnectDelaysMS = delays
	if cfg.Hub.HandshakeTimeoutMS <= 0 {
		cfg.Hub.HandshakeTimeoutMS = DefaultHandshakeTimeoutMS
	}

	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = DefaultBaseDir
	}
	baseDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	cfg.Storage.BaseDir = baseDir
	cfg.Storage.DBName = strings.TrimSpace(cfg.Storage.DBName)
	if cfg.Storage.DBName == "" {
		cfg.Storage.DBName = DefaultDBName
	}
	if cfg.Storage.ScrollbackMaxBytes <= 0 {
		cfg.Storage.ScrollbackMaxBytes = DefaultScrollbackMaxBytes
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	if cfg.Logging.File == "" {
		cfg.Logging.File = DefaultLogFile
	} else if strings.HasPrefix(cfg.Logging.File, "~") {
		logFile, err := expandPath(cfg.Logging.File)
		if err != nil {
			return err
		}
		cfg.Logging.File = logFile
	}

	cfg.UI.Locale = strings.TrimSpace(cfg.UI.Locale)
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("OVPN_API_URL")); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OVPN_API_TOKEN")); v != "" {
		cfg.API.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("OVPN_DATA_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("OVPN_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("OVPN_LANG")); v != "" {
		cfg.UI.Locale = v
	}
	if v := strings.TrimSpace(os.Getenv("OVPN_SCROLLBACK_MAX_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid OVPN_SCROLLBACK_MAX_BYTES: %q", v)
		}
		cfg.Storage.ScrollbackMaxBytes = n
	}

	return cfg, normalize(&cfg)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
