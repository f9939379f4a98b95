package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InitConfigScaffold 在 path 写入默认配置模板（不含 token）；文件已存在时保持不变
// InitConfigScaffold writes the default config (without a token) to path.
// An existing file is left untouched; created reports whether one was written.
func InitConfigScaffold(path string) (created bool, err error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultProjectConfigFileName
	}

	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("config path is a directory: %s", path)
		}
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	cfg := Default()
	cfg.API.Token = ""
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	if c.API.Token != "" {
		c.API.Token = "********"
	}
	c.Hub.ReconnectDelaysMS = append([]int(nil), c.Hub.ReconnectDelaysMS...)
	return c
}
