package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Remote   RemoteConfig   `toml:"remote"`
	Board    BoardConfig    `toml:"board"`
	Reorder  ReorderConfig  `toml:"reorder"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// RemoteConfig points the TUI at a remote board server instead of the
// embedded local store. An empty base URL means local mode. BoardID names
// the board to open on the remote server.
type RemoteConfig struct {
	BaseURL string `toml:"base_url"`
	BoardID string `toml:"board_id"`
}

type BoardConfig struct {
	DefaultName string          `toml:"default_name"`
	Sections    []SectionConfig `toml:"sections"`
}

type SectionConfig struct {
	Name     string `toml:"name"`
	Position int    `toml:"position"`
}

// ReorderConfig tunes the drag engine. Intervals are milliseconds.
type ReorderConfig struct {
	HoverIntervalMS int `toml:"hover_interval_ms"`
	MinDragDistance int `toml:"min_drag_distance"`
}

func defaultSections() []SectionConfig {
	return []SectionConfig{
		{Name: "To Do", Position: 0},
		{Name: "In Progress", Position: 1},
		{Name: "Done", Position: 2},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Board: BoardConfig{
			DefaultName: "Board",
			Sections:    defaultSections(),
		},
		Reorder: ReorderConfig{
			HoverIntervalMS: 100,
			MinDragDistance: 0,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if baseURL := strings.TrimSpace(c.Remote.BaseURL); baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid remote.base_url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("remote.base_url must be http or https, got %q", baseURL)
		}
		if parsed.Host == "" {
			return fmt.Errorf("remote.base_url is missing a host: %q", baseURL)
		}
		if strings.TrimSpace(c.Remote.BoardID) == "" {
			return errors.New("remote.board_id is required when remote.base_url is set")
		}
	}

	if len(c.Board.Sections) == 0 {
		return errors.New("board.sections must include at least one section")
	}
	seenName := map[string]struct{}{}
	for idx := range c.Board.Sections {
		section := c.Board.Sections[idx]
		section.Name = strings.TrimSpace(section.Name)
		if section.Name == "" {
			return fmt.Errorf("board.sections[%d].name is required", idx)
		}
		if section.Position < 0 {
			return fmt.Errorf("board.sections[%d].position must be >= 0", idx)
		}
		key := strings.ToLower(section.Name)
		if _, ok := seenName[key]; ok {
			return fmt.Errorf("board.sections[%d].name is duplicated: %s", idx, section.Name)
		}
		seenName[key] = struct{}{}
		c.Board.Sections[idx] = section
	}

	if c.Reorder.HoverIntervalMS < 0 {
		return errors.New("reorder.hover_interval_ms must be >= 0")
	}
	if c.Reorder.MinDragDistance < 0 {
		return errors.New("reorder.min_drag_distance must be >= 0")
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
