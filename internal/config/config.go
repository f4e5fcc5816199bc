package config

// config.go — YAML project config: root, language servers per extension, tasks.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is looked up in the project root when no path is given.
	DefaultFileName = ".hide.yaml"

	DefaultNotifyTimeout = 10 * time.Second
	DefaultTaskTimeout   = 2 * time.Minute
)

// Config describes the project served and the language servers that
// produce diagnostics for it.
type Config struct {
	Root string `yaml:"root"`

	// NotifyTimeout bounds the wait for publishDiagnostics after an edit.
	NotifyTimeout time.Duration `yaml:"notifyTimeout"`

	// LanguageServers is keyed by file extension, including the dot (".go").
	LanguageServers map[string]*LanguageServer `yaml:"languageServers"`

	// Tasks are shell commands runnable by alias.
	Tasks []Task `yaml:"tasks"`

	// TaskTimeout applies to tasks run without an explicit timeout.
	TaskTimeout time.Duration `yaml:"taskTimeout"`
}

// Task is a shell command run in the project root.
type Task struct {
	Alias   string `yaml:"alias" json:"alias"`
	Command string `yaml:"command" json:"command"`
}

// LanguageServer is a command speaking LSP over stdio.
type LanguageServer struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

var (
	// ErrNoCommand indicates a language server or task without a command.
	ErrNoCommand = errors.New("command is required")

	ErrDuplicateAlias = errors.New("duplicate task alias")
)

// Default returns the configuration used when no file exists.
func Default(root string) *Config {
	return &Config{
		Root:            root,
		NotifyTimeout:   DefaultNotifyTimeout,
		TaskTimeout:     DefaultTaskTimeout,
		LanguageServers: map[string]*LanguageServer{},
	}
}

// Load decodes the config file at path. A missing file yields Default(root).
// A relative Root in the file is resolved against the file's directory.
func Load(path, root string) (*Config, error) {
	cfg := Default(root)
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = filepath.Join(root, DefaultFileName)
	}
	data, err := os.ReadFile(trimmed)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Root == "" {
		cfg.Root = root
	} else if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(trimmed), cfg.Root)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes extension keys and fills defaults.
func (c *Config) Validate() error {
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = DefaultNotifyTimeout
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = DefaultTaskTimeout
	}
	servers := make(map[string]*LanguageServer, len(c.LanguageServers))
	for ext, ls := range c.LanguageServers {
		if ls == nil || strings.TrimSpace(ls.Command) == "" {
			return fmt.Errorf("language server %s: %w", ext, ErrNoCommand)
		}
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		servers[ext] = ls
	}
	c.LanguageServers = servers

	seen := make(map[string]bool, len(c.Tasks))
	for i, task := range c.Tasks {
		if strings.TrimSpace(task.Command) == "" {
			return fmt.Errorf("task %q: %w", task.Alias, ErrNoCommand)
		}
		if task.Alias == "" {
			c.Tasks[i].Alias = task.Command
		}
		if seen[c.Tasks[i].Alias] {
			return fmt.Errorf("%w: %s", ErrDuplicateAlias, c.Tasks[i].Alias)
		}
		seen[c.Tasks[i].Alias] = true
	}
	return nil
}

// Task returns the task registered under alias.
func (c *Config) Task(alias string) (Task, bool) {
	for _, t := range c.Tasks {
		if t.Alias == alias {
			return t, true
		}
	}
	return Task{}, false
}

// ServerFor returns the language server configured for path's extension.
func (c *Config) ServerFor(path string) (*LanguageServer, bool) {
	ls, ok := c.LanguageServers[strings.ToLower(filepath.Ext(path))]
	return ls, ok
}
