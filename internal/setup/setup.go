// Package setup registers the recommender MCP server with desktop MCP
// clients that read a claude_desktop_config.json style file.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ServerName is the key the recommender is registered under
const ServerName = "specialist-recommender"

// ConfigFileEnv is passed to the registered server so it finds its config
const ConfigFileEnv = "SPECIALIST_CONFIG_FILE"

// DesktopConfig represents the client configuration file structure.
type DesktopConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	// other keys in the file are kept as-is
	extra map[string]json.RawMessage
}

// ServerEntry represents a single MCP server launch configuration.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for registering the server.
type Options struct {
	BinaryPath string // Path to the mcp-server binary
	ConfigFile string // Optional service config file for the server
	Env        map[string]string
}

// DesktopConfigPath returns the client config file path for goos. getenv is
// consulted for HOME, XDG_CONFIG_HOME and APPDATA.
func DesktopConfigPath(goos string, getenv func(string) string) (string, error) {
	switch goos {
	case "darwin":
		home := getenv("HOME")
		if home == "" {
			return "", fmt.Errorf("HOME environment variable not set")
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "Claude", "claude_desktop_config.json"), nil
		}
		home := getenv("HOME")
		if home == "" {
			return "", fmt.Errorf("HOME environment variable not set")
		}
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// DefaultConfigPath returns the client config path for this machine
func DefaultConfigPath() (string, error) {
	return DesktopConfigPath(runtime.GOOS, os.Getenv)
}

// LoadDesktopConfig loads the configuration. A missing file yields an empty config.
func LoadDesktopConfig(path string) (*DesktopConfig, error) {
	config := &DesktopConfig{MCPServers: make(map[string]ServerEntry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.extra, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]ServerEntry)
	}
	return config, nil
}

// SaveDesktopConfig writes the configuration, creating the directory if needed.
func SaveDesktopConfig(path string, config *DesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(config.extra)+1)
	for k, v := range config.extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the recommender entry in the config at path.
func Register(path string, opts Options) (*ServerEntry, error) {
	if opts.BinaryPath == "" {
		return nil, fmt.Errorf("binary path is required")
	}
	binary, err := filepath.Abs(opts.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve binary path: %w", err)
	}

	config, err := LoadDesktopConfig(path)
	if err != nil {
		return nil, err
	}

	entry := ServerEntry{Command: binary, Env: make(map[string]string)}
	for k, v := range opts.Env {
		entry.Env[k] = v
	}
	if opts.ConfigFile != "" {
		configFile, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config file: %w", err)
		}
		entry.Env[ConfigFileEnv] = configFile
	}
	if len(entry.Env) == 0 {
		entry.Env = nil
	}

	config.MCPServers[ServerName] = entry
	if err := SaveDesktopConfig(path, config); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Unregister removes the recommender entry. It reports whether one existed.
func Unregister(path string) (bool, error) {
	config, err := LoadDesktopConfig(path)
	if err != nil {
		return false, err
	}
	if _, ok := config.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(config.MCPServers, ServerName)
	return true, SaveDesktopConfig(path, config)
}

// Status represents the current registration status.
type Status struct {
	ConfigPath   string
	Registered   bool
	Entry        ServerEntry
	BinaryExists bool
	Issues       []string
}

// GetStatus checks whether the recommender is registered in the config at path
func GetStatus(path string) (*Status, error) {
	status := &Status{ConfigPath: path, Issues: []string{}}

	config, err := LoadDesktopConfig(path)
	if err != nil {
		return nil, err
	}
	entry, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "specialist recommender is not registered")
		return status, nil
	}
	status.Registered = true
	status.Entry = entry

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case info.Mode()&0o111 == 0 && runtime.GOOS != "windows":
		status.BinaryExists = true
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	default:
		status.BinaryExists = true
	}

	if configFile := entry.Env[ConfigFileEnv]; configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("service config file not found: %s", configFile))
		}
	}
	return status, nil
}
