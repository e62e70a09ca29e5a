// Package setup wires the OncoGuide MCP server into MCP client
// configurations, currently Claude Desktop.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const serverName = "oncoguide"

// ClientConfig represents an MCP client configuration file.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
}

// ServerEntry represents a single MCP server configuration.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the setup process.
type Options struct {
	BinaryPath  string // path to the mcp-server binary
	DataDir     string // data directory for history and exports
	AutoConfirm bool   // skip confirmation prompts
}

// ClientConfigPath returns the path to Claude Desktop's config file for the
// current platform.
func ClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "Claude")
		} else {
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig loads an existing client configuration, returning an
// empty one when the file does not exist yet.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClientConfig{
				MCPServers: make(map[string]ServerEntry),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ClientConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.MCPServers == nil {
		config.MCPServers = make(map[string]ServerEntry)
	}

	return &config, nil
}

// SaveClientConfig writes the configuration back, creating the directory if
// needed. Other configured servers are preserved.
func SaveClientConfig(configPath string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Configure adds or updates the OncoGuide server entry in the client config.
func Configure(opts Options) error {
	configPath, err := ClientConfigPath()
	if err != nil {
		return err
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := ServerEntry{
		Command: binaryPath,
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env["ONCOGUIDE_DATA_DIR"] = opts.DataDir
	}

	config.MCPServers[serverName] = entry

	return SaveClientConfig(configPath, config)
}

// findBinary attempts to find the server binary in common locations.
func findBinary() (string, error) {
	const binaryName = "mcp-server"

	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./build/" + binaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", binaryName),
		"/usr/local/bin/" + binaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if absPath, err := filepath.Abs(loc); err == nil {
				return absPath, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary %q not found in common locations", binaryName)
}

// Status describes the current setup state.
type Status struct {
	ClientConfigured bool
	ClientConfigPath string
	ServerPath       string
	DataDir          string
	Issues           []string
}

// GetStatus inspects the client config and data directory.
func GetStatus() (*Status, error) {
	status := &Status{Issues: []string{}}

	configPath, err := ClientConfigPath()
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not determine client config path: %v", err))
	} else {
		status.ClientConfigPath = configPath

		config, err := LoadClientConfig(configPath)
		if err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("Could not load client config: %v", err))
		} else if entry, ok := config.MCPServers[serverName]; ok {
			status.ClientConfigured = true
			status.ServerPath = entry.Command

			if _, err := os.Stat(entry.Command); os.IsNotExist(err) {
				status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
			}
			status.DataDir = entry.Env["ONCOGUIDE_DATA_DIR"]
		}
	}

	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}
	if _, err := os.Stat(status.DataDir); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Data directory does not exist yet: %s", status.DataDir))
	}

	return status, nil
}

// Validate reports whether the current setup would let an MCP client start
// the server.
func Validate() (bool, []string) {
	var issues []string

	configPath, err := ClientConfigPath()
	if err != nil {
		return false, append(issues, fmt.Sprintf("Cannot find client config: %v", err))
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return false, append(issues, fmt.Sprintf("Cannot load client config: %v", err))
	}

	entry, ok := config.MCPServers[serverName]
	if !ok {
		return false, append(issues, "OncoGuide is not configured in the MCP client")
	}

	if info, err := os.Stat(entry.Command); os.IsNotExist(err) {
		issues = append(issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
	} else if err == nil && info.Mode()&0111 == 0 {
		issues = append(issues, fmt.Sprintf("Server binary is not executable: %s", entry.Command))
	}

	return len(issues) == 0, issues
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".oncoguide")
}
