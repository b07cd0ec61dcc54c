package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Store backends
	StoreMemory = "memory"
	StoreDisk   = "disk"
	StoreSQLite = "sqlite"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultStore       = StoreDisk
	DefaultUploadDir   = "uploads"
	DefaultOutputDir   = "outputs"
	DefaultDBPath      = "data/packlist.db"
	DefaultMaxFileSize = 32 * 1024 * 1024 // 32MB

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "PACKLIST"
)

// Config holds all configuration for the packing-list converter
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Directory that file-path inputs (MCP tools) are confined to
	PDFDirectory string

	// Registry configuration
	Store       string // "memory", "disk" or "sqlite"
	UploadDir   string
	OutputDir   string
	DBPath      string
	KeepUploads bool

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
	ConfigFile  string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeServer,
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		Store:        DefaultStore,
		UploadDir:    DefaultUploadDir,
		OutputDir:    DefaultOutputDir,
		DBPath:       DefaultDBPath,
		KeepUploads:  true,
		Version:      "1.0.0",
		ServerName:   "packlist",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags, the optional config file and
// PACKLIST_* environment variables, in increasing order of precedence for
// flags explicitly set on the command line.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if err := readConfigFile(); err != nil {
		return nil, err
	}

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("store", cfg.Store)
	viper.SetDefault("uploads", cfg.UploadDir)
	viper.SetDefault("outputs", cfg.OutputDir)
	viper.SetDefault("db", cfg.DBPath)
	viper.SetDefault("keepuploads", cfg.KeepUploads)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("config", "", "Optional config file (yaml, toml or json)")
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the web application, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory that MCP file paths are confined to")
	pflag.String("store", cfg.Store, "Registry backend: memory, disk or sqlite")
	pflag.String("uploads", cfg.UploadDir, "Directory for uploaded PDFs (disk store)")
	pflag.String("outputs", cfg.OutputDir, "Directory for generated CSV files (disk store)")
	pflag.String("db", cfg.DBPath, "SQLite database path (sqlite store)")
	pflag.Bool("keepuploads", cfg.KeepUploads, "Keep the uploaded PDF next to its CSV")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"config", "mode", "host", "port", "dir", "store", "uploads",
		"outputs", "db", "keepuploads", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// readConfigFile merges the file named by --config, if any
func readConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return nil
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\npacklist - convert packing-list PDFs to CSV\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # web application on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --store=memory --port=9000        # in-memory registry\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --store=sqlite --db=/var/lib/packlist.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --dir=/path/to/pdfs  # MCP tool server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_MODE         Run mode\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_HOST         Server host\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_PORT         Server port\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_DIR          MCP directory\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_STORE        Registry backend\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_UPLOADS      Upload directory\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_OUTPUTS      Output directory\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_DB           SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_LOGLEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  PACKLIST_MAXFILESIZE  Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.ConfigFile = viper.GetString("config")
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.Store = viper.GetString("store")
	cfg.UploadDir = viper.GetString("uploads")
	cfg.OutputDir = viper.GetString("outputs")
	cfg.DBPath = viper.GetString("db")
	cfg.KeepUploads = viper.GetBool("keepuploads")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when serving HTTP
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	switch c.Store {
	case StoreMemory:
	case StoreDisk:
		if c.OutputDir == "" {
			return errors.New("output directory cannot be empty for the disk store")
		}
	case StoreSQLite:
		if c.DBPath == "" {
			return errors.New("database path cannot be empty for the sqlite store")
		}
	default:
		return fmt.Errorf("invalid store: %s (must be one of: memory, disk, sqlite)", c.Store)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Store: %s, "+
		"UploadDir: %s, OutputDir: %s, DBPath: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.Store,
		c.UploadDir, c.OutputDir, c.DBPath, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the web application should be served
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the MCP server runs over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
