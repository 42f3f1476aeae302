// Package config loads host settings from .env, an optional YAML file and
// NOET_* environment variables, and the locator catalog.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Site      SiteConfig      `mapstructure:"site"`
	Timing    TimingConfig    `mapstructure:"timing"`
	Transport TransportConfig `mapstructure:"transport"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// BrowserConfig selects and tunes the browser driver
type BrowserConfig struct {
	Driver           string  `mapstructure:"driver"`
	Headless         bool    `mapstructure:"headless"`
	SlowMo           float64 `mapstructure:"slow_mo"`
	StateDir         string  `mapstructure:"state_dir"`
	ChromedriverPath string  `mapstructure:"chromedriver_path"`
	ChromeBinary     string  `mapstructure:"chrome_binary"`
	UserDataDir      string  `mapstructure:"user_data_dir"`
	SeleniumPort     int     `mapstructure:"selenium_port"`
}

// SiteConfig points at an optional locator override file
type SiteConfig struct {
	LocatorsFile string `mapstructure:"locators_file"`
}

// TimingConfig scales human pacing and bounds DOM probes
type TimingConfig struct {
	Scale             float64       `mapstructure:"scale"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout"`
	UploadTimeout     time.Duration `mapstructure:"upload_timeout"`
}

// TransportConfig configures both channels to the controller
type TransportConfig struct {
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	Native         NativeConfig  `mapstructure:"native"`
	Socket         SocketConfig  `mapstructure:"socket"`
}

// NativeConfig configures the native-messaging channel
type NativeConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	HostName     string   `mapstructure:"host_name"`
	ManifestDirs []string `mapstructure:"manifest_dirs"`
}

// SocketConfig configures the loopback WebSocket channel
type SocketConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// Load reads configuration from .env, file and env. Env var overrides use
// prefix NOET_, e.g. NOET_BROWSER_DRIVER=selenium.
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if cfgPath := os.Getenv("NOET_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(homeDir(), ".config", "noet"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("NOET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("browser.driver", "playwright")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.state_dir", filepath.Join(homeDir(), ".local", "share", "noet"))
	v.SetDefault("browser.chromedriver_path", "chromedriver")
	v.SetDefault("browser.chrome_binary", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.selenium_port", 9515)

	v.SetDefault("site.locators_file", "")

	v.SetDefault("timing.scale", 1.0)
	v.SetDefault("timing.navigation_timeout", 30*time.Second)
	v.SetDefault("timing.element_timeout", 10*time.Second)
	v.SetDefault("timing.upload_timeout", 60*time.Second)

	v.SetDefault("transport.reconnect_delay", time.Second)
	v.SetDefault("transport.native.enabled", true)
	v.SetDefault("transport.native.host_name", "com.noet.host")
	v.SetDefault("transport.native.manifest_dirs", DefaultManifestDirs())
	v.SetDefault("transport.socket.enabled", true)
	v.SetDefault("transport.socket.url", "ws://127.0.0.1:9876")
}

// Validate rejects settings the host cannot start with
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Browser.Driver {
	case "playwright", "selenium":
	default:
		return fmt.Errorf("browser.driver: unsupported driver %q", c.Browser.Driver)
	}
	if c.Timing.Scale < 0 {
		return fmt.Errorf("timing.scale must not be negative")
	}
	if c.Transport.ReconnectDelay <= 0 {
		return fmt.Errorf("transport.reconnect_delay must be positive")
	}
	if c.Transport.Native.Enabled && c.Transport.Native.HostName == "" {
		return fmt.Errorf("transport.native.host_name is required")
	}
	if c.Transport.Socket.Enabled && c.Transport.Socket.URL == "" {
		return fmt.Errorf("transport.socket.url is required")
	}
	return nil
}

// NewLogger builds the process logger. Logs go to stderr.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// DefaultManifestDirs lists where Chromium-based browsers look for
// native-messaging host manifests on this platform
func DefaultManifestDirs() []string {
	home := homeDir()
	switch runtime.GOOS {
	case "darwin":
		base := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(base, "Google", "Chrome", "NativeMessagingHosts"),
			filepath.Join(base, "Chromium", "NativeMessagingHosts"),
			"/Library/Google/Chrome/NativeMessagingHosts",
		}
	case "windows":
		return []string{filepath.Join(os.Getenv("LOCALAPPDATA"), "noet", "NativeMessagingHosts")}
	default:
		return []string{
			filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"),
			filepath.Join(home, ".config", "chromium", "NativeMessagingHosts"),
			"/etc/opt/chrome/native-messaging-hosts",
		}
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}
