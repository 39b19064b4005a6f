// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Library struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"library"`

	Download struct {
		// Dir is the orchestrator's view of the completed-download
		// directory. Download clients may see it under another mount;
		// per-client path mappings translate between the two.
		Dir string `mapstructure:"dir"`
	} `mapstructure:"download"`

	// Sweep intervals, in minutes. Zero disables a sweep.
	ScanInterval       int `mapstructure:"scan_interval"`
	MonitorInterval    int `mapstructure:"monitor_interval"`
	CleanupInterval    int `mapstructure:"cleanup_interval"`
	RetrySweepInterval int `mapstructure:"retry_sweep_interval"`

	Search struct {
		// AutoThreshold is the minimum score (out of 100) a candidate
		// needs to be grabbed without human review.
		AutoThreshold float64 `mapstructure:"auto_threshold"`
		MaxAttempts   int     `mapstructure:"max_attempts"`
		MaxResults    int     `mapstructure:"max_results"`
	} `mapstructure:"search"`

	Approval struct {
		// AutoApproveDefault applies when a user has no explicit
		// auto-approve flag. Defaults to true for compatibility with
		// deployments that predate the approval gate.
		AutoApproveDefault bool `mapstructure:"auto_approve_default"`
	} `mapstructure:"approval"`

	Ebook struct {
		// AutoRequest queues a companion ebook request alongside each
		// audiobook request. See EbookAutoRequest() for how this
		// interacts with the legacy top-level download_ebooks flag.
		AutoRequest bool `mapstructure:"auto_request"`
	} `mapstructure:"ebook"`

	// DownloadEbooks is the legacy flag kept for existing deployments.
	DownloadEbooks bool `mapstructure:"download_ebooks"`

	Seeding struct {
		Unlimited        bool    `mapstructure:"unlimited"`
		RatioLimit       float64 `mapstructure:"ratio_limit"`
		TimeLimitMinutes int     `mapstructure:"time_limit_minutes"`
	} `mapstructure:"seeding"`

	Indexer struct {
		URL    string `mapstructure:"url"`
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"indexer"`

	Metadata struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"metadata"`

	MediaServer struct {
		Type  string `mapstructure:"type"` // "audiobookshelf" or "plex"
		URL   string `mapstructure:"url"`
		Token string `mapstructure:"token"`
	} `mapstructure:"media_server"`

	Notify struct {
		WebhookURL string `mapstructure:"webhook_url"`
	} `mapstructure:"notify"`

	// ebookAutoRequestSet records whether ebook.auto_request was present
	// in the config file, as opposed to defaulted.
	ebookAutoRequestSet bool
}

// EbookAutoRequest resolves the dual-flag ebook setting: the new
// ebook.auto_request key wins when it was explicitly set, otherwise the
// legacy download_ebooks flag applies.
func (c *Config) EbookAutoRequest() bool {
	if c.ebookAutoRequestSet {
		return c.Ebook.AutoRequest
	}
	return c.DownloadEbooks
}

// SetEbookAutoRequest overrides the dual-flag resolution, marking the new
// flag as explicitly present.
func (c *Config) SetEbookAutoRequest(v bool) {
	c.Ebook.AutoRequest = v
	c.ebookAutoRequestSet = true
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// e.g., AUDIARR_DATABASE_PATH overrides the `database.path` key.
	viper.SetEnvPrefix("AUDIARR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("debug", false)
	viper.SetDefault("database.path", "./audiarr.db")
	viper.SetDefault("library.path", "./audiobooks")
	viper.SetDefault("download.dir", "./downloads")
	viper.SetDefault("scan_interval", 60)
	viper.SetDefault("monitor_interval", 1)
	viper.SetDefault("cleanup_interval", 360)
	viper.SetDefault("retry_sweep_interval", 240)
	viper.SetDefault("search.auto_threshold", 30)
	viper.SetDefault("search.max_attempts", 3)
	viper.SetDefault("search.max_results", 100)
	viper.SetDefault("approval.auto_approve_default", true)
	viper.SetDefault("ebook.auto_request", false)
	viper.SetDefault("download_ebooks", false)
	viper.SetDefault("seeding.unlimited", false)
	viper.SetDefault("seeding.ratio_limit", 1.0)
	viper.SetDefault("seeding.time_limit_minutes", 0)
	viper.SetDefault("metadata.region", "us")
	viper.SetDefault("media_server.type", "audiobookshelf")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.ebookAutoRequestSet = viper.InConfig("ebook.auto_request")

	return &config, nil
}

// ForTest builds a minimal Config for tests without touching viper state.
func ForTest(libraryPath, downloadDir string) *Config {
	cfg := &Config{}
	cfg.Library.Path = libraryPath
	cfg.Download.Dir = downloadDir
	cfg.Database.Path = ":memory:"
	cfg.Search.AutoThreshold = 30
	cfg.Search.MaxAttempts = 3
	cfg.Search.MaxResults = 100
	cfg.Approval.AutoApproveDefault = true
	cfg.Seeding.RatioLimit = 1.0
	return cfg
}
