package config

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnalyzerConfig holds the settings of a single analysis run.
type AnalyzerConfig struct {
	ReportSize     int    `yaml:"report_size"`
	MaxParseErrors int    `yaml:"max_parse_errors"`
	LogDir         string `yaml:"log_dir"`
	LogPrefix      string `yaml:"log_prefix"`
	ReportDir      string `yaml:"report_dir"`
	TSPath         string `yaml:"ts_path"`
}

// LoggingConfig defines where the process log goes. An empty path means stdout.
type LoggingConfig struct {
	Path string `yaml:"path"`
}

// HTMLConfig defines the template used by the html writer.
type HTMLConfig struct {
	TemplatePath string `yaml:"template_path"`
}

// RootPathConfig is shared by writers that store files under a directory.
type RootPathConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single report writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	HTML       HTMLConfig       `yaml:"html"`
	Snapshot   RootPathConfig   `yaml:"snapshot"`
	Text       RootPathConfig   `yaml:"text"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// PublisherConfig holds the NATS settings for report fan-out.
type PublisherConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// AlerterRule defines a single threshold check against a finished report.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// AIAnalysisConfig toggles AI commentary in alert notifications.
type AIAnalysisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Timeout string `yaml:"timeout"`
}

// AlerterConfig holds the alerting rules.
type AlerterConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Rules      []AlerterRule    `yaml:"rules"`
	AIAnalysis AIAnalysisConfig `yaml:"ai_analysis"`
}

// SMTPConfig holds the settings of the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// AIConfig holds the OpenAI compatible endpoint settings.
type AIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// APIConfig holds the listen addresses of ls-api.
type APIConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	GRPCListenAddr string `yaml:"grpc_listen_addr"`
	Source         string `yaml:"source"` // "snapshot" or "clickhouse"
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Logging   LoggingConfig   `yaml:"logging"`
	Writers   []WriterDef     `yaml:"writers"`
	Publisher PublisherConfig `yaml:"publisher"`
	Alerter   AlerterConfig   `yaml:"alerter"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	AI        AIConfig        `yaml:"ai"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			ReportSize:     1000,
			MaxParseErrors: 200,
			LogDir:         "./log",
			LogPrefix:      "nginx-access-ui.log-",
			ReportDir:      "./reports",
			TSPath:         "./log_analyzer.ts",
		},
		Writers: []WriterDef{
			{Type: "html", Enabled: true, HTML: HTMLConfig{TemplatePath: "./templates/report.html"}},
		},
		Publisher: PublisherConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "logspectra.reports",
		},
		API: APIConfig{
			ListenAddr:     ":8080",
			GRPCListenAddr: ":9090",
			Source:         "snapshot",
		},
	}
}

// LoadConfig reads the configuration file on top of Default.
// .yaml/.yml files are YAML; anything else uses the legacy "KEY: value" format.
// An empty path returns the defaults.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	default:
		if err := parseLegacy(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a run cannot work without.
func (c *Config) Validate() error {
	if c.Analyzer.ReportSize <= 0 {
		return fmt.Errorf("report_size must be positive, got %d", c.Analyzer.ReportSize)
	}
	if c.Analyzer.LogDir == "" || c.Analyzer.ReportDir == "" {
		return fmt.Errorf("log_dir and report_dir must be set")
	}
	return nil
}

// parseLegacy applies "KEY: value" lines. Double quotes around values are dropped.
func parseLegacy(data []byte, cfg *Config) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("line %d: expected KEY: value, got %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(strings.ReplaceAll(value, `"`, ""))

		switch key {
		case "REPORT_SIZE", "MAX_PARSE_ERRORS":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("line %d: %s must be an integer: %w", lineNo, key, err)
			}
			if key == "REPORT_SIZE" {
				cfg.Analyzer.ReportSize = n
			} else {
				cfg.Analyzer.MaxParseErrors = n
			}
		case "REPORT_DIR":
			cfg.Analyzer.ReportDir = value
		case "LOG_DIR":
			cfg.Analyzer.LogDir = value
		case "LOG_PATH":
			cfg.Logging.Path = value
		case "TS_PATH":
			cfg.Analyzer.TSPath = value
		case "TEMPLATE_PATH":
			for i := range cfg.Writers {
				if cfg.Writers[i].Type == "html" {
					cfg.Writers[i].HTML.TemplatePath = value
				}
			}
		default:
			log.Printf("Warning: unknown config key %q on line %d, ignoring.", key, lineNo)
		}
	}
	return scanner.Err()
}
