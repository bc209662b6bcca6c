package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dhcgn/arxiv2notion/logging"
)

const (
	DefaultIMAPPort      = 993
	DefaultMaxPapers     = 10
	DefaultSubject       = "cs daily Subj-class mailing"
	DefaultMailbox       = "INBOX"
	DefaultPollInterval  = 4 * time.Hour
	DefaultCheckInterval = time.Minute
	DefaultLogDir        = "logs"
)

var (
	ErrMissingIMAPHost   = errors.New("IMAP server must be provided via --imap-host or IMAP_SERVER")
	ErrMissingIMAPUser   = errors.New("email account must be provided via --imap-user or EMAIL")
	ErrMissingIMAPPass   = errors.New("email password must be provided via EMAIL_PASSWORD")
	ErrMissingNotionAuth = errors.New("notion token must be provided via NOTION_TOKEN")
	ErrMissingDatabaseID = errors.New("notion database id must be provided via --notion-database-id or NOTION_DATABASE_ID")
)

// Config holds every setting of the monitor. It is loaded once at startup.
type Config struct {
	IMAPHost           string `yaml:"imap_host"`
	IMAPPort           int    `yaml:"imap_port"`
	IMAPUser           string `yaml:"imap_user"`
	IMAPPass           string `yaml:"imap_pass"`
	UseTLS             bool   `yaml:"use_tls"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	Mailbox            string `yaml:"mailbox"`
	Subject            string `yaml:"subject"`

	NotionToken      string `yaml:"notion_token"`
	NotionDatabaseID string `yaml:"notion_database_id"`

	MaxPapers     int           `yaml:"max_papers"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	CheckInterval time.Duration `yaml:"check_interval"`
	DryRun        bool          `yaml:"dry_run"`

	ConsoleLogLevel string `yaml:"console_log_level"`
	FileLogLevel    string `yaml:"file_log_level"`
	LogDir          string `yaml:"log_dir"`
	LogMaxSizeMB    int    `yaml:"log_max_size_mb"`
	LogMaxBackups   int    `yaml:"log_max_backups"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		IMAPPort:        DefaultIMAPPort,
		UseTLS:          true,
		Mailbox:         DefaultMailbox,
		Subject:         DefaultSubject,
		MaxPapers:       DefaultMaxPapers,
		PollInterval:    DefaultPollInterval,
		CheckInterval:   DefaultCheckInterval,
		ConsoleLogLevel: "info",
		FileLogLevel:    "debug",
		LogDir:          DefaultLogDir,
		LogMaxSizeMB:    logging.DefaultMaxSizeMB,
		LogMaxBackups:   logging.DefaultMaxBackups,
	}
}

// RegisterFlags attaches the shared CLI flags to cmd as persistent flags.
// Secrets are only read from the environment or the config file.
func RegisterFlags(cmd *cobra.Command) error {
	def := Default()
	flags := cmd.PersistentFlags()
	flags.String("config", "", "Optional YAML config file")
	flags.String("env-file", ".env", "Dotenv file loaded into the environment if present")
	flags.String("imap-host", "", "IMAP server hostname (IMAP_SERVER)")
	flags.Int("imap-port", def.IMAPPort, "IMAP server port (IMAP_PORT)")
	flags.String("imap-user", "", "IMAP username (EMAIL)")
	flags.Bool("use-tls", def.UseTLS, "Use TLS for the IMAP connection (IMAP_USE_SSL)")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("mailbox", def.Mailbox, "Mailbox to search for digests (IMAP_MAILBOX)")
	flags.String("subject", def.Subject, "Subject text identifying digest messages (DIGEST_SUBJECT)")
	flags.String("notion-database-id", "", "Target Notion database (NOTION_DATABASE_ID)")
	flags.Int("max-papers", def.MaxPapers, "Maximum papers taken from one digest, 0 for no limit (MAX_PAPERS)")
	flags.Duration("poll-interval", def.PollInterval, "Time between mailbox checks (POLL_INTERVAL)")
	flags.Duration("check-interval", def.CheckInterval, "How often the scheduler wakes up (CHECK_INTERVAL)")
	flags.Bool("dry-run", false, "Parse and log papers without writing to Notion (DRY_RUN)")
	flags.String("console-log-level", def.ConsoleLogLevel, "Console log level: debug, info, warn, error (CONSOLE_LOG_LEVEL)")
	flags.String("file-log-level", def.FileLogLevel, "File log level: debug, info, warn, error (FILE_LOG_LEVEL)")
	flags.String("log-dir", def.LogDir, "Directory for rotating log files, empty to disable (LOG_DIR)")
	return nil
}

// LoadConfig layers defaults, the YAML file, the environment and changed
// flags, in that order, and validates the result.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return Config{}, err
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()

	path, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.applyFlags(cmd); err != nil {
		return Config{}, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	strs := map[string]*string{
		"IMAP_SERVER":        &c.IMAPHost,
		"EMAIL":              &c.IMAPUser,
		"EMAIL_PASSWORD":     &c.IMAPPass,
		"IMAP_MAILBOX":       &c.Mailbox,
		"DIGEST_SUBJECT":     &c.Subject,
		"NOTION_TOKEN":       &c.NotionToken,
		"NOTION_DATABASE_ID": &c.NotionDatabaseID,
		"CONSOLE_LOG_LEVEL":  &c.ConsoleLogLevel,
		"FILE_LOG_LEVEL":     &c.FileLogLevel,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	// LOG_DIR may be set to an empty value to disable the file sink.
	if v, ok := lookup("LOG_DIR"); ok {
		c.LogDir = strings.TrimSpace(v)
	}

	ints := map[string]*int{
		"IMAP_PORT":       &c.IMAPPort,
		"MAX_PAPERS":      &c.MaxPapers,
		"LOG_MAX_SIZE_MB": &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS": &c.LogMaxBackups,
	}
	for key, dst := range ints {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s must be an integer: %w", key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"IMAP_USE_SSL":              &c.UseTLS,
		"IMAP_INSECURE_SKIP_VERIFY": &c.InsecureSkipVerify,
		"DRY_RUN":                   &c.DryRun,
	}
	for key, dst := range bools {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s must be a boolean: %w", key, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"POLL_INTERVAL":  &c.PollInterval,
		"CHECK_INTERVAL": &c.CheckInterval,
	}
	for key, dst := range durations {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s must be a duration: %w", key, err)
			}
			*dst = d
		}
	}

	return nil
}

func (c *Config) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	var err error
	changed := func(name string) bool {
		return err == nil && flags.Changed(name)
	}

	if changed("imap-host") {
		c.IMAPHost, err = flags.GetString("imap-host")
	}
	if changed("imap-port") {
		c.IMAPPort, err = flags.GetInt("imap-port")
	}
	if changed("imap-user") {
		c.IMAPUser, err = flags.GetString("imap-user")
	}
	if changed("use-tls") {
		c.UseTLS, err = flags.GetBool("use-tls")
	}
	if changed("insecure-skip-verify") {
		c.InsecureSkipVerify, err = flags.GetBool("insecure-skip-verify")
	}
	if changed("mailbox") {
		c.Mailbox, err = flags.GetString("mailbox")
	}
	if changed("subject") {
		c.Subject, err = flags.GetString("subject")
	}
	if changed("notion-database-id") {
		c.NotionDatabaseID, err = flags.GetString("notion-database-id")
	}
	if changed("max-papers") {
		c.MaxPapers, err = flags.GetInt("max-papers")
	}
	if changed("poll-interval") {
		c.PollInterval, err = flags.GetDuration("poll-interval")
	}
	if changed("check-interval") {
		c.CheckInterval, err = flags.GetDuration("check-interval")
	}
	if changed("dry-run") {
		c.DryRun, err = flags.GetBool("dry-run")
	}
	if changed("console-log-level") {
		c.ConsoleLogLevel, err = flags.GetString("console-log-level")
	}
	if changed("file-log-level") {
		c.FileLogLevel, err = flags.GetString("file-log-level")
	}
	if changed("log-dir") {
		c.LogDir, err = flags.GetString("log-dir")
	}
	return err
}

func (c *Config) normalize() {
	c.ConsoleLogLevel = strings.ToLower(strings.TrimSpace(c.ConsoleLogLevel))
	c.FileLogLevel = strings.ToLower(strings.TrimSpace(c.FileLogLevel))
	c.IMAPHost = strings.TrimSpace(c.IMAPHost)
	if c.Mailbox == "" {
		c.Mailbox = DefaultMailbox
	}
}

// Validate checks settings every mode depends on.
func (c Config) Validate() error {
	if c.IMAPPort <= 0 || c.IMAPPort > 65535 {
		return fmt.Errorf("--imap-port must be between 1 and 65535")
	}
	if c.MaxPapers < 0 {
		return fmt.Errorf("--max-papers must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("--poll-interval must be positive")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("--check-interval must be positive")
	}
	if _, err := logging.ParseLevel(c.ConsoleLogLevel); err != nil {
		return fmt.Errorf("invalid --console-log-level: %w", err)
	}
	if _, err := logging.ParseLevel(c.FileLogLevel); err != nil {
		return fmt.Errorf("invalid --file-log-level: %w", err)
	}
	return nil
}

// ValidateMail checks the credentials the poll loop needs.
func (c Config) ValidateMail() error {
	if c.IMAPHost == "" {
		return ErrMissingIMAPHost
	}
	if c.IMAPUser == "" {
		return ErrMissingIMAPUser
	}
	if c.IMAPPass == "" {
		return ErrMissingIMAPPass
	}
	return nil
}

// ValidateNotion checks the credentials needed to write papers.
func (c Config) ValidateNotion() error {
	if c.NotionToken == "" {
		return ErrMissingNotionAuth
	}
	if c.NotionDatabaseID == "" {
		return ErrMissingDatabaseID
	}
	return nil
}

// Logging returns the logger options for this configuration.
func (c Config) Logging() logging.Options {
	return logging.Options{
		ConsoleLevel: c.ConsoleLogLevel,
		FileLevel:    c.FileLogLevel,
		Dir:          c.LogDir,
		MaxSizeMB:    c.LogMaxSizeMB,
		MaxBackups:   c.LogMaxBackups,
	}
}
