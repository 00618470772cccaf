package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

type Config struct {
	Env      string `toml:"env"`       // "dev" | "prod"
	LogLevel string `toml:"log_level"` // logrus level name

	// Credential storage
	Storage   string `toml:"storage"`    // sqlite | file | memory
	DBPath    string `toml:"db_path"`    // e.g. "./data/portunus.db"
	ImagePath string `toml:"image_path"` // e.g. "./data/credentials.bin"

	// Access flow
	AdminCode         string `toml:"admin_code"`
	Capacity          int    `toml:"capacity"`
	CredentialLengths []int  `toml:"credential_lengths"`
	GateDwellMs       int    `toml:"gate_dwell_ms"`
	FailureMs         int    `toml:"failure_ms"`
	MessageMs         int    `toml:"message_ms"`
	PollIntervalMs    int    `toml:"poll_interval_ms"`

	// Surfaces; an empty address disables the listener.
	HTTPAddr       string `toml:"http_addr"`
	GRPCAddr       string `toml:"grpc_addr"`
	VirtualInput   bool   `toml:"virtual_input"`
	TerminalKeypad bool   `toml:"terminal_keypad"`

	// "UIDHEX:CODE" pairs enrolled at boot (dev only).
	SeedCredentials []string `toml:"seed_credentials"`
}

func Defaults() Config {
	return Config{
		Env:               "dev",
		LogLevel:          "info",
		Storage:           StorageSQLite,
		DBPath:            "./data/portunus.db",
		ImagePath:         "./data/credentials.bin",
		AdminCode:         "9999",
		Capacity:          50,
		CredentialLengths: []int{4, 7},
		GateDwellMs:       3000,
		FailureMs:         1500,
		MessageMs:         2000,
		PollIntervalMs:    20,
		HTTPAddr:          ":8080",
		GRPCAddr:          ":9090",
		VirtualInput:      true,
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional TOML file named by PORTUNUS_CONFIG_FILE, and the environment, in
// that order of increasing precedence.
func Load() (Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("PORTUNUS_CONFIG_FILE")); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	cfg.Env = strings.ToLower(getenvDefault("PORTUNUS_ENV", cfg.Env))
	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}
	cfg.LogLevel = getenvDefault("PORTUNUS_LOG_LEVEL", cfg.LogLevel)

	cfg.Storage = strings.ToLower(getenvDefault("PORTUNUS_STORAGE", cfg.Storage))
	cfg.DBPath = getenvDefault("PORTUNUS_DB_PATH", cfg.DBPath)
	cfg.ImagePath = getenvDefault("PORTUNUS_IMAGE_PATH", cfg.ImagePath)

	cfg.AdminCode = strings.TrimSpace(getenvDefault("PORTUNUS_ADMIN_CODE", cfg.AdminCode))
	cfg.Capacity = getenvInt("PORTUNUS_CAPACITY", cfg.Capacity)
	if v := splitCSV(os.Getenv("PORTUNUS_CREDENTIAL_LENGTHS")); v != nil {
		cfg.CredentialLengths = atoiAll(v)
	}
	cfg.GateDwellMs = getenvInt("PORTUNUS_GATE_DWELL_MS", cfg.GateDwellMs)
	cfg.FailureMs = getenvInt("PORTUNUS_FAILURE_MS", cfg.FailureMs)
	cfg.MessageMs = getenvInt("PORTUNUS_MESSAGE_MS", cfg.MessageMs)
	cfg.PollIntervalMs = getenvInt("PORTUNUS_POLL_INTERVAL_MS", cfg.PollIntervalMs)

	// Empty disables, so these are read even when set to "".
	if v, ok := os.LookupEnv("PORTUNUS_HTTP_ADDR"); ok {
		cfg.HTTPAddr = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("PORTUNUS_GRPC_ADDR"); ok {
		cfg.GRPCAddr = strings.TrimSpace(v)
	}

	cfg.VirtualInput = getenvBool("PORTUNUS_VIRTUAL_INPUT", cfg.VirtualInput && cfg.Env == "dev")
	cfg.TerminalKeypad = getenvBool("PORTUNUS_TERMINAL_KEYPAD", cfg.TerminalKeypad)

	if v := splitCSV(os.Getenv("PORTUNUS_SEED_CREDENTIALS")); v != nil {
		cfg.SeedCredentials = v
	}
	return cfg
}

func (c Config) Validate() error {
	var errs []error

	if !isDigits(c.AdminCode, 4) {
		errs = append(errs, errors.New("admin code must be exactly 4 digits"))
	}
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity must be positive, got %d", c.Capacity))
	}
	if len(c.CredentialLengths) == 0 {
		errs = append(errs, errors.New("at least one credential length is required"))
	}
	for _, n := range c.CredentialLengths {
		if n < 1 || n > 7 {
			errs = append(errs, fmt.Errorf("credential length %d outside 1..7", n))
		}
	}
	switch c.Storage {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	for _, s := range c.SeedCredentials {
		if _, _, ok := strings.Cut(s, ":"); !ok {
			errs = append(errs, fmt.Errorf("seed credential %q is not UID:CODE", s))
		}
	}

	return errors.Join(errs...)
}

func (c Config) GateDwell() time.Duration    { return ms(c.GateDwellMs) }
func (c Config) FailureHold() time.Duration  { return ms(c.FailureMs) }
func (c Config) MessageHold() time.Duration  { return ms(c.MessageMs) }
func (c Config) PollInterval() time.Duration { return ms(c.PollIntervalMs) }

// Seeds splits SeedCredentials into UID and code.  The UID may itself use
// colon separators ("a5:81:aa:04:1234"), so the code is taken after the
// last colon.
func (c Config) Seeds() [][2]string {
	out := make([][2]string, 0, len(c.SeedCredentials))
	for _, s := range c.SeedCredentials {
		i := strings.LastIndex(s, ":")
		if i < 0 {
			continue
		}
		out = append(out, [2]string{strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])})
	}
	return out
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// atoiAll keeps unparsable entries as 0 so Validate reports them.
func atoiAll(parts []string) []int {
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i], _ = strconv.Atoi(p)
	}
	return out
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
