package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Cfg struct {
	Database   Database
	Logger     Logger
	OpenAI     OpenAI
	Browser    Browser
	Clipper    Clipper
	Server     Server
	Schedule   Schedule
	State      State
	Migrations Migrations
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Enabled сообщает, настроен ли Postgres. Без него статистика пишется в файл.
func (d Database) Enabled() bool {
	return d.Host != ""
}

func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (d Database) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
	File  string
}

type OpenAI struct {
	KeyAI             string
	Model             string
	RequestsPerMinute int
	TokensPerHour     int
}

// Режимы запуска браузера
const (
	BrowserModeProfile = "profile"
	BrowserModeClean   = "clean"
	BrowserModeAttach  = "attach"
)

type Browser struct {
	Mode         string
	Display      string
	Headless     bool
	UserDataDir  string
	BrowsersPath string
	CDPURL       string
	Channel      string
}

type Clipper struct {
	SitesFile string
	Settings  Settings
	Sites     *Catalog
}

type Server struct {
	Addr string
}

type Schedule struct {
	Cron  string
	Sites []string
}

type State struct {
	File string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
			File:  env("LOG_FILE", "coupon_clipper.log"),
		},
		OpenAI: OpenAI{
			KeyAI:             os.Getenv("OPENAI_API_KEY"),
			Model:             env("OPENAI_MODEL", "gpt-4o"),
			RequestsPerMinute: envInt("OPENAI_RPM", 20),
			TokensPerHour:     envInt("OPENAI_TPH", 90000),
		},
		Browser: Browser{
			Mode:         strings.ToLower(env("BROWSER_MODE", BrowserModeProfile)),
			Display:      os.Getenv("DISPLAY"),
			Headless:     envBool("PW_HEADLESS"),
			UserDataDir:  env("PW_USER_DATA_DIR", "./userdata"),
			BrowsersPath: env("PLAYWRIGHT_BROWSERS_PATH", ""),
			CDPURL:       env("CDP_URL", "http://127.0.0.1:9222"),
			Channel:      env("PW_CHANNEL", "chrome"),
		},
		Clipper: Clipper{
			SitesFile: env("SITES_FILE", "sites.yaml"),
			Settings:  SettingsFromEnv(DefaultSettings()),
		},
		Server: Server{
			Addr: os.Getenv("SERVER_ADDR"),
		},
		Schedule: Schedule{
			Cron:  env("SCHEDULE_CRON", "0 8 * * *"),
			Sites: envList("SCHEDULE_SITES"),
		},
		State: State{
			File: env("STATE_FILE", "clipper-state.yaml"),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
	}

	switch cfg.Browser.Mode {
	case BrowserModeProfile, BrowserModeClean, BrowserModeAttach:
	default:
		return nil, fmt.Errorf("неизвестный BROWSER_MODE %q", cfg.Browser.Mode)
	}

	catalog, err := LoadCatalog(cfg.Clipper.SitesFile)
	if err != nil {
		return nil, err
	}
	cfg.Clipper.Sites = catalog

	return cfg, nil
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes"
}

// envBoolDefault в отличие от envBool различает "не задано" и "false".
func envBoolDefault(key string, defaultValue bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
