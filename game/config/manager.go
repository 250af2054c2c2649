package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// EnvPrefix is the prefix for environment overrides, e.g. MEMORY_SERVER_PORT
const EnvPrefix = "MEMORY"

var validate = validator.New()

// Settings holds all application configuration
type Settings struct {
	Server   ServerSettings  `mapstructure:"server" validate:"required"`
	Log      LogSettings     `mapstructure:"log" validate:"required"`
	Game     GameSettings    `mapstructure:"game" validate:"required"`
	Sessions SessionSettings `mapstructure:"sessions" validate:"required"`
	Ngrok    NgrokSettings   `mapstructure:"ngrok"`
}

// ServerSettings controls the HTTP listener
type ServerSettings struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
}

// LogSettings controls zerolog output
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// GameSettings tunes the engine
type GameSettings struct {
	RevealDelay       time.Duration `mapstructure:"reveal_delay" validate:"gt=0"`
	TickInterval      time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	DefaultDifficulty string        `mapstructure:"default_difficulty" validate:"required,oneof=easy medium hard"`
	Symbols           []string      `mapstructure:"symbols" validate:"len=12,unique,dive,required"`
}

// SessionSettings controls idle session cleanup
type SessionSettings struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// NgrokSettings enables an optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"authtoken" validate:"required_if=Enabled true"`
	Domain    string `mapstructure:"domain"`
}

// setDefaults registers the built-in value of every setting
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("game.reveal_delay", engine.DefaultRevealDelay)
	v.SetDefault("game.tick_interval", engine.DefaultTickInterval)
	v.SetDefault("game.default_difficulty", string(engine.Easy))
	v.SetDefault("game.symbols", engine.DefaultSymbols)
	v.SetDefault("sessions.ttl", 24*time.Hour)
	v.SetDefault("sessions.cleanup_interval", time.Hour)
	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authtoken", "")
	v.SetDefault("ngrok.domain", "")
}

// Load reads settings from defaults, the optional config file, and MEMORY_*
// environment variables, in increasing order of precedence
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configFile)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// ngrok's own variable names are honored as well
	_ = v.BindEnv("ngrok.authtoken", EnvPrefix+"_NGROK_AUTHTOKEN", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	_ = v.BindEnv("ngrok.domain", EnvPrefix+"_NGROK_DOMAIN", "NGROK_DOMAIN")

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks struct tags and engine-level constraints
func Validate(settings *Settings) error {
	if err := validate.Struct(settings); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := engine.ValidateSymbols(settings.Game.Symbols); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Manager serves settings and the difficulty catalog
type Manager struct {
	configFile string
	settings   *Settings
	mu         sync.RWMutex
}

// NewManager loads settings from configFile (may be empty) and the environment
func NewManager(configFile string) (*Manager, error) {
	settings, err := Load(configFile)
	if err != nil {
		return nil, err
	}
	return &Manager{configFile: configFile, settings: settings}, nil
}

// NewManagerFromSettings wraps already-loaded settings
func NewManagerFromSettings(settings *Settings) (*Manager, error) {
	if err := Validate(settings); err != nil {
		return nil, err
	}
	return &Manager{settings: settings}, nil
}

// Settings returns the active settings
func (m *Manager) Settings() *Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Reload re-reads the config file and environment
func (m *Manager) Reload() error {
	settings, err := Load(m.configFile)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
	return nil
}

// DefaultDifficulty returns the tier used when a request names none
func (m *Manager) DefaultDifficulty() engine.Difficulty {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return engine.Difficulty(m.settings.Game.DefaultDifficulty)
}

// SetDefault changes the default tier
func (m *Manager) SetDefault(name string) error {
	d, err := engine.ParseDifficulty(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.Game.DefaultDifficulty = string(d)
	return nil
}

// EngineOptions returns the engine tuning derived from the settings
func (m *Manager) EngineOptions() []engine.Option {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return []engine.Option{
		engine.WithRevealDelay(m.settings.Game.RevealDelay),
		engine.WithTickInterval(m.settings.Game.TickInterval),
		engine.WithSymbols(m.settings.Game.Symbols),
	}
}

// ListDifficulties describes every tier
func (m *Manager) ListDifficulties() []*service.DifficultyInfo {
	def := m.DefaultDifficulty()
	infos := make([]*service.DifficultyInfo, 0, 3)
	for _, d := range engine.Difficulties() {
		columns, rows := d.Layout()
		infos = append(infos, &service.DifficultyInfo{
			ID:        string(d),
			Label:     d.Label(),
			Pairs:     d.PairCount(),
			Cards:     d.CardCount(),
			Columns:   columns,
			Rows:      rows,
			IsDefault: d == def,
		})
	}
	return infos
}
