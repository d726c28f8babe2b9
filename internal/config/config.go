// Package config loads keypad controller settings from file, environment and
// command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.tigermatt.uk/keypad"
	"gopkg.in/yaml.v3"
)

const (
	fileName  = "keypad"
	envPrefix = "keypad"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// flagKeys maps config keys to the command line flags that override them.
var flagKeys = map[string]string{
	"credential":    "credential",
	"panel":         "panel",
	"log_level":     "log-level",
	"audit.file":    "audit-file",
	"bus.device":    "device",
	"bus.baud":      "baud",
	"unlock.device": "unlock-device",
	"unlock.line":   "unlock-line",
	"unlock.width":  "unlock-width",
}

type Config struct {
	Credential string `mapstructure:"credential"`
	Group      int    `mapstructure:"group"`
	Panel      string `mapstructure:"panel"`
	LogLevel   string `mapstructure:"log_level"`

	Audit  Audit  `mapstructure:"audit"`
	Bus    Bus    `mapstructure:"bus"`
	Unlock Unlock `mapstructure:"unlock"`
}

type Audit struct {
	File string `mapstructure:"file"`
}

type Bus struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	Address     int           `mapstructure:"address"`
	Title       string        `mapstructure:"title"`
	ReplyWindow time.Duration `mapstructure:"reply_window"`
}

type Unlock struct {
	Device string        `mapstructure:"device"`
	Line   string        `mapstructure:"line"`
	Width  time.Duration `mapstructure:"width"`
}

// Defaults returns the settings used for keys no source sets.
func Defaults() map[string]any {
	d := FromDefaults()
	return map[string]any{
		"credential":       d.Credential,
		"group":            d.Group,
		"panel":            d.Panel,
		"log_level":        d.LogLevel,
		"audit.file":       d.Audit.File,
		"bus.device":       d.Bus.Device,
		"bus.baud":         d.Bus.Baud,
		"bus.address":      d.Bus.Address,
		"bus.title":        d.Bus.Title,
		"bus.reply_window": d.Bus.ReplyWindow,
		"unlock.device":    d.Unlock.Device,
		"unlock.line":      d.Unlock.Line,
		"unlock.width":     d.Unlock.Width,
	}
}

// Path returns the user or system config file location.
func Path(system bool) (string, error) {
	if system {
		return filepath.Join("/etc/keypad", fileName+".yaml"), nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}

	return filepath.Join(dir, "keypad", fileName+".yaml"), nil
}

// Load merges defaults, the config file, KEYPAD_* environment variables and
// the flags of cmd, in increasing precedence. An explicit file that does not
// exist is an error; a missing file in the search path is not.
func Load(cmd *cobra.Command, file string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		if p, err := Path(false); err == nil {
			v.AddConfigPath(filepath.Dir(p))
		}
		if p, err := Path(true); err == nil {
			v.AddConfigPath(filepath.Dir(p))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for key, name := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}

	return c, c.Validate()
}

func (c Config) Validate() error {
	if _, err := keypad.NewCredential(c.Credential); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := keypad.ParseLine(c.Unlock.Line); err != nil {
		return fmt.Errorf("%w: unlock.line: %w", ErrInvalidConfig, err)
	}
	if c.Unlock.Width <= 0 {
		return fmt.Errorf("%w: unlock.width must be positive", ErrInvalidConfig)
	}
	if c.Bus.Address < 0 || c.Bus.Address > 0xFF {
		return fmt.Errorf("%w: bus.address %d out of range", ErrInvalidConfig, c.Bus.Address)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}

	return l, nil
}

// WriteFile writes c as YAML to path, creating parent directories. The file
// holds the credential and is created 0600.
func WriteFile(c Config, path string) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Marshal renders c in the config file format.
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(c.document())
}

func (c Config) document() map[string]any {
	return map[string]any{
		"credential": c.Credential,
		"group":      c.Group,
		"panel":      c.Panel,
		"log_level":  c.LogLevel,
		"audit": map[string]any{
			"file": c.Audit.File,
		},
		"bus": map[string]any{
			"device":       c.Bus.Device,
			"baud":         c.Bus.Baud,
			"address":      c.Bus.Address,
			"title":        c.Bus.Title,
			"reply_window": c.Bus.ReplyWindow.String(),
		},
		"unlock": map[string]any{
			"device": c.Unlock.Device,
			"line":   c.Unlock.Line,
			"width":  c.Unlock.Width.String(),
		},
	}
}

// FromDefaults returns a Config holding the default settings.
func FromDefaults() Config {
	return Config{
		Credential: keypad.DefaultCredential,
		Group:      keypad.DefaultGroup,
		Panel:      "keypad",
		LogLevel:   "info",
		Bus: Bus{
			Device:      "/dev/ttyUSB0",
			Baud:        9600,
			Address:     keypad.DefaultAddress,
			Title:       "ACCESS",
			ReplyWindow: keypad.DefaultReplyWindow,
		},
		Unlock: Unlock{
			Line:  "dtr",
			Width: keypad.DefaultPulseWidth,
		},
	}
}
