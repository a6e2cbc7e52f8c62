package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = ".cctv-cli"
	envPrefix  = "CCTV"

	KeyAPIURL          = "api_url"
	KeyAccessToken     = "access_token"
	KeyPollInterval    = "poll_interval"
	KeyRequestTimeout  = "request_timeout"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyReloginDelay    = "relogin_delay"
	KeyBreakerFailures = "breaker_failures"
	KeyUsername        = "username"
)

// Settings is the resolved configuration for one command run.
type Settings struct {
	APIURL          string
	PollInterval    time.Duration
	RequestTimeout  time.Duration
	LogLevel        string
	LogFormat       string
	ReloginDelay    time.Duration
	BreakerFailures uint32
	Username        string
}

// SetDefaults registers the built-in values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, "http://127.0.0.1:8000")
	v.SetDefault(KeyPollInterval, 10*time.Second)
	v.SetDefault(KeyRequestTimeout, 15*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyReloginDelay, 5*time.Second)
	v.SetDefault(KeyBreakerFailures, 5)
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	if err := initConfig(viper.GetViper(), cfgFile); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// Search config in home directory with name ".cctv-cli" (without extension).
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	// CCTV_API_URL, CCTV_POLL_INTERVAL, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load resolves Settings from the global viper instance.
func Load() Settings {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) Settings {
	failures := v.GetInt(KeyBreakerFailures)
	if failures < 0 {
		failures = 0
	}
	return Settings{
		APIURL:          strings.TrimRight(v.GetString(KeyAPIURL), "/"),
		PollInterval:    v.GetDuration(KeyPollInterval),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		ReloginDelay:    v.GetDuration(KeyReloginDelay),
		BreakerFailures: uint32(failures),
		Username:        v.GetString(KeyUsername),
	}
}

// SessionFile persists the access token in the config file under
// access_token. It implements session.Persister.
type SessionFile struct {
	v *viper.Viper
}

// NewSessionFile uses v, or the global viper instance when v is nil.
func NewSessionFile(v *viper.Viper) *SessionFile {
	if v == nil {
		v = viper.GetViper()
	}
	return &SessionFile{v: v}
}

func (s *SessionFile) Load() (string, error) {
	return strings.TrimSpace(s.v.GetString(KeyAccessToken)), nil
}

func (s *SessionFile) Save(token string) error {
	s.v.Set(KeyAccessToken, token)
	return s.write()
}

func (s *SessionFile) Clear() error {
	s.v.Set(KeyAccessToken, "")
	return s.write()
}

// Set stores an arbitrary key alongside the token, e.g. the api_url a login
// was made against. It is written on the next Save or Clear.
func (s *SessionFile) Set(key string, value any) {
	s.v.Set(key, value)
}

func (s *SessionFile) write() error {
	// Ensure the file exists before writing
	if err := s.v.WriteConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return s.v.SafeWriteConfig()
		}
		// If it exists but failed to write, try writing to default path
		home, herr := os.UserHomeDir()
		if herr != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		path := filepath.Join(home, configName+".yaml")
		if werr := s.v.WriteConfigAs(path); werr != nil {
			return fmt.Errorf("failed to save session: %w", werr)
		}
	}
	return nil
}
