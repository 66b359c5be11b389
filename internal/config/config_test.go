package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.OperatorChatID = -100123
	cfg.Drive.ClientID = "id"
	cfg.Drive.ClientSecret = "secret"
	return cfg
}

func TestDefaults(t *testing.T) {
	viper.Reset()
	cfg := NewDefaultConfig()

	if cfg.Drive.StagingDir != "./downloads" {
		t.Errorf("StagingDir default = %q", cfg.Drive.StagingDir)
	}
	if cfg.Drive.AuthTimeout != 5*time.Minute {
		t.Errorf("AuthTimeout default = %v", cfg.Drive.AuthTimeout)
	}
	if cfg.Credentials.Backend != "bolt" {
		t.Errorf("Backend default = %q", cfg.Credentials.Backend)
	}
	if cfg.Aria2.RPCURL != "http://localhost:6800/jsonrpc" {
		t.Errorf("RPCURL default = %q", cfg.Aria2.RPCURL)
	}
}

func TestViperOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("telegram.bot_token", "tok")
	viper.Set("drive.staging_dir", "/tmp/stage")
	viper.Set("drive.auth_timeout", "2m")
	viper.Set("credentials.backend", "firebase")

	cfg := NewDefaultConfig()
	if cfg.Telegram.BotToken != "tok" {
		t.Errorf("BotToken = %q", cfg.Telegram.BotToken)
	}
	if cfg.Drive.StagingDir != "/tmp/stage" {
		t.Errorf("StagingDir = %q", cfg.Drive.StagingDir)
	}
	if cfg.Drive.AuthTimeout != 2*time.Minute {
		t.Errorf("AuthTimeout = %v", cfg.Drive.AuthTimeout)
	}
	if cfg.Credentials.Backend != "firebase" {
		t.Errorf("Backend = %q", cfg.Credentials.Backend)
	}
}

func TestFetchLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"", 0},
		{"1024", 1024},
		{"2MB", 2 << 20},
		{"garbage", 0},
	}
	for _, tt := range tests {
		c := DriveConfig{MaxFetchSize: tt.raw}
		if got := c.FetchLimit(); got != tt.want {
			t.Errorf("FetchLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	viper.Reset()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }, ErrMissingBotToken},
		{"missing operator chat", func(c *Config) { c.Telegram.OperatorChatID = 0 }, ErrMissingOperatorChat},
		{"missing oauth client", func(c *Config) {
			c.Drive.ClientID = ""
			c.Drive.ClientSecret = ""
		}, ErrMissingOAuthClient},
		{"client json alone suffices", func(c *Config) {
			c.Drive.ClientID = ""
			c.Drive.ClientSecret = ""
			c.Drive.ClientJSON = `{"installed":{}}`
		}, nil},
		{"missing staging dir", func(c *Config) { c.Drive.StagingDir = "" }, ErrInvalidStagingDir},
		{"bad max fetch size", func(c *Config) { c.Drive.MaxFetchSize = "lots" }, ErrInvalidMaxFetchSize},
		{"good max fetch size", func(c *Config) { c.Drive.MaxFetchSize = "1.5GB" }, nil},
		{"bad backend", func(c *Config) { c.Credentials.Backend = "etcd" }, ErrInvalidCredentialStore},
		{"firebase needs options", func(c *Config) { c.Credentials.Backend = "firebase" }, ErrMissingFirebaseConfig},
		{"firebase complete", func(c *Config) {
			c.Credentials.Backend = "firebase"
			c.Credentials.FirebaseDatabaseURL = "https://x.firebaseio.com"
			c.Credentials.FirebaseCredentialsPath = "/etc/fb.json"
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
