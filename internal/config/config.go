package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"drivebot/pkg/utils"
)

var (
	ErrMissingBotToken        = errors.New("telegram bot token must be set")
	ErrMissingOperatorChat    = errors.New("operator (botlog) chat id must be set")
	ErrMissingOAuthClient     = errors.New("drive OAuth client id/secret or combined JSON config must be set")
	ErrInvalidStagingDir      = errors.New("staging directory must be set")
	ErrInvalidMaxFetchSize    = errors.New(`max fetch size must be a byte count like "2GB"`)
	ErrInvalidCredentialStore = errors.New(`credential store backend must be "bolt" or "firebase"`)
	ErrMissingFirebaseConfig  = errors.New("firebase credential store needs database URL and credentials file")
)

// Config holds all application configuration
type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Drive       DriveConfig       `json:"drive"`
	Credentials CredentialsConfig `json:"credentials"`
	Aria2       Aria2Config       `json:"aria2"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string `json:"bot_token"`
	OperatorChatID int64  `json:"operator_chat_id"`
}

// DriveConfig holds Google Drive configuration
type DriveConfig struct {
	// DefaultFolder is the default upload destination, either a folder id
	// or a folder link (normalized through the resolver at startup).
	DefaultFolder string `json:"default_folder"`

	// ClientID/ClientSecret or ClientJSON, one of the two forms is required.
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	ClientJSON   string `json:"client_json"`

	// IndexURL, when set, is used to build human-facing browse links.
	IndexURL string `json:"index_url"`

	StagingDir string `json:"staging_dir"`

	// MaxFetchSize caps HTTP(S) downloads into staging, as a human
	// readable size like "2GB". Empty means no cap.
	MaxFetchSize string `json:"max_fetch_size"`

	// AuthTimeout bounds the wait for the OAuth code reply.
	AuthTimeout time.Duration `json:"auth_timeout"`
}

// FetchLimit returns MaxFetchSize in bytes, 0 meaning unlimited
func (c *DriveConfig) FetchLimit() int64 {
	n, err := utils.ParseBytes(c.MaxFetchSize)
	if err != nil {
		return 0
	}
	return n
}

// CredentialsConfig selects and configures the credential store backend
type CredentialsConfig struct {
	Backend string `json:"backend"` // "bolt" or "firebase"

	BoltPath string `json:"bolt_path"`

	FirebaseDatabaseURL     string `json:"firebase_database_url"`
	FirebaseCredentialsPath string `json:"firebase_credentials_path"`
}

// Aria2Config holds the aria2 RPC endpoint used for magnet/torrent downloads
type Aria2Config struct {
	RPCURL string `json:"rpc_url"`
	Secret string `json:"secret"`
}

// NewDefaultConfig returns a configuration with sensible defaults,
// overridden by whatever viper has read in
func NewDefaultConfig() *Config {
	cfg := &Config{
		Drive: DriveConfig{
			StagingDir:  "./downloads",
			AuthTimeout: 5 * time.Minute,
		},
		Credentials: CredentialsConfig{
			Backend:  "bolt",
			BoltPath: "drivebot.db",
		},
		Aria2: Aria2Config{
			RPCURL: "http://localhost:6800/jsonrpc",
		},
	}

	if v := viper.GetString("telegram.bot_token"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := viper.GetInt64("telegram.operator_chat_id"); v != 0 {
		cfg.Telegram.OperatorChatID = v
	}
	if v := viper.GetString("drive.default_folder"); v != "" {
		cfg.Drive.DefaultFolder = v
	}
	if v := viper.GetString("drive.client_id"); v != "" {
		cfg.Drive.ClientID = v
	}
	if v := viper.GetString("drive.client_secret"); v != "" {
		cfg.Drive.ClientSecret = v
	}
	if v := viper.GetString("drive.client_json"); v != "" {
		cfg.Drive.ClientJSON = v
	}
	if v := viper.GetString("drive.index_url"); v != "" {
		cfg.Drive.IndexURL = v
	}
	if v := viper.GetString("drive.staging_dir"); v != "" {
		cfg.Drive.StagingDir = v
	}
	if v := viper.GetString("drive.max_fetch_size"); v != "" {
		cfg.Drive.MaxFetchSize = v
	}
	if v := viper.GetDuration("drive.auth_timeout"); v != 0 {
		cfg.Drive.AuthTimeout = v
	}
	if v := viper.GetString("credentials.backend"); v != "" {
		cfg.Credentials.Backend = v
	}
	if v := viper.GetString("credentials.bolt_path"); v != "" {
		cfg.Credentials.BoltPath = v
	}
	if v := viper.GetString("credentials.firebase_database_url"); v != "" {
		cfg.Credentials.FirebaseDatabaseURL = v
	}
	if v := viper.GetString("credentials.firebase_credentials_path"); v != "" {
		cfg.Credentials.FirebaseCredentialsPath = v
	}
	if v := viper.GetString("aria2.rpc_url"); v != "" {
		cfg.Aria2.RPCURL = v
	}
	if v := viper.GetString("aria2.secret"); v != "" {
		cfg.Aria2.Secret = v
	}

	return cfg
}

// Validate ensures the configuration is complete enough to run the bot
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.Telegram.OperatorChatID == 0 {
		return ErrMissingOperatorChat
	}
	if err := c.ValidateDrive(); err != nil {
		return err
	}
	switch c.Credentials.Backend {
	case "bolt":
	case "firebase":
		if c.Credentials.FirebaseDatabaseURL == "" || c.Credentials.FirebaseCredentialsPath == "" {
			return ErrMissingFirebaseConfig
		}
	default:
		return ErrInvalidCredentialStore
	}
	return nil
}

// ValidateDrive checks only the Drive-side options. The upload subcommand
// runs without a Telegram token, so it validates this subset.
func (c *Config) ValidateDrive() error {
	if c.Drive.ClientJSON == "" && (c.Drive.ClientID == "" || c.Drive.ClientSecret == "") {
		return ErrMissingOAuthClient
	}
	if c.Drive.StagingDir == "" {
		return ErrInvalidStagingDir
	}
	if c.Drive.MaxFetchSize != "" {
		if _, err := utils.ParseBytes(c.Drive.MaxFetchSize); err != nil {
			return ErrInvalidMaxFetchSize
		}
	}
	return nil
}
