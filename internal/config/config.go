package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/khanghh/quill/params"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr     = ":3000"
	DefaultAuditFilePath  = "logs/request_response.log"
	DefaultAuditBackend   = "file"
	DefaultRateLimitStore = "memory"
)

type MySQLConfig struct {
	Dsn             string        `mapstructure:"dsn"`
	Replicas        []string      `mapstructure:"replicas"`
	TablePrefix     string        `mapstructure:"tablePrefix"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`
}

type SESConfig struct {
	Region string `mapstructure:"region"`
}

type MailConfig struct {
	Backend string     `mapstructure:"backend"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
	SES     SESConfig  `mapstructure:"ses"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	PublicBaseURL   string `mapstructure:"publicBaseURL"`
	UsePathStyle    bool   `mapstructure:"usePathStyle"`
}

type TurnstileConfig struct {
	SiteKey   string `mapstructure:"siteKey"`
	SecretKey string `mapstructure:"secretKey"`
}

type CaptchaConfig struct {
	Provider  string          `mapstructure:"provider"`
	Turnstile TurnstileConfig `mapstructure:"turnstile,omitempty"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type AuditConfig struct {
	Backends      []string      `mapstructure:"backends"`
	FilePath      string        `mapstructure:"filePath"`
	MaxBodySize   int           `mapstructure:"maxBodySize"`
	QueueSize     int           `mapstructure:"queueSize"`
	RedactHeaders []string      `mapstructure:"redactHeaders"`
	Retention     time.Duration `mapstructure:"retention"`
	CleanupCron   string        `mapstructure:"cleanupCron"`
}

type RateLimitConfig struct {
	Storage    string        `mapstructure:"storage"`
	Max        int           `mapstructure:"max"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type Config struct {
	Debug        bool            `mapstructure:"debug"`
	NodeID       int64           `mapstructure:"nodeID"`
	SiteName     string          `mapstructure:"siteName"`
	BaseURL      string          `mapstructure:"baseURL"`
	MasterKey    string          `mapstructure:"masterKey"`
	JWTSecret    string          `mapstructure:"jwtSecret"`
	ListenAddr   string          `mapstructure:"listenAddr"`
	TemplateDir  string          `mapstructure:"templateDir"`
	AllowOrigins []string        `mapstructure:"allowOrigins"`
	Admins       []string        `mapstructure:"admins"`
	Redis        RedisConfig     `mapstructure:"redis"`
	Mail         MailConfig      `mapstructure:"mail"`
	MySQL        MySQLConfig     `mapstructure:"mysql"`
	S3           S3Config        `mapstructure:"s3"`
	Captcha      CaptchaConfig   `mapstructure:"captcha"`
	Audit        AuditConfig     `mapstructure:"audit"`
	RateLimit    RateLimitConfig `mapstructure:"rateLimit"`
}

func (c *Config) Sanitize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return errors.New("nodeID must be between 0 and 1023")
	}
	if c.MasterKey == "" {
		return errors.New("masterKey is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwtSecret is required")
	}
	if len(c.Audit.Backends) == 0 {
		c.Audit.Backends = []string{DefaultAuditBackend}
	}
	if c.Audit.FilePath == "" {
		c.Audit.FilePath = DefaultAuditFilePath
	}
	if c.Audit.MaxBodySize <= 0 {
		c.Audit.MaxBodySize = params.CaptureMaxBodySize
	}
	if c.Audit.QueueSize <= 0 {
		c.Audit.QueueSize = params.AuditQueueSize
	}
	// every queued record may hold a request and a response body
	if pending := 2 * int64(c.Audit.MaxBodySize) * int64(c.Audit.QueueSize); pending > params.AuditMaxPendingBytes {
		return fmt.Errorf("audit queue may hold %d body bytes, limit is %d: lower maxBodySize or queueSize", pending, params.AuditMaxPendingBytes)
	}
	if c.Audit.RedactHeaders == nil {
		c.Audit.RedactHeaders = []string{"Authorization", "Cookie", "Set-Cookie"}
	}
	if c.Audit.Retention == 0 {
		c.Audit.Retention = params.AuditDefaultRetention
	}
	if c.Audit.CleanupCron == "" {
		c.Audit.CleanupCron = params.AuditDefaultCleanupCron
	}
	if c.RateLimit.Storage == "" {
		c.RateLimit.Storage = DefaultRateLimitStore
	}
	if c.RateLimit.Max <= 0 {
		c.RateLimit.Max = params.RecoveryRateLimitMax
	}
	if c.RateLimit.Expiration <= 0 {
		c.RateLimit.Expiration = params.RecoveryRateLimitSpan
	}
	for i, email := range c.Admins {
		c.Admins[i] = strings.ToLower(strings.TrimSpace(email))
	}
	return nil
}

// HasAuditBackend reports whether the named audit backend is enabled.
func (c *Config) HasAuditBackend(name string) bool {
	for _, backend := range c.Audit.Backends {
		if backend == name {
			return true
		}
	}
	return false
}

func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
