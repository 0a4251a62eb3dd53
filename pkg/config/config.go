package config

import (
	"os"
	"strconv"
	"sync"

	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

type Config struct {
	// Port Settings
	Host       string `json:"host"`       // The domain name of the server.
	ServerAddr string `json:"serverAddr"` // The address the server endpoint binds to.

	Auth struct {
		AccessTokenSecret string `json:"accessTokenSecret"`
	} `json:"auth"`

	Postgres struct {
		Host     string `json:"host"`
		Port     string `json:"port"`
		DBName   string `json:"dbname"`
		User     string `json:"user"`
		Password string `json:"password"`
		SSLMode  string `json:"sslmode"`
		TimeZone string `json:"TimeZone"`
	} `json:"postgres"`

	SMTP struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
		From     string `json:"from"`
		UseAuth  bool   `json:"useAuth"` // some internal relays accept unauthenticated mail
		Enabled  bool   `json:"enabled"`
	} `json:"smtp"`

	Monitor struct {
		IntervalSeconds          int `json:"intervalSeconds"`          // collection cycle period
		SSHConnectTimeoutSeconds int `json:"sshConnectTimeoutSeconds"` // SSH dial budget
		SSHCommandTimeoutSeconds int `json:"sshCommandTimeoutSeconds"` // probe execution budget
		AlertCooldownMinutes     int `json:"alertCooldownMinutes"`     // per (server, GPU) anti-flood window
		MaxConcurrentProbes      int `json:"maxConcurrentProbes"`      // fan-out bound per cycle
		HealthIntervalSeconds    int `json:"healthIntervalSeconds"`    // URL check period
		HealthTimeoutSeconds     int `json:"healthTimeoutSeconds"`     // per-request budget
		RetentionDays            int `json:"retentionDays"`            // sample/status retention
	} `json:"monitor"`

	// EncryptionKey is the base64 32-byte key guarding stored SSH keys.
	// Env only, never from file.
	EncryptionKey string `json:"-"`
}

var (
	once     sync.Once
	instance *Config
)

// GetConfig loads the config file once and overlays the documented
// environment variables. A missing file leaves the defaults in place.
func GetConfig() *Config {
	once.Do(func() {
		instance = defaultConfig()

		path := os.Getenv("MONITOR_CONFIG_PATH")
		if path == "" {
			path = "etc/server-monitor.yaml"
		}
		if raw, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(raw, instance); err != nil {
				panic("parsing config file " + path + ": " + err.Error())
			}
			klog.Infof("Loaded config from %s", path)
		} else {
			klog.V(2).Infof("Config file %s not read (%v), using defaults", path, err)
		}

		overlayEnv(instance)
	})
	return instance
}

func defaultConfig() *Config {
	c := &Config{}
	c.ServerAddr = ":8000"
	c.Postgres.Host = "localhost"
	c.Postgres.Port = "5432"
	c.Postgres.SSLMode = "disable"
	c.Postgres.TimeZone = "UTC"
	c.SMTP.Port = 25
	c.SMTP.Enabled = true
	c.Monitor.IntervalSeconds = 60
	c.Monitor.SSHConnectTimeoutSeconds = 30
	c.Monitor.SSHCommandTimeoutSeconds = 60
	c.Monitor.AlertCooldownMinutes = 5
	c.Monitor.MaxConcurrentProbes = 8
	c.Monitor.HealthIntervalSeconds = 60
	c.Monitor.HealthTimeoutSeconds = 5
	c.Monitor.RetentionDays = 1
	return c
}

func overlayEnv(c *Config) {
	envStr("SERVER_ADDR", &c.ServerAddr)
	envStr("ACCESS_TOKEN_SECRET", &c.Auth.AccessTokenSecret)
	envStr("POSTGRES_HOST", &c.Postgres.Host)
	envStr("POSTGRES_PORT", &c.Postgres.Port)
	envStr("POSTGRES_DB", &c.Postgres.DBName)
	envStr("POSTGRES_USER", &c.Postgres.User)
	envStr("POSTGRES_PASSWORD", &c.Postgres.Password)
	envStr("SMTP_SERVER", &c.SMTP.Host)
	envInt("SMTP_PORT", &c.SMTP.Port)
	envStr("SMTP_USERNAME", &c.SMTP.User)
	envStr("SMTP_PASSWORD", &c.SMTP.Password)
	envStr("SMTP_FROM_EMAIL", &c.SMTP.From)
	envBool("SMTP_USE_AUTH", &c.SMTP.UseAuth)
	envBool("EMAIL_ALERTS_ENABLED", &c.SMTP.Enabled)
	envInt("GPU_MONITORING_INTERVAL_SECONDS", &c.Monitor.IntervalSeconds)
	envInt("SSH_TIMEOUT_SECONDS", &c.Monitor.SSHConnectTimeoutSeconds)
	envInt("SSH_COMMAND_TIMEOUT_SECONDS", &c.Monitor.SSHCommandTimeoutSeconds)
	envInt("ALERT_COOLDOWN_MINUTES", &c.Monitor.AlertCooldownMinutes)
	envInt("MAX_CONCURRENT_PROBES", &c.Monitor.MaxConcurrentProbes)
	envInt("HEALTH_CHECK_INTERVAL_SECONDS", &c.Monitor.HealthIntervalSeconds)
	envInt("HTTP_TIMEOUT_SECONDS", &c.Monitor.HealthTimeoutSeconds)
	envInt("DB_RETENTION_DAYS", &c.Monitor.RetentionDays)
	envStr("ENCRYPTION_KEY", &c.EncryptionKey)

	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.User
	}
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		klog.Warningf("Ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = n
}

func envBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		klog.Warningf("Ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = b
}
