package core

import (
	"os"
	"path/filepath"

	"github.com/Cristobalca/shield-browser-app/log"

	"github.com/spf13/viper"
)

type GeneralConfig struct {
	BindIpv4 string `mapstructure:"bind_ipv4" json:"bind_ipv4" yaml:"bind_ipv4"`
	ApiPort  int    `mapstructure:"api_port" json:"api_port" yaml:"api_port"`
	ApiKey   string `mapstructure:"api_key" json:"api_key" yaml:"api_key"`
}

type FingerprintConfig struct {
	DefaultAnchor      string `mapstructure:"default_anchor" json:"default_anchor" yaml:"default_anchor"`
	OSProfile          string `mapstructure:"os_profile" json:"os_profile" yaml:"os_profile"`
	ForcedLocale       string `mapstructure:"forced_locale" json:"forced_locale" yaml:"forced_locale"`
	PreferSystemLocale bool   `mapstructure:"prefer_system_locale" json:"prefer_system_locale" yaml:"prefer_system_locale"`
}

type TimezoneConfig struct {
	PrimaryURL      string `mapstructure:"primary_url" json:"primary_url" yaml:"primary_url"`
	SecondaryURL    string `mapstructure:"secondary_url" json:"secondary_url" yaml:"secondary_url"`
	ExternalIPURL   string `mapstructure:"external_ip_url" json:"external_ip_url" yaml:"external_ip_url"`
	GeoIPDBPath     string `mapstructure:"geoip_db_path" json:"geoip_db_path" yaml:"geoip_db_path"`
	StepTimeoutSecs int    `mapstructure:"step_timeout" json:"step_timeout" yaml:"step_timeout"`
	DefaultTimezone string `mapstructure:"default_timezone" json:"default_timezone" yaml:"default_timezone"`
}

type ProxyPolicyConfig struct {
	BurnThreshold        int `mapstructure:"burn_threshold" json:"burn_threshold" yaml:"burn_threshold"`
	AbuseCreditThreshold int `mapstructure:"abuse_credit_threshold" json:"abuse_credit_threshold" yaml:"abuse_credit_threshold"`
	AbuseWindowDays      int `mapstructure:"abuse_window_days" json:"abuse_window_days" yaml:"abuse_window_days"`
}

type Config struct {
	general     *GeneralConfig
	fingerprint *FingerprintConfig
	timezone    *TimezoneConfig
	proxyPolicy *ProxyPolicyConfig
	cfg         *viper.Viper
}

const (
	CFG_GENERAL     = "general"
	CFG_FINGERPRINT = "fingerprint"
	CFG_TIMEZONE    = "timezone"
	CFG_PROXY       = "proxy"
)

func NewConfig(cfg_dir string, path string) (*Config, error) {
	c := &Config{
		general: &GeneralConfig{
			BindIpv4: "127.0.0.1",
			ApiPort:  7443,
		},
		fingerprint: &FingerprintConfig{
			DefaultAnchor: DefaultAnchorName,
		},
		timezone: &TimezoneConfig{
			PrimaryURL:      "https://ipapi.co/timezone/",
			SecondaryURL:    "https://worldtimeapi.org/api/ip",
			ExternalIPURL:   "https://api.ipify.org",
			StepTimeoutSecs: 5,
			DefaultTimezone: "America/New_York",
		},
		proxyPolicy: &ProxyPolicyConfig{
			BurnThreshold:        3,
			AbuseCreditThreshold: 3,
			AbuseWindowDays:      7,
		},
	}

	c.cfg = viper.New()
	c.cfg.SetConfigType("json")

	if path == "" {
		path = filepath.Join(cfg_dir, "config.json")
	}
	err := os.MkdirAll(filepath.Dir(path), os.FileMode(0700))
	if err != nil {
		return nil, err
	}
	c.cfg.SetConfigFile(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c.cfg.Set(CFG_GENERAL, c.general)
		c.cfg.Set(CFG_FINGERPRINT, c.fingerprint)
		c.cfg.Set(CFG_TIMEZONE, c.timezone)
		c.cfg.Set(CFG_PROXY, c.proxyPolicy)
		err = c.cfg.WriteConfigAs(path)
		if err != nil {
			return nil, err
		}
		log.Info("config: created default config file: %s", path)
	}

	err = c.cfg.ReadInConfig()
	if err != nil {
		return nil, err
	}

	c.cfg.UnmarshalKey(CFG_GENERAL, &c.general)
	c.cfg.UnmarshalKey(CFG_FINGERPRINT, &c.fingerprint)
	c.cfg.UnmarshalKey(CFG_TIMEZONE, &c.timezone)
	c.cfg.UnmarshalKey(CFG_PROXY, &c.proxyPolicy)

	if _, ok := GetAnchor(c.fingerprint.DefaultAnchor); !ok {
		log.Warning("config: default anchor '%s' is not in the catalog, using %s", c.fingerprint.DefaultAnchor, DefaultAnchorName)
		c.fingerprint.DefaultAnchor = DefaultAnchorName
	}
	if c.timezone.StepTimeoutSecs <= 0 {
		c.timezone.StepTimeoutSecs = 5
	}
	if c.proxyPolicy.BurnThreshold <= 0 {
		c.proxyPolicy.BurnThreshold = 3
	}
	if c.proxyPolicy.AbuseCreditThreshold <= 0 {
		c.proxyPolicy.AbuseCreditThreshold = 3
	}
	if c.proxyPolicy.AbuseWindowDays <= 0 {
		c.proxyPolicy.AbuseWindowDays = 7
	}

	return c, nil
}

func (c *Config) GetGeneral() *GeneralConfig {
	return c.general
}

func (c *Config) GetFingerprint() *FingerprintConfig {
	return c.fingerprint
}

func (c *Config) GetTimezone() *TimezoneConfig {
	return c.timezone
}

func (c *Config) GetProxyPolicy() *ProxyPolicyConfig {
	return c.proxyPolicy
}

func (c *Config) SetDefaultAnchor(name string) bool {
	if _, ok := GetAnchor(name); !ok {
		return false
	}
	c.fingerprint.DefaultAnchor = name
	c.cfg.Set(CFG_FINGERPRINT, c.fingerprint)
	c.cfg.WriteConfig()
	return true
}

func (c *Config) SetOSProfile(id string) bool {
	if id != "" {
		if _, ok := GetOSProfile(id); !ok {
			return false
		}
	}
	c.fingerprint.OSProfile = id
	c.cfg.Set(CFG_FINGERPRINT, c.fingerprint)
	c.cfg.WriteConfig()
	return true
}

func (c *Config) SetForcedLocale(locale string) {
	c.fingerprint.ForcedLocale = locale
	c.cfg.Set(CFG_FINGERPRINT, c.fingerprint)
	c.cfg.WriteConfig()
}

func (c *Config) SetApiPort(port int) {
	c.general.ApiPort = port
	c.cfg.Set(CFG_GENERAL, c.general)
	c.cfg.WriteConfig()
}

func (c *Config) SetApiKey(key string) {
	c.general.ApiKey = key
	c.cfg.Set(CFG_GENERAL, c.general)
	c.cfg.WriteConfig()
}
