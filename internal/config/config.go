// Package config 加载服务配置：YAML文件 + HUB_ 前缀环境变量覆盖。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像可能没有系统时区库

	"github.com/spf13/viper"

	"productivity-hub/pkg/idgen"
)

// EnvPrefix 环境变量前缀，如 HUB_SERVER_ADDR
const EnvPrefix = "HUB"

// Config 服务配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	IDGen    idgen.Config   `mapstructure:"idgen"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Notice   NoticeConfig   `mapstructure:"announcement"`
	Message  MessageConfig  `mapstructure:"message"`
	Image    ImageConfig    `mapstructure:"image"`
	Shop     ShopConfig     `mapstructure:"shop"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // debug|release|test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableSwagger   bool          `mapstructure:"enable_swagger"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug|info|warn|error
	Format     string `mapstructure:"format"` // json|console
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // 天
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql|postgres|sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type KafkaConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Brokers           []string      `mapstructure:"brokers"`
	NotificationTopic string        `mapstructure:"notification_topic"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	Expire time.Duration `mapstructure:"expire"`
}

type MonitorConfig struct {
	AlertInterval time.Duration `mapstructure:"alert_interval"`
	AlertUserID   string        `mapstructure:"alert_user_id"`
	SampleWindow  int           `mapstructure:"sample_window"`
	AlertDedupe   time.Duration `mapstructure:"alert_dedupe"`
	DiskPath      string        `mapstructure:"disk_path"`
}

type NoticeConfig struct {
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"` // 定时公告的扫描间隔
}

type MessageConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type ImageConfig struct {
	ShareBasePath string `mapstructure:"share_base_path"`
}

// ShopConfig 小店库存拉取与钉钉播报
type ShopConfig struct {
	CommodityURL string        `mapstructure:"commodity_url"`
	FallbackURL  string        `mapstructure:"fallback_url"` // 主地址连接失败时使用
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	PushEnabled  bool          `mapstructure:"push_enabled"`
	PushTimezone string        `mapstructure:"push_timezone"` // 推送时间窗按该时区计算
}

// SetDefaults 注册默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.enable_swagger", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.console", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:productivity-hub.db?_busy_timeout=5000")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.notification_topic", "hub.notification")
	v.SetDefault("kafka.write_timeout", 5*time.Second)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "productivity-hub")
	v.SetDefault("jwt.expire", 24*time.Hour)

	v.SetDefault("idgen.worker_id", 0)
	v.SetDefault("idgen.datacenter_id", 0)
	v.SetDefault("idgen.clock_backward_strategy", "error")
	v.SetDefault("idgen.clock_backward_tolerance_ms", 5)
	v.SetDefault("idgen.enable_metrics", true)

	v.SetDefault("monitor.alert_interval", time.Minute)
	v.SetDefault("monitor.alert_user_id", "admin")
	v.SetDefault("monitor.sample_window", 1000)
	v.SetDefault("monitor.alert_dedupe", 5*time.Minute)
	v.SetDefault("monitor.disk_path", "/")

	v.SetDefault("announcement.schedule_interval", 30*time.Second)

	v.SetDefault("message.http_timeout", 10*time.Second)

	v.SetDefault("image.share_base_path", "/api/images/share/")

	v.SetDefault("shop.commodity_url", "https://tuhjk.asia/user/api/index/commodity?categoryId=3")
	v.SetDefault("shop.fallback_url", "http://tuhjk.asia/user/api/index/commodity?categoryId=3")
	v.SetDefault("shop.timeout", 5*time.Second)
	v.SetDefault("shop.user_agent", "productivity-hub-shop/1.0")
	v.SetDefault("shop.push_enabled", false)
	v.SetDefault("shop.push_timezone", "Asia/Shanghai")
}

// Load 读取配置文件，path为空时在 . 和 ./configs 下查找 config.yaml
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验跨字段约束
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka.brokers is required when kafka is enabled")
	}
	if c.Shop.PushTimezone != "" {
		if _, err := time.LoadLocation(c.Shop.PushTimezone); err != nil {
			return fmt.Errorf("config: invalid shop.push_timezone: %w", err)
		}
	}
	if c.Monitor.SampleWindow <= 0 {
		return errors.New("config: monitor.sample_window must be positive")
	}
	return nil
}
