package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig       `mapstructure:"app"`
	DB       DBConfig        `mapstructure:"db"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Kafka    KafkaConfig     `mapstructure:"kafka"`
	Worker   WorkerConfig    `mapstructure:"worker"`
	Protect  ProtectConfig   `mapstructure:"protect"`
	Stepper  StepperConfig   `mapstructure:"stepper"`
	Signer   SignerConfig    `mapstructure:"signer"`
	Session  SessionConfig   `mapstructure:"session"`
	Networks []NetworkConfig `mapstructure:"networks"`
	Assets   []AssetConfig   `mapstructure:"assets"`
	Accounts []AccountConfig `mapstructure:"accounts"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ProtectConfig 发送前的保护延迟 (Protect Tx)
type ProtectConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Delay   time.Duration `mapstructure:"delay"`
	// Exempt 为 true 时不对 nonce 做 +1 补偿
	Exempt bool `mapstructure:"exempt"`
}

// StepperConfig 只是交给前端渲染器的展示参数，不参与工作流状态
type StepperConfig struct {
	DefaultBackPath string `mapstructure:"default_back_path"`
	CompleteLabel   string `mapstructure:"complete_label"`
}

type SignerConfig struct {
	KeystorePath   string `mapstructure:"keystore_path"`
	Password       string `mapstructure:"password"` // 通常通过环境变量 SIGNER_PASSWORD 传入
	Mnemonic       string `mapstructure:"mnemonic"` // 仅开发环境
	DerivationPath string `mapstructure:"derivation_path"`
	RemoteRpcUrl   string `mapstructure:"remote_rpc_url"` // sign-and-send 签名节点
}

type SessionConfig struct {
	IdleTTL          time.Duration `mapstructure:"idle_ttl"`
	SweepSpec        string        `mapstructure:"sweep_spec"`
	BroadcastTimeout time.Duration `mapstructure:"broadcast_timeout"`
}

type NetworkConfig struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	ChainID   int64  `mapstructure:"chain_id"`
	RpcUrl    string `mapstructure:"rpc_url"`
	BaseAsset string `mapstructure:"base_asset"`
}

type AssetConfig struct {
	ID       string `mapstructure:"id"`
	Symbol   string `mapstructure:"symbol"`
	Network  string `mapstructure:"network"`
	Decimals int32  `mapstructure:"decimals"`
	Contract string `mapstructure:"contract"`
}

// AccountConfig 开发环境下直接在配置里声明账户 (生产从数据库加载)
type AccountConfig struct {
	Address    string `mapstructure:"address"`
	Network    string `mapstructure:"network"`
	Label      string `mapstructure:"label"`
	WalletType string `mapstructure:"wallet_type"`
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// DSN 拼接 gorm 使用的 Postgres 连接串
func (c DBConfig) DSN() string {
	return "host=" + c.Host + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.Name + " port=" + c.Port + " sslmode=disable"
}

// URL 拼接 golang-migrate 使用的连接串
func (c DBConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "wallet_user")
	viper.SetDefault("db.password", "wallet_password")
	viper.SetDefault("db.name", "wallet_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("worker.concurrency", 10)

	viper.SetDefault("protect.enabled", false)
	viper.SetDefault("protect.delay", "20s")
	viper.SetDefault("protect.exempt", false)

	viper.SetDefault("stepper.default_back_path", "DASHBOARD")
	viper.SetDefault("stepper.complete_label", "SEND_ASSETS_SEND_ANOTHER")

	viper.SetDefault("signer.keystore_path", "wallet.json")
	viper.SetDefault("signer.derivation_path", "m/44'/60'/0'/0/0")

	viper.SetDefault("session.idle_ttl", "30m")
	viper.SetDefault("session.sweep_spec", "@every 1m")
	viper.SetDefault("session.broadcast_timeout", "30s")
}
