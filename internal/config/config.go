package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"`
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	SMTP       SMTPConfig       `yaml:"smtp"`
}

type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// CheckoutConfig controls the storefront checkout flow. The redirect URLs
// are where the payment callback sends the buyer's browser.
type CheckoutConfig struct {
	GuestCheckoutEnabled bool   `yaml:"guest_checkout_enabled" env-default:"true"`
	Currency             string `yaml:"currency" env-default:"TRY"`
	CallbackURL          string `yaml:"callback_url" env-default:"http://localhost:8080/api/payment/callback"`
	ConfirmationURL      string `yaml:"confirmation_url" env-default:"http://localhost:8080/order-confirmation"`
	CartURL              string `yaml:"cart_url" env-default:"http://localhost:8080/cart"`
}

// GatewayConfig holds the hosted-checkout gateway connection. Keys are
// env-only, never written to the yaml file.
type GatewayConfig struct {
	BaseURL   string        `yaml:"base_url" env-default:"https://sandbox-api.iyzipay.com"`
	APIKey    string        `yaml:"-" env:"GATEWAY_API_KEY" env-required:"true"`
	SecretKey string        `yaml:"-" env:"GATEWAY_SECRET_KEY" env-required:"true"`
	Timeout   time.Duration `yaml:"timeout" env-default:"30s"`
}

type SMTPConfig struct {
	Enabled    bool   `yaml:"enabled" env-default:"false"`
	Host       string `yaml:"host" env-default:"localhost"`
	Port       int    `yaml:"port" env-default:"587"`
	From       string `yaml:"from"`
	AdminEmail string `yaml:"admin_email"`
	Username   string `yaml:"username"`
	Password   string `yaml:"-" env:"SMTP_PASSWORD"`
}

// MustLoad panics when the config cannot be located or parsed.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
