package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type MySQLConfig struct {
	User     string `envconfig:"MYSQL_USER" default:"root"`
	Password string `envconfig:"MYSQL_PASSWORD" default:""`
	Host     string `envconfig:"MYSQL_HOST" default:"localhost"`
	Port     string `envconfig:"MYSQL_PORT" default:"3306"`
	Database string `envconfig:"MYSQL_DATABASE" default:"agromarket"`
}

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	MySQL MySQLConfig

	RedisHost string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort string `envconfig:"REDIS_PORT" default:"6379"`

	RabbitURL      string `envconfig:"RABBITMQ_URL" default:""`
	OrdersExchange string `envconfig:"ORDERS_EXCHANGE" default:"orders.exchange"`

	MarketDataURL string `envconfig:"MARKET_DATA_URL" default:""`

	// Listings with shelf life below this many days count as "short" lived.
	ShortShelfLifeDays int `envconfig:"SHORT_SHELF_LIFE_DAYS" default:"7"`
}

func Load() (Config, error) {
	_ = godotenv.Load() // load .env if it exists

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
