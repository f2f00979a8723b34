package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

var cfg *Config
var once sync.Once

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Config is the configuration for the application
type Config struct {
	Server
	Store
	PostgreSQL
	Processing
	Process
	Kafka
	Log
}

// Server is the configuration for the server
type Server struct {
	Port            string `env:"PORT" envDefault:"8080"`
	ShutdownTimeout string `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Addr returns the address for the server
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%s", "0.0.0.0", s.Port)
}

func (s Server) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(s.ShutdownTimeout, 30*time.Second)
}

// Store selects the transaction store backend.
type Store struct {
	Driver     string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./transactions.db"`
}

// DriverName returns the normalised store driver, or an error naming the
// value when it is not one of the known drivers.
func (s Store) DriverName() (string, error) {
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	switch driver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverMemory:
		return driver, nil
	}
	return "", fmt.Errorf("unknown STORE_DRIVER %q, expected one of %s, %s, %s",
		s.Driver, StoreDriverSQLite, StoreDriverPostgres, StoreDriverMemory)
}

// PostgreSQL is the configuration for the database
type PostgreSQL struct {
	Driver          string `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            string `env:"DB_PORT" envDefault:"5432"`
	Database        string `env:"DB_DATABASE" envDefault:"transaction_webhooks"`
	Username        string `env:"DB_USERNAME" envDefault:"transaction_webhooks"`
	Password        string `env:"DB_PASSWORD" envDefault:"transaction_webhooks"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConnAttempts string `env:"DB_MAX_CONN_ATTEMPTS" envDefault:"5"`
}

// DSN returns the DSN for the database
func (c PostgreSQL) DSN() string {
	return c.dsn(c.Driver)
}

// MigrationURL is the DSN in the form golang-migrate's pgx/v5 driver expects.
func (c PostgreSQL) MigrationURL() string {
	return c.dsn("pgx5")
}

func (c PostgreSQL) dsn(scheme string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=%s",
		scheme,
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

func (c PostgreSQL) MaxConnAttemptsInt() int {
	return parseInt(c.MaxConnAttempts, 5)
}

// Processing configures the simulated external processing step.
type Processing struct {
	Delay         string `env:"PROCESSING_DELAY" envDefault:"30s"`
	MaxConcurrent string `env:"PROCESSING_MAX_CONCURRENT" envDefault:"64"`
}

func (p Processing) DelayDuration() time.Duration {
	return parseDuration(p.Delay, 30*time.Second)
}

func (p Processing) MaxConcurrentInt() int {
	n := parseInt(p.MaxConcurrent, 64)
	if n < 1 {
		return 1
	}
	return n
}

// Process configures the periodic stale-pending check.
type Process struct {
	Interval   string `env:"PROCESS_INTERVAL" envDefault:"10"`
	StaleAfter string `env:"STALE_PENDING_AFTER" envDefault:"5m"`
}

// IntervalDuration reads Interval as a number of minutes.
func (p Process) IntervalDuration() time.Duration {
	return time.Duration(parseInt(p.Interval, 10)) * time.Minute
}

func (p Process) StaleAfterDuration() time.Duration {
	return parseDuration(p.StaleAfter, 5*time.Minute)
}

type Kafka struct {
	Brokers string `env:"KAFKA_BROKERS" envDefault:""`
	Topic   string `env:"KAFKA_TOPIC" envDefault:"transaction.processed"`
}

// BrokerList splits the comma separated broker list, dropping blanks.
func (k Kafka) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type Log struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	File    string `env:"LOG_FILE" envDefault:""`
	Console string `env:"LOG_CONSOLE" envDefault:"true"`
}

func (l Log) ConsoleEnabled() bool {
	v, err := strconv.ParseBool(l.Console)
	return err == nil && v
}

// Load loads the configuration from environment variables, reading a .env
// file first when one is present.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		cfg = parse(os.LookupEnv)
	})

	return cfg
}

// parse fills every tagged field of every Config group from lookup.
func parse(lookup func(string) (string, bool)) *Config {
	c := &Config{}
	cfgType := reflect.TypeOf(*c)
	cfgValue := reflect.ValueOf(c).Elem()

	for i := 0; i < cfgType.NumField(); i++ {
		field := cfgType.Field(i)
		fieldValue := cfgValue.Field(i)
		for j := 0; j < field.Type.NumField(); j++ {
			subField := field.Type.Field(j)
			envVar := subField.Tag.Get("env")
			envDefault := subField.Tag.Get("envDefault")

			value, exists := lookup(envVar)
			if !exists {
				value = envDefault
			}
			fieldValue.Field(j).SetString(value)
		}
	}

	return c
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
