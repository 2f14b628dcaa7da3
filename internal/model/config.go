package model

import "time"

// Mode selects which survey variant the server runs
type Mode string

const (
	ModeHybrid Mode = "hybrid" // Access-code gate, assigned sample lists, sequential navigation
	ModeRandom Mode = "random" // Random paper and candidate pairing per request
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeHybrid || m == ModeRandom
}

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	Mode         Mode          `yaml:"mode" mapstructure:"mode"`
	SessionTTL   time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
	MessageDelay time.Duration `yaml:"message_delay" mapstructure:"message_delay"` // How long inline messages stay visible
	CORSOrigins  []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	SecureCookie bool          `yaml:"secure_cookie" mapstructure:"secure_cookie"`
}

// DataConfig configures where configuration and sample files are read from
type DataConfig struct {
	Base              string        `yaml:"base" mapstructure:"base"` // Local directory or http(s) base URL
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy         string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
}

// StoreConfig selects and configures the persistence backend
type StoreConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis, mongo
	Dir           string `yaml:"dir" mapstructure:"dir"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	MongoURI      string `yaml:"mongo_uri" mapstructure:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database" mapstructure:"mongo_database"`
}

// DatasetConfig configures papers.json extraction
type DatasetConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig configures console output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8000",
			Mode:         ModeHybrid,
			SessionTTL:   12 * time.Hour,
			MessageDelay: 5 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Data: DataConfig{
			Base:              "data",
			Timeout:           30 * time.Second,
			UserAgent:         "Pairwise/0.1 (+https://github.com/ppiankov/pairwise)",
			MaxBodyBytes:      50_000_000,
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Store: StoreConfig{
			Backend:       "layered",
			Dir:           ".pairwise/records",
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "pairwise",
		},
		Dataset: DatasetConfig{
			Workers: 4,
		},
	}
}
