package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Partition struct {
	// Pair is the currency pair this process's partition owns, e.g. "GBPUSD".
	Pair string
	// MaxOrders caps |bids| + |asks|; adds beyond it are rejected.
	MaxOrders int
	// DataDir holds the pebble database.
	DataDir string
	// Role the replica starts in: "primary", "secondary" or "unavailable".
	Role string
}

type Server struct {
	APIAddr string
	LogFile string
}

type Config struct {
	Partition Partition
	Server    Server
}

func Default() Config {
	return Config{
		Partition: Partition{
			Pair:      "GBPUSD",
			MaxOrders: 200,
			DataDir:   "data/book",
			Role:      "primary",
		},
		Server: Server{
			APIAddr: ":8080",
			LogFile: "data/bookd.log",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if pair := os.Getenv("PAIR"); pair != "" {
		cfg.Partition.Pair = pair
	}
	if max := os.Getenv("MAX_ORDERS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil && n > 0 {
			cfg.Partition.MaxOrders = n
		}
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Partition.DataDir = dir
	}
	if role := os.Getenv("ROLE"); role != "" {
		cfg.Partition.Role = role
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Server.APIAddr = addr
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Server.LogFile = logFile
	}

	return cfg
}
