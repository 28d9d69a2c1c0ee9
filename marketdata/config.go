package marketdata

import (
	"log/slog"

	"github.com/ericli/autotrader/common"
)

const DefaultBatchSize = 5

// Config holds the constructor parameters for Client.
type Config struct {
	APIKey    string
	Symbols   []string
	BatchSize int
	BaseURL   string
}

// ConfigFromEnv builds a Config from the environment. It fills defaults but
// does not validate; New does that.
func ConfigFromEnv() Config {
	apiKey, _ := common.GetEnv("MARKET_API_KEY", "")

	batchSize, err := common.GetEnv("MARKET_BATCH_SIZE", DefaultBatchSize)
	if err != nil {
		slog.Warn("Failed to get MARKET_BATCH_SIZE from env, using default", "error", err)
	}

	baseURL, _ := common.GetEnv("MARKET_BASE_URL", "")

	return Config{
		APIKey:    apiKey,
		Symbols:   common.GetEnvList("MARKET_SYMBOLS", nil),
		BatchSize: batchSize,
		BaseURL:   baseURL,
	}
}
