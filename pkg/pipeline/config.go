package pipeline

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
)

// envBatchSize overrides Options.BatchSize when set.
const envBatchSize = "MCAP2ARROW_BATCH_SIZE"

// LoadOptions builds Options from the environment, optionally seeded from an
// .env file at envFilePath (a missing file is not an error — not every
// deployment carries one). An MCAP2ARROW_BATCH_SIZE entry overrides the
// default batch size.
func LoadOptions(envFilePath string) (Options, error) {
	if envFilePath == "" {
		envFilePath = ".env"
	}
	if _, err := os.Stat(envFilePath); err == nil {
		if loadErr := godotenv.Load(envFilePath); loadErr != nil {
			return Options{}, mcaperr.IO(loadErr)
		}
		cclog.Debugf("[MCAP2ARROW]> loaded environment overrides from %s", envFilePath)
	}

	opts := DefaultOptions()
	if raw := os.Getenv(envBatchSize); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Options{}, mcaperr.New(mcaperr.KindIO, "invalid "+envBatchSize+": "+raw)
		}
		opts.BatchSize = n
	}
	return opts, nil
}
