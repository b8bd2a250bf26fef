package bus

import (
	"fmt"
	"strings"

	"github.com/kwscout/kw-scout/internal/config"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

// NewBus creates a Bus instance based on the configuration.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(log), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.ValidationError("kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "kw-scout"
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "kw-scout-bus",
		}, log)

	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}
