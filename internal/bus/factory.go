package bus

import (
	"fmt"
	"strings"

	"github.com/ricesearch/contact-eval/internal/config"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
	"github.com/ricesearch/contact-eval/internal/pkg/logger"
)

// NewBus creates a new Bus instance based on the configuration. When an
// event log path is configured, the bus is wrapped in a LoggedBus.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	var inner Bus

	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		inner = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "contact-eval"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "contact-eval-bus",
		}, log)
		if err != nil {
			return nil, err
		}
		inner = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog == "" {
		return inner, nil
	}

	eventLogger, err := NewEventLogger(cfg.EventLog)
	if err != nil {
		inner.Close()
		return nil, errors.Wrap(errors.CodeInternal, "opening event log", err)
	}
	return NewLoggedBus(inner, eventLogger, log), nil
}
