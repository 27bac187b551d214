package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrEmptyScenario = errors.New("scenario has no messages")

// Scenario is a list of messages replayed through the demo application.
type Scenario struct {
	Name     string        `yaml:"name"`
	Timeout  time.Duration `yaml:"timeout"`
	Messages []Step        `yaml:"messages"`
}

// Step describes one message.
//
//	type: fetch | sidebar.on | sidebar.off | sidebar.toggle | theme
//
// fetch uses key, delay and fail; theme uses payload.
// Unless async is set, the application settles before the next step.
type Step struct {
	Type    string        `yaml:"type"`
	Key     string        `yaml:"key"`
	Payload any           `yaml:"payload"`
	Delay   time.Duration `yaml:"delay"`
	Fail    string        `yaml:"fail"`
	Async   bool          `yaml:"async"`
}

const defaultTimeout = 10 * time.Second

func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(raw)
}

func ParseScenario(raw []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if len(sc.Messages) == 0 {
		return nil, ErrEmptyScenario
	}
	if sc.Timeout <= 0 {
		sc.Timeout = defaultTimeout
	}
	return &sc, nil
}
