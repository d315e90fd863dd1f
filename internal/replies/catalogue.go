package replies

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/PratikDhanave/line-webhook-service/internal/messaging"
	"github.com/PratikDhanave/line-webhook-service/internal/models"
)

const (
	ModeReply = "reply"
	ModePush  = "push"
)

// Catalogue is the top-level YAML structure.
type Catalogue struct {
	Replies map[string]Rule `yaml:"replies"`
}

// Rule describes what to send in response to one event type.
type Rule struct {
	Mode     string              `yaml:"mode"` // reply (default) or push
	Messages []messaging.Message `yaml:"messages"`
	Echo     bool                `yaml:"echo"` // message events only: send back the received text
}

// Load reads and validates the catalogue at path. A missing file yields an
// empty catalogue.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Catalogue{Replies: map[string]Rule{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read replies %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("replies %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates catalogue YAML.
func Parse(data []byte) (*Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if cat.Replies == nil {
		cat.Replies = map[string]Rule{}
	}
	for name, rule := range cat.Replies {
		if rule.Mode == "" {
			rule.Mode = ModeReply
			cat.Replies[name] = rule
		}
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks every rule and reports all problems at once.
func (c *Catalogue) Validate() error {
	names := make([]string, 0, len(c.Replies))
	for name := range c.Replies {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := validateRule(name, c.Replies[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validateRule(name string, rule Rule) error {
	eventType := models.ParseEventType(name)
	if eventType == models.EventUnknown && name != string(models.EventUnknown) {
		return fmt.Errorf("%s: unknown event type", name)
	}

	switch rule.Mode {
	case ModeReply, ModePush:
	default:
		return fmt.Errorf("%s: unknown mode %q", name, rule.Mode)
	}

	if rule.Mode == ModeReply && !carriesReplyToken(eventType) {
		return fmt.Errorf("%s: event carries no reply token, use mode push", name)
	}

	if rule.Echo && eventType != models.EventMessage {
		return fmt.Errorf("%s: echo is only supported for message events", name)
	}

	n := len(rule.Messages)
	if rule.Echo {
		n++
	}
	if n == 0 || n > messaging.MaxMessagesPerCall {
		return fmt.Errorf("%s: expected 1..%d messages, got %d", name, messaging.MaxMessagesPerCall, n)
	}

	for i, m := range rule.Messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%s: message %d: %w", name, i, err)
		}
	}
	return nil
}

// unfollow, leave and memberLeft events are delivered without a reply token.
func carriesReplyToken(t models.EventType) bool {
	switch t {
	case models.EventUnfollow, models.EventLeave, models.EventMemberLeft:
		return false
	}
	return true
}

// Types returns the event types with a rule, sorted.
func (c *Catalogue) Types() []models.EventType {
	out := make([]models.EventType, 0, len(c.Replies))
	for name := range c.Replies {
		out = append(out, models.ParseEventType(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
