package replies

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PratikDhanave/line-webhook-service/internal/logging"
	"github.com/PratikDhanave/line-webhook-service/internal/messaging"
	"github.com/PratikDhanave/line-webhook-service/internal/models"
	"github.com/PratikDhanave/line-webhook-service/internal/webhook"
)

// Sender is the outbound side of the messaging client.
type Sender interface {
	Reply(ctx context.Context, replyToken string, msgs []messaging.Message) error
	Push(ctx context.Context, to string, msgs []messaging.Message) error
}

// Handlers builds one handler per catalogue rule. The result is meant to be
// passed to webhook.NewRegistry.
func Handlers(cat *Catalogue, sender Sender, logger *zap.Logger) map[models.EventType]webhook.HandlerFunc {
	out := make(map[models.EventType]webhook.HandlerFunc, len(cat.Replies))
	if logger == nil {
		logger = zap.NewNop()
	}
	for name, rule := range cat.Replies {
		eventType := models.ParseEventType(name)
		out[eventType] = ruleHandler(eventType, rule, sender, logger.Named("replies"))
	}
	return out
}

func ruleHandler(eventType models.EventType, rule Rule, sender Sender, base *zap.Logger) webhook.HandlerFunc {
	return func(ctx context.Context, event models.Event) error {
		log := logging.FromContext(ctx, base)

		msgs := make([]messaging.Message, 0, len(rule.Messages)+1)
		if rule.Echo {
			if event.Message == nil || event.Message.Type != models.ContentText {
				log.Debug("echo skipped for non-text message", zap.String("event_id", event.WebhookEventID))
			} else {
				msgs = append(msgs, messaging.Text(event.Message.Text))
			}
		}
		msgs = append(msgs, rule.Messages...)
		if len(msgs) == 0 {
			return nil
		}

		switch rule.Mode {
		case ModePush:
			to := event.Source.TargetID()
			if to == "" {
				return fmt.Errorf("%s: event source has no push target", eventType)
			}
			log.Info("pushing messages",
				zap.String("event_type", string(eventType)),
				zap.String("to", to),
				zap.Int("messages", len(msgs)),
			)
			return sender.Push(ctx, to, msgs)
		default:
			log.Info("replying to event",
				zap.String("event_type", string(eventType)),
				zap.Int("messages", len(msgs)),
			)
			return sender.Reply(ctx, event.ReplyToken, msgs)
		}
	}
}
