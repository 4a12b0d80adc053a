package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/SixtySecondsApp/onboarding-forms/dashboard"
	"github.com/SixtySecondsApp/onboarding-forms/logger"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/monitoring"
	"github.com/SixtySecondsApp/onboarding-forms/notify"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
)

type WebhookSender interface {
	Send(ctx context.Context, setting *models.WebhookSetting, event models.FormEvent) error
}

// FormConsumer fans form events out to the search index, the admin
// notification feed and the owners' webhooks.
type FormConsumer struct {
	repo     models.Repository
	es       utils.ElasticsearchClient
	feed     *notify.Feed
	webhooks WebhookSender
	reader   utils.KafkaReader
	shutdown chan struct{}
	done     chan struct{}
}

// NewFormConsumer wires the consumer. es and feed may be nil.
func NewFormConsumer(repo models.Repository, es utils.ElasticsearchClient, feed *notify.Feed, webhooks WebhookSender, reader utils.KafkaReader) *FormConsumer {
	return &FormConsumer{
		repo:     repo,
		es:       es,
		feed:     feed,
		webhooks: webhooks,
		reader:   reader,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *FormConsumer) Start(ctx context.Context) {
	logger.Get().Info("starting form event consumer")

	go func() {
		defer close(c.done)
		for {
			select {
			case <-c.shutdown:
				return
			case <-ctx.Done():
				return
			default:
				c.processMessage(ctx)
			}
		}
	}()
}

func (c *FormConsumer) Stop() {
	close(c.shutdown)
	if err := c.reader.Close(); err != nil {
		logger.Get().Warn("error closing Kafka reader", zap.Error(err))
	}
	<-c.done
}

func (c *FormConsumer) processMessage(ctx context.Context) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		select {
		case <-c.shutdown:
			return
		default:
		}
		logger.Get().Warn("Kafka read error, retrying", zap.Error(err))
		time.Sleep(5 * time.Second)
		return
	}

	c.Handle(ctx, msg.Value)
}

// Handle processes one encoded form event. Each side effect is best
// effort; a failure in one does not stop the others.
func (c *FormConsumer) Handle(ctx context.Context, payload []byte) {
	log := logger.Get()

	var event models.FormEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warn("failed to unmarshal form event", zap.Error(err))
		return
	}
	log = log.With(zap.String("event", event.Event), zap.String("form_id", event.FormID))

	switch event.Event {
	case models.EventFormCreated, models.EventFormUpdated, models.EventFormCompleted, models.EventFormReminder:
		c.index(ctx, log, event)
	case models.EventFormDeleted:
		c.unindex(ctx, log, event)
	default:
		log.Warn("unknown form event")
		return
	}

	if c.feed != nil {
		if err := c.feed.Push(ctx, event); err != nil {
			log.Warn("failed to push notification", zap.Error(err))
		}
	}

	c.deliverWebhook(ctx, log, event)

	monitoring.EventsConsumed.WithLabelValues(event.Event).Inc()
	log.Debug("processed form event")
}

func (c *FormConsumer) index(ctx context.Context, log *zap.Logger, event models.FormEvent) {
	if c.es == nil || event.Form == nil {
		return
	}
	if err := c.es.IndexDocument(ctx, dashboard.SearchIndex, event.FormID, dashboard.Document(event.Form)); err != nil {
		log.Warn("failed to index form", zap.Error(err))
	}
}

func (c *FormConsumer) unindex(ctx context.Context, log *zap.Logger, event models.FormEvent) {
	if c.es == nil {
		return
	}
	if err := c.es.DeleteDocument(ctx, dashboard.SearchIndex, event.FormID); err != nil {
		log.Warn("failed to remove form from index", zap.Error(err))
	}
}

func (c *FormConsumer) deliverWebhook(ctx context.Context, log *zap.Logger, event models.FormEvent) {
	if c.webhooks == nil || event.Owner == "" {
		return
	}

	setting, err := c.repo.GetWebhookSetting(ctx, event.Owner)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Warn("failed to load webhook setting", zap.Error(err))
		}
		return
	}
	if !setting.Wants(event.Event) {
		return
	}

	if err := c.webhooks.Send(ctx, setting, event); err != nil {
		log.Warn("webhook delivery failed", zap.String("url", setting.URL), zap.Error(err))
	}
}
