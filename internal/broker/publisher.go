package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/abhisek/atomastery/internal/gems"
	"github.com/abhisek/atomastery/internal/logger"
)

// RoutingGemAwarded is the routing key for gem award events.
const RoutingGemAwarded = "mastery.gem.awarded"

// GemAwardedEvent is the message body published for every award.
type GemAwardedEvent struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	Timestamp  time.Time `json:"timestamp"`
	RewardID   string    `json:"rewardId"`
	UserID     string    `json:"userId"`
	LessonID   string    `json:"lessonId"`
	GemType    string    `json:"gemType"`
	Rarity     string    `json:"rarity"`
	FinalScore int       `json:"finalScore"`
	Coins      int       `json:"coins"`
}

// channel is the part of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends mastery events to a topic exchange. It implements
// gems.Notifier.
type Publisher struct {
	conn     *amqp091.Connection
	mu       sync.Mutex
	ch       channel
	exchange string
	timeout  time.Duration
	log      *logger.Logger
}

var _ gems.Notifier = (*Publisher)(nil)

// Dial connects to the broker and declares a durable topic exchange.
func Dial(url, exchange string, log *logger.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := newPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{ch: ch, exchange: exchange, timeout: 5 * time.Second, log: log}
}

// GemAwarded publishes a GemAwardedEvent.
func (p *Publisher) GemAwarded(ctx context.Context, a gems.GemAward) error {
	ev := GemAwardedEvent{
		EventID:    uuid.NewString(),
		EventType:  RoutingGemAwarded,
		Timestamp:  a.AwardedAt,
		RewardID:   a.RewardID,
		UserID:     a.UserID,
		LessonID:   a.LessonID,
		GemType:    string(a.Type),
		Rarity:     string(a.Rarity),
		FinalScore: a.FinalScore,
		Coins:      a.Coins,
	}
	return p.publish(ctx, RoutingGemAwarded, ev.EventID, ev)
}

func (p *Publisher) publish(ctx context.Context, routingKey, messageID string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(
		pubCtx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.log.Debug("published event", "routing_key", routingKey, "message_id", messageID)
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	if p.ch != nil {
		first = p.ch.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
