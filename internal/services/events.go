package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const OrdersExchange = "shopfront.orders"

// ChannelPool garde des canaux AMQP ouverts sur une seule connexion.
type ChannelPool struct {
	conn     *amqp.Connection
	channels chan *amqp.Channel
	mu       sync.Mutex
	closed   bool
	queue    string
}

// NewChannelPool se connecte, déclare l'exchange topic des commandes et la
// file qui reçoit tous les événements order.*.
func NewChannelPool(url, queue string, size int) (*ChannelPool, error) {
	if size <= 0 {
		size = 1
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connexion RabbitMQ: %w", err)
	}

	pool := &ChannelPool{
		conn:     conn,
		channels: make(chan *amqp.Channel, size),
		queue:    queue,
	}

	for i := 0; i < size; i++ {
		ch, err := pool.createChannel()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("création canal %d: %w", i, err)
		}
		pool.channels <- ch
	}

	log.Printf("✅ Pool RabbitMQ prêt (%d canaux, file %s)", size, queue)
	return pool, nil
}

// Déclarations idempotentes, refaites à chaque nouveau canal
func (p *ChannelPool) createChannel() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(OrdersExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("déclaration exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("déclaration file: %w", err)
	}
	if err := ch.QueueBind(p.queue, "order.#", OrdersExchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("liaison file: %w", err)
	}
	return ch, nil
}

func (p *ChannelPool) get(ctx context.Context) (*amqp.Channel, error) {
	select {
	case ch, ok := <-p.channels:
		if !ok {
			return nil, errors.New("pool RabbitMQ fermé")
		}
		if ch.IsClosed() {
			return p.createChannel()
		}
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ChannelPool) put(ch *amqp.Channel) {
	if ch == nil || ch.IsClosed() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		ch.Close()
		return
	}
	select {
	case p.channels <- ch:
	default:
		ch.Close()
	}
}

func (p *ChannelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	close(p.channels)
	for ch := range p.channels {
		ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	log.Println("🔌 Pool RabbitMQ fermé")
}

// Events publie les événements de commande sur l'exchange topic.
type Events struct {
	pool *ChannelPool
}

func NewEvents(pool *ChannelPool) *Events {
	return &Events{pool: pool}
}

// Publish envoie payload en JSON persistant avec routingKey (ex. order.placed).
func (e *Events) Publish(ctx context.Context, routingKey string, payload any) error {
	msg, err := newPublishing(routingKey, payload)
	if err != nil {
		return err
	}

	ch, err := e.pool.get(ctx)
	if err != nil {
		return fmt.Errorf("canal RabbitMQ: %w", err)
	}
	defer e.pool.put(ch)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(ctx, OrdersExchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publication %s: %w", routingKey, err)
	}
	log.Printf("📨 Événement %s publié", routingKey)
	return nil
}

func newPublishing(routingKey string, payload any) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encodage %s: %w", routingKey, err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         routingKey,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
