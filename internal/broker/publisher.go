// Package broker publishes link status changes to an MQTT broker so other
// ground station services can follow connect and disconnect.
package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/groundstation/gsd/internal/config"
	"github.com/groundstation/gsd/internal/session"
)

var (
	// ErrPublishTimeout is reported when the broker does not acknowledge in time.
	ErrPublishTimeout = errors.New("mqtt publish timed out")
	// ErrPublisherClosed is returned by PublishStatus after Close.
	ErrPublisherClosed = errors.New("mqtt publisher closed")
)

// Client is the subset of mqtt.Client used for publishing.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends retained status messages on <prefix>/status from a
// background goroutine. Only the newest unsent status is kept.
type Publisher struct {
	client  Client
	topic   string
	timeout time.Duration

	pending   chan session.Status
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeFn   func()
}

var _ session.StatusPublisher = (*Publisher)(nil)

// NewPublisher wraps an already connected client.
func NewPublisher(client Client, topicPrefix string, timeout time.Duration) *Publisher {
	p := &Publisher{
		client:  client,
		topic:   topicPrefix + "/status",
		timeout: timeout,
		pending: make(chan session.Status, 1),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Connect dials the configured broker and returns a publisher over it.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out after %v", cfg.Broker, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	p := NewPublisher(client, cfg.TopicPrefix, cfg.ConnectTimeout)
	p.closeFn = func() { client.Disconnect(250) }
	return p, nil
}

// Topic returns the status topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishStatus queues st for delivery and returns without waiting for the
// broker. A queued status that has not gone out yet is replaced by st.
func (p *Publisher) PublishStatus(st session.Status) error {
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}

	for {
		select {
		case p.pending <- st:
			return nil
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case st := <-p.pending:
			p.deliver(st)
		case <-p.done:
			// Last status before shutdown still goes out.
			select {
			case st := <-p.pending:
				p.deliver(st)
			default:
			}
			return
		}
	}
}

func (p *Publisher) deliver(st session.Status) {
	if err := p.send(st); err != nil {
		log.Printf("Failed to publish link status to %s: %v", p.topic, err)
	}
}

// send publishes st as retained JSON at QoS 1 and waits for the broker.
func (p *Publisher) send(st session.Status) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Close flushes the queued status, stops the sender and disconnects a client
// opened by Connect. It is safe to call more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		if p.closeFn != nil {
			p.closeFn()
		}
	})
}
