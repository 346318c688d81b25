// Package events publishes room lifecycle notifications for downstream
// consumers. Delivery is best effort; nothing in the coordinator depends on it.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	RoomOpened       Type = "room.opened"
	RoomClosed       Type = "room.closed"
	RoomEnded        Type = "room.ended"
	SessionCompleted Type = "session.completed"
	ParticipantKick  Type = "participant.kicked"
)

// Event is the payload published on <prefix>.<type>
type Event struct {
	Type   Type              `json:"type"`
	RoomID string            `json:"roomId"`
	Data   map[string]string `json:"data,omitempty"`
	At     time.Time         `json:"at"`
}

// Publisher is implemented by NATSPublisher and NopPublisher
type Publisher interface {
	Publish(ev Event) error
	Close()
}

type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		SubjectPrefix: "studyroom.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewPublisher connects to NATS, or returns a NopPublisher when no URL is configured
func NewPublisher(cfg Config) (Publisher, error) {
	if cfg.URL == "" {
		return NopPublisher{}, nil
	}

	opts := []nats.Option{
		nats.Name("studyroom"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, prefix: cfg.SubjectPrefix}, nil
}

func (p *NATSPublisher) Publish(ev Event) error {
	subject, data, err := encode(p.prefix, ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(subject, data)
}

func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
	}
}

func encode(prefix string, ev Event) (string, []byte, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return "", nil, fmt.Errorf("marshal event: %w", err)
	}
	return prefix + "." + string(ev.Type), data, nil
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
func (NopPublisher) Close()              {}
