// Package pubsub connects the light to Home Assistant over Redis
// pub/sub channels named like the usual MQTT topics.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/hass"
	"lautenbacher.net/ledstrip/util"
)

const shutdownTimeout = 2 * time.Second

var errSubscriptionClosed = errors.New("redis subscription closed")

// Broker is the part of the Redis client used for publishing. Retained
// messages are additionally stored under their topic as key.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Submitter accepts parsed commands, normally the dispatch queue.
type Submitter interface {
	Submit(cmd controller.Command)
}

type Transport struct {
	client *redis.Client
	broker Broker
	codec  *hass.Codec
	submit Submitter
	states *util.Latest[controller.LightState]

	indicator Indicator
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		DialTimeout:  500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func New(client *redis.Client, codec *hass.Codec, submit Submitter, states *util.Latest[controller.LightState]) *Transport {
	return &Transport{
		client: client,
		broker: client,
		codec:  codec,
		submit: submit,
		states: states,
	}
}

// WithIndicator makes Run flash the connection status on the strip.
func (s *Transport) WithIndicator(ind Indicator) *Transport {
	s.indicator = ind
	return s
}

// Run subscribes to the command and status channels, announces the light
// and then forwards commands and state changes until ctx is done. On
// return the light is marked unavailable.
func (s *Transport) Run(ctx context.Context) error {
	topics := s.codec.Topics
	sub := s.client.Subscribe(ctx, topics.Command(), topics.Status())
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topics.Command(), err)
	}
	slog.Info("Subscribed to redis channels", "command", topics.Command(), "status", topics.Status())

	s.announce(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.publishStates(runCtx)
	}()
	if s.indicator != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			FlashConnected(runCtx, s.indicator)
		}()
	}

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			s.handle(runCtx, msg.Channel, msg.Payload)
		case <-ctx.Done():
			s.goodbye()
			return nil
		}
	}
}

func (s *Transport) handle(ctx context.Context, channel, payload string) {
	topics := s.codec.Topics
	switch channel {
	case topics.Status():
		if payload == hass.StatusOnline {
			slog.Info("Home Assistant is back online, announcing")
			s.announce(ctx)
		}
	case topics.Command():
		cmd, err := s.codec.ParseCommand([]byte(payload))
		if err != nil {
			slog.Warn("Dropping invalid command", "payload", payload, "error", err)
			return
		}
		slog.Debug("Command received", "command", cmd)
		s.submit.Submit(cmd)
	default:
		slog.Debug("Ignoring message", "channel", channel)
	}
}

// announce publishes discovery, availability and the current state.
func (s *Transport) announce(ctx context.Context) {
	topics := s.codec.Topics
	config, err := s.codec.DiscoveryPayload()
	if err != nil {
		slog.Error("Failed to build discovery payload", "error", err)
		return
	}
	s.publish(ctx, topics.Config(), config)
	s.publish(ctx, topics.Availability(), []byte(hass.PayloadAvailable))

	if state, version := s.states.Value(); version > 0 {
		s.publishState(ctx, state)
	}
}

func (s *Transport) publishStates(ctx context.Context) {
	var version uint64
	for {
		state, v, err := s.states.Wait(ctx, version)
		if err != nil {
			return
		}
		version = v
		s.publishState(ctx, state)
	}
}

func (s *Transport) publishState(ctx context.Context, state controller.LightState) {
	payload, err := s.codec.StatePayload(state)
	if err != nil {
		slog.Error("Failed to build state payload", "error", err)
		return
	}
	s.publish(ctx, s.codec.Topics.State(), payload)
}

// goodbye marks the light unavailable, using a fresh context since the
// run context is already done.
func (s *Transport) goodbye() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.publish(ctx, s.codec.Topics.Availability(), []byte(hass.PayloadNotAvailable))
}

// publish sends a retained message: it is published and stored under
// the topic name for late subscribers.
func (s *Transport) publish(ctx context.Context, topic string, payload []byte) {
	if err := s.broker.Set(ctx, topic, payload, 0).Err(); err != nil {
		slog.Error("Redis set error", "topic", topic, "error", err)
	}
	if err := s.broker.Publish(ctx, topic, payload).Err(); err != nil {
		slog.Error("Redis publish error", "topic", topic, "error", err)
	}
}
