// Package pubsub is an in-memory, topic-keyed broker. It decouples mutation
// handlers from subscription streams inside a single process: publishers
// append to every subscriber's private queue and never wait for consumers.
package pubsub

import (
	"sync"

	"github.com/google/uuid"
)

type Topic string

const (
	TopicMessageAdded Topic = "messageAdded"
	TopicChatAdded    Topic = "chatAdded"
	TopicChatRemoved  Topic = "chatRemoved"
)

type Broker struct {
	mu   sync.Mutex
	subs map[Topic]map[string]*Subscription
}

// NewBroker builds an empty broker. It is constructed once at process start
// and passed to whatever needs it; there is no package-level instance.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[Topic]map[string]*Subscription),
	}
}

// Publish hands payload to every subscriber currently registered on topic.
// Each subscriber has its own unbounded queue, so a slow consumer delays only
// itself. Per subscriber, payloads come out in publish order.
func (b *Broker) Publish(topic Topic, payload interface{}) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs[topic]))
	for _, sub := range b.subs[topic] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.enqueue(payload)
	}
}

// Subscribe registers a new subscriber on topic. The returned subscription
// delivers payloads on C until Close is called.
func (b *Broker) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		topic:  topic,
		broker: b,
		out:    make(chan interface{}),
		done:   make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]*Subscription)
	}
	b.subs[topic][sub.id] = sub
	b.mu.Unlock()

	go sub.pump()

	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs[sub.topic], sub.id)
	b.mu.Unlock()
}

// Subscription is one consumer's live registration against a topic.
type Subscription struct {
	id     string
	topic  Topic
	broker *Broker

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []interface{}
	closed bool

	out  chan interface{}
	done chan struct{}
}

// C is the delivery stream. It is closed after Close.
func (s *Subscription) C() <-chan interface{} {
	return s.out
}

func (s *Subscription) Topic() Topic {
	return s.topic
}

// Close deregisters the subscription and stops delivery. Payloads still
// queued are dropped. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.cond.Broadcast()
	s.mu.Unlock()

	s.broker.unsubscribe(s)
}

func (s *Subscription) enqueue(payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, payload)
	s.cond.Signal()
}

// pump moves payloads from the queue to the out channel. The queue absorbs
// bursts so enqueue never blocks; the send below blocks only this
// subscriber's own consumer.
func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			close(s.out)
			return
		}
		payload := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- payload:
		case <-s.done:
			close(s.out)
			return
		}
	}
}
