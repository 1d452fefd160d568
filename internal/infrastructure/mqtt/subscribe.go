package mqtt

import (
	"fmt"
	"sync"
)

// subscriptionSet remembers active filters so they can be replayed after
// the broker drops the clean session.
type subscriptionSet struct {
	mu      sync.RWMutex
	entries map[string]subscription
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{entries: make(map[string]subscription)}
}

func (s *subscriptionSet) add(filter string, sub subscription) {
	s.mu.Lock()
	s.entries[filter] = sub
	s.mu.Unlock()
}

func (s *subscriptionSet) remove(filter string) {
	s.mu.Lock()
	delete(s.entries, filter)
	s.mu.Unlock()
}

func (s *subscriptionSet) has(filter string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[filter]
	return ok
}

func (s *subscriptionSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// each calls fn for every tracked filter while holding the read lock.
func (s *subscriptionSet) each(fn func(filter string, sub subscription)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for filter, sub := range s.entries {
		fn(filter, sub)
	}
}

// Subscribe registers handler for filter, which may use the + and #
// wildcards. Subscriptions are replayed after every reconnect.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := checkTopic(filter, true); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: no handler for %s", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subs.add(filter, subscription{qos: qos, handler: handler})
	if err := await(c.client.Subscribe(filter, qos, c.wrapHandler(handler)), defaultPublishTimeout, ErrSubscribeFailed); err != nil {
		c.subs.remove(filter)
		return err
	}
	return nil
}

// Unsubscribe drops filter. Messages already in flight may still arrive.
func (c *Client) Unsubscribe(filter string) error {
	if err := checkTopic(filter, true); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subs.remove(filter)
	if err := await(c.client.Unsubscribe(filter), defaultPublishTimeout, ErrSubscribeFailed); err != nil {
		return fmt.Errorf("unsubscribing %s: %w", filter, err)
	}
	return nil
}

// SubscriptionCount returns the number of tracked filters.
func (c *Client) SubscriptionCount() int {
	return c.subs.len()
}

// HasSubscription reports whether exactly filter is subscribed.
func (c *Client) HasSubscription(filter string) bool {
	return c.subs.has(filter)
}

func (c *Client) restoreSubscriptions() {
	c.subs.each(func(filter string, sub subscription) {
		// A failure here is retried on the next reconnect.
		c.client.Subscribe(filter, sub.qos, c.wrapHandler(sub.handler))
	})
}
