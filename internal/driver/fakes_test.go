package driver

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/nerrad567/hubdriver-core/internal/api"
	"github.com/nerrad567/hubdriver-core/internal/entity"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

type ack struct {
	sessionID string
	reqID     uint64
	code      int
}

// fakeEngine records what the driver does to the protocol engine.
type fakeEngine struct {
	available  *entity.Pool
	configured *entity.Pool

	mu       sync.Mutex
	states   []protocol.DeviceState
	acks     []ack
	handlers map[api.SignalKind]map[int]api.SignalHandler
	nextID   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		available:  entity.NewPool("available"),
		configured: entity.NewPool("configured"),
		handlers:   make(map[api.SignalKind]map[int]api.SignalHandler),
	}
}

func (f *fakeEngine) Available() *entity.Pool  { return f.available }
func (f *fakeEngine) Configured() *entity.Pool { return f.configured }

func (f *fakeEngine) SetDeviceState(state protocol.DeviceState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeEngine) Subscribe(kind api.SignalKind, fn api.SignalHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.handlers[kind] == nil {
		f.handlers[kind] = make(map[int]api.SignalHandler)
	}
	f.handlers[kind][id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[kind], id)
	}
}

func (f *fakeEngine) AcknowledgeCommand(sessionID string, reqID uint64, code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ack{sessionID, reqID, code})
	return nil
}

// emit delivers a signal and returns the number of handlers that ran.
func (f *fakeEngine) emit(sig api.Signal) int {
	f.mu.Lock()
	handlers := make([]api.SignalHandler, 0, len(f.handlers[sig.Kind]))
	for _, h := range f.handlers[sig.Kind] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(context.Background(), sig)
	}
	return len(handlers)
}

func (f *fakeEngine) lastState() protocol.DeviceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return ""
	}
	return f.states[len(f.states)-1]
}

func (f *fakeEngine) acked() []ack {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ack(nil), f.acks...)
}

// configure moves an available entity into the configured pool.
func (f *fakeEngine) configure(ids ...string) {
	entity.Subscribe(f.available, f.configured, ids)
}

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// fakeBroker stands in for the MQTT client.
type fakeBroker struct {
	topics mqtt.Topics

	mu           sync.Mutex
	connected    bool
	publishErr   error
	published    []published
	handlers     map[string]mqtt.MessageHandler
	onConnect    func()
	onDisconnect func(error)
}

func newFakeBroker(connected bool) *fakeBroker {
	return &fakeBroker{
		topics:    mqtt.NewTopics("test"),
		connected: connected,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (b *fakeBroker) Topics() mqtt.Topics { return b.topics }
func (b *fakeBroker) QoS() byte           { return 1 }

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) PublishJSON(topic string, v any, retained bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, published{topic, data, retained})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) SetOnConnect(callback func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onConnect = callback
}

func (b *fakeBroker) SetOnDisconnect(callback func(error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDisconnect = callback
}

// setConnected flips the link state and runs the matching callback.
func (b *fakeBroker) setConnected(up bool) {
	b.mu.Lock()
	b.connected = up
	onConnect, onDisconnect := b.onConnect, b.onDisconnect
	b.mu.Unlock()

	if up && onConnect != nil {
		onConnect()
	}
	if !up && onDisconnect != nil {
		onDisconnect(mqtt.ErrNotConnected)
	}
}

// deliver routes a message to the handler subscribed with the state wildcard.
func (b *fakeBroker) deliver(topic string, payload string) error {
	b.mu.Lock()
	h := b.handlers[b.topics.AllEntityStates()]
	b.mu.Unlock()
	return h(topic, []byte(payload))
}

func (b *fakeBroker) messages(topic string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, p := range b.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type point struct {
	entityID   string
	entityType string
	attributes map[string]any
}

type fakeTelemetry struct {
	mu     sync.Mutex
	points []point
	paused bool
}

func (t *fakeTelemetry) WriteEntityAttributes(entityID, entityType string, attributes map[string]any, _ time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return false
	}
	t.points = append(t.points, point{entityID, entityType, maps.Clone(attributes)})
	return true
}

func (t *fakeTelemetry) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
}

func (t *fakeTelemetry) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
}

func (t *fakeTelemetry) isPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *fakeTelemetry) written() []point {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]point(nil), t.points...)
}

// memStore is an in-memory SetupStore and SnapshotStore.
type memStore struct {
	mu        sync.Mutex
	values    map[string]string
	snapshots map[string]map[string]any
	err       error
}

func newMemStore() *memStore {
	return &memStore{
		values:    make(map[string]string),
		snapshots: make(map[string]map[string]any),
	}
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, s.err
}

func (s *memStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.values[key] = value
	return nil
}

func (s *memStore) All(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return maps.Clone(s.values), nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return s.err
}

func (s *memStore) SaveSnapshot(_ context.Context, entityID string, attributes map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[entityID] = maps.Clone(attributes)
	return s.err
}

func (s *memStore) LoadSnapshots(context.Context) (map[string]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]map[string]any, len(s.snapshots))
	for id, attrs := range s.snapshots {
		out[id] = maps.Clone(attrs)
	}
	return out, nil
}

func (s *memStore) snapshot(id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.snapshots[id])
}
