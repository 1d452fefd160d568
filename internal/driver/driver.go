package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/hubdriver-core/internal/api"
	"github.com/nerrad567/hubdriver-core/internal/entity"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/config"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// ErrNoEngine is returned by New when Deps.Engine is nil.
var ErrNoEngine = errors.New("driver: engine is required")

// snapshotTimeout bounds a single snapshot write.
const snapshotTimeout = 2 * time.Second

// Engine is the part of the protocol engine the driver uses.
// *api.Server implements it.
type Engine interface {
	Available() *entity.Pool
	Configured() *entity.Pool
	SetDeviceState(state protocol.DeviceState)
	Subscribe(kind api.SignalKind, fn api.SignalHandler) (unsubscribe func())
	AcknowledgeCommand(sessionID string, reqID uint64, code int) error
}

// Broker is the MQTT link to the devices. *mqtt.Client implements it.
type Broker interface {
	Topics() mqtt.Topics
	QoS() byte
	IsConnected() bool
	PublishJSON(topic string, v any, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	SetOnConnect(callback func())
	SetOnDisconnect(callback func(err error))
}

// Telemetry records attribute history. *influxdb.Client implements it.
type Telemetry interface {
	WriteEntityAttributes(entityID, entityType string, attributes map[string]any, ts time.Time) bool
	Pause()
	Resume()
}

// Logger defines the logging interface used by the driver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the driver's collaborators. Broker, Telemetry and Snapshots
// are optional and nil when the matching backend is disabled.
type Deps struct {
	Engine    Engine
	Entities  []config.EntityConfig
	Broker    Broker
	Telemetry Telemetry
	Snapshots SnapshotStore
	Logger    Logger
}

// commandPayload is published on an entity's command topic.
type commandPayload struct {
	CmdID  string         `json:"cmd_id"`
	Params map[string]any `json:"params,omitempty"`
}

// Driver connects the entity catalogue to the devices behind the MQTT
// broker.
//
// Commands from the hub are published to the broker; attribute updates
// arriving from the broker are merged into the pools and mirrored to
// telemetry. Without a broker, commands are answered locally through the
// entity_command signal.
type Driver struct {
	engine    Engine
	defs      []config.EntityConfig
	broker    Broker
	telemetry Telemetry
	snapshots SnapshotStore
	logger    Logger

	mu          sync.Mutex
	suspended   bool // hub asked to disconnect from the devices
	unsubscribe []func()
}

// New creates a driver. Call Start to populate the engine.
func New(deps Deps) (*Driver, error) {
	if deps.Engine == nil {
		return nil, ErrNoEngine
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Driver{
		engine:    deps.Engine,
		defs:      deps.Entities,
		broker:    deps.Broker,
		telemetry: deps.Telemetry,
		snapshots: deps.Snapshots,
		logger:    logger,
	}, nil
}

// Start builds the entities, registers signal handlers and subscribes to
// device state updates.
func (d *Driver) Start(ctx context.Context) error {
	var snapshots map[string]map[string]any
	if d.snapshots != nil {
		var err error
		snapshots, err = d.snapshots.LoadSnapshots(ctx)
		if err != nil {
			return fmt.Errorf("loading entity snapshots: %w", err)
		}
	}

	var handler entity.CommandHandler
	if d.broker != nil {
		handler = entity.CommandFunc(d.publishCommand)
	}

	entities, err := BuildEntities(d.defs, snapshots, handler)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if !d.engine.Available().Add(e) {
			d.logger.Warn("entity already available", "entity_id", e.ID())
		}
	}

	d.engine.Configured().OnChange(d.mirrorChange)

	d.on(api.SignalConnect, d.handleConnect)
	d.on(api.SignalDisconnect, d.handleDisconnect)
	d.on(api.SignalEnterStandby, d.handleEnterStandby)
	d.on(api.SignalExitStandby, d.handleExitStandby)
	if d.broker == nil {
		d.on(api.SignalEntityCommand, d.handleLocalCommand)
	}

	if d.broker != nil {
		d.broker.SetOnConnect(d.refreshDeviceState)
		d.broker.SetOnDisconnect(func(err error) {
			d.logger.Warn("device link lost", "error", err)
			d.refreshDeviceState()
		})
		topic := d.broker.Topics().AllEntityStates()
		if err := d.broker.Subscribe(topic, d.broker.QoS(), d.handleState); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}

	d.logger.Info("driver started", "entities", len(entities), "mqtt", d.broker != nil, "telemetry", d.telemetry != nil)
	d.refreshDeviceState()
	return nil
}

// Close removes the signal handlers.
func (d *Driver) Close() {
	d.mu.Lock()
	unsubscribe := d.unsubscribe
	d.unsubscribe = nil
	d.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
}

func (d *Driver) on(kind api.SignalKind, fn api.SignalHandler) {
	stop := d.engine.Subscribe(kind, fn)
	d.mu.Lock()
	d.unsubscribe = append(d.unsubscribe, stop)
	d.mu.Unlock()
}

// publishCommand forwards a hub command to the device.
func (d *Driver) publishCommand(_ context.Context, e *entity.Entity, cmdID string, params map[string]any) int {
	if !d.broker.IsConnected() {
		d.logger.Warn("command while device link is down", "entity_id", e.ID(), "cmd_id", cmdID)
		return protocol.StatusServiceUnavailable
	}

	topic := d.broker.Topics().EntityCommand(e.ID())
	if err := d.broker.PublishJSON(topic, commandPayload{CmdID: cmdID, Params: params}, false); err != nil {
		d.logger.Error("failed to publish command", "entity_id", e.ID(), "cmd_id", cmdID, "error", err)
		return protocol.StatusServiceUnavailable
	}

	d.logger.Debug("command published", "entity_id", e.ID(), "cmd_id", cmdID, "topic", topic)
	return protocol.StatusOK
}

// handleLocalCommand answers commands when no device link is configured.
// The request is acknowledged before the resulting attributes are applied
// so the hub sees the result before the entity_change event.
func (d *Driver) handleLocalCommand(ctx context.Context, sig api.Signal) {
	cmd := sig.Command
	e, ok := d.engine.Configured().Get(cmd.EntityID)
	if !ok {
		d.ack(sig, protocol.StatusNotFound)
		return
	}

	d.ack(sig, protocol.StatusOK)
	d.apply(ctx, e.ID(), commandAttributes(e, cmd.CmdID, cmd.Params))
}

func (d *Driver) ack(sig api.Signal, code int) {
	if err := d.engine.AcknowledgeCommand(sig.SessionID, sig.ReqID, code); err != nil {
		d.logger.Warn("failed to acknowledge command", "session_id", sig.SessionID, "req_id", sig.ReqID, "error", err)
	}
}

// handleState applies an attribute update published by a device.
func (d *Driver) handleState(topic string, payload []byte) error {
	id, kind, ok := d.broker.Topics().ParseEntityTopic(topic)
	if !ok || kind != mqtt.KindState {
		return nil
	}

	var attrs map[string]any
	if err := json.Unmarshal(payload, &attrs); err != nil {
		return fmt.Errorf("decoding state for %s: %w", id, err)
	}
	if len(attrs) == 0 {
		return nil
	}

	if !d.apply(context.Background(), id, attrs) {
		d.logger.Debug("state for unknown entity", "entity_id", id)
	}
	return nil
}

// apply merges attrs into the entity. Configured entities relay the
// change to the hub; otherwise only the available entity is updated.
func (d *Driver) apply(ctx context.Context, id string, attrs map[string]any) bool {
	if !d.engine.Configured().UpdateAttributes(id, attrs) &&
		!d.engine.Available().UpdateAttributes(id, attrs) {
		return false
	}

	if d.snapshots != nil {
		if e, ok := d.engine.Available().Get(id); ok {
			ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
			defer cancel()
			if err := d.snapshots.SaveSnapshot(ctx, id, e.Attributes()); err != nil {
				d.logger.Warn("failed to store entity snapshot", "entity_id", id, "error", err)
			}
		}
	}
	return true
}

// mirrorChange publishes a configured-pool change to the broker and to
// telemetry.
func (d *Driver) mirrorChange(c entity.Change) {
	if d.broker != nil && d.broker.IsConnected() {
		if err := d.broker.PublishJSON(d.broker.Topics().EntityChange(c.EntityID), c.Attributes, true); err != nil {
			d.logger.Warn("failed to mirror entity change", "entity_id", c.EntityID, "error", err)
		}
	}
	if d.telemetry != nil {
		d.telemetry.WriteEntityAttributes(c.EntityID, string(c.EntityType), c.Attributes, time.Now())
	}
}

func (d *Driver) handleConnect(context.Context, api.Signal) {
	d.mu.Lock()
	d.suspended = false
	d.mu.Unlock()
	d.refreshDeviceState()
}

func (d *Driver) handleDisconnect(context.Context, api.Signal) {
	d.mu.Lock()
	d.suspended = true
	d.mu.Unlock()
	d.refreshDeviceState()
}

func (d *Driver) handleEnterStandby(context.Context, api.Signal) {
	if d.telemetry != nil {
		d.telemetry.Pause()
	}
	d.logger.Info("entering standby")
}

func (d *Driver) handleExitStandby(context.Context, api.Signal) {
	if d.telemetry != nil {
		d.telemetry.Resume()
	}
	d.logger.Info("leaving standby")
}

// deviceState derives the state reported to the hub.
func (d *Driver) deviceState() protocol.DeviceState {
	d.mu.Lock()
	suspended := d.suspended
	d.mu.Unlock()

	switch {
	case suspended:
		return protocol.DeviceDisconnected
	case d.broker == nil || d.broker.IsConnected():
		return protocol.DeviceConnected
	default:
		return protocol.DeviceConnecting
	}
}

// refreshDeviceState reports the current state to the hub and mirrors it
// on the broker's retained device state topic.
func (d *Driver) refreshDeviceState() {
	state := d.deviceState()
	d.engine.SetDeviceState(state)

	if d.broker != nil && d.broker.IsConnected() {
		payload := protocol.DeviceStatePayload{State: state}
		if err := d.broker.PublishJSON(d.broker.Topics().DeviceState(), payload, true); err != nil {
			d.logger.Warn("failed to publish device state", "state", state, "error", err)
		}
	}
}
