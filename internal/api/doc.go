// Package api implements the hub-facing protocol engine.
//
// This package provides:
//   - The WebSocket endpoint a controlling hub connects to
//   - The request/event/response dispatcher for the integration protocol
//   - Entity catalogue and attribute change relay (available/configured pools)
//   - The setup wizard entry points and driver-initiated requests (OAuth)
//   - Health and Prometheus metrics endpoints
//
// # Architecture
//
// One Server owns every piece of protocol state: the session registry, the
// two entity pools, the outbound request correlator and the setup flow.
// Nothing is package-global, so tests and embedding drivers can run several
// engines side by side.
//
// Frames from one session are read and dispatched sequentially, and every
// frame for a session goes through that session's single send queue, so
// responses leave in the order requests arrived. There is no ordering
// across sessions.
//
// # Driver hooks
//
// Drivers react to hub activity through Subscribe. Entity commands are
// answered by the entity's CommandHandler when one is installed; otherwise
// an entity_command signal is emitted and the driver acknowledges it with
// AcknowledgeCommand. The setup wizard works the same way: with a
// setup.Handler in Deps the engine drives the conversation itself, without
// one the setup_driver and setup_user_data signals are emitted and the
// driver answers with the DriverSetup* helpers.
package api
