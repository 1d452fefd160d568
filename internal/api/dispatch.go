package api

import (
	"context"

	"github.com/nerrad567/hubdriver-core/internal/entity"
	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// requestHandler answers one hub request. Every path must send exactly one
// response unless it hands the acknowledgement to the driver.
type requestHandler func(ctx context.Context, sessionID string, reqID uint64, msg *protocol.Message)

// requestHandlers is the fixed req dispatch table.
func (s *Server) requestHandlers() map[string]requestHandler {
	return map[string]requestHandler{
		protocol.ReqGetDriverVersion:     s.handleGetDriverVersion,
		protocol.ReqGetDeviceState:       s.handleGetDeviceState,
		protocol.ReqGetAvailableEntities: s.handleGetAvailableEntities,
		protocol.ReqGetEntityStates:      s.handleGetEntityStates,
		protocol.ReqGetDriverMetadata:    s.handleGetDriverMetadata,
		protocol.ReqSubscribeEvents:      s.handleSubscribeEvents,
		protocol.ReqUnsubscribeEvents:    s.handleUnsubscribeEvents,
		protocol.ReqEntityCommand:        s.handleEntityCommand,
		protocol.ReqSetupDriver:          s.handleSetupDriver,
		protocol.ReqSetDriverUserData:    s.handleSetDriverUserData,
	}
}

// handleFrame parses one inbound frame and routes it by kind.
// Malformed frames are logged and dropped without a response.
func (s *Server) handleFrame(sessionID string, data []byte) {
	msg, err := protocol.Parse(data)
	if err != nil {
		s.metrics.frameMalformed()
		s.logger.Warn("dropping malformed frame", "session_id", sessionID, "error", err)
		return
	}
	s.metrics.frameReceived(string(msg.Kind))

	switch msg.Kind {
	case protocol.KindRequest:
		s.handleRequest(sessionID, msg)
	case protocol.KindEvent:
		s.handleEvent(sessionID, msg)
	case protocol.KindResponse:
		s.handleResponse(sessionID, msg)
	}
}

func (s *Server) handleRequest(sessionID string, msg *protocol.Message) {
	reqID, ok := msg.RequestID()
	if !ok {
		s.logger.Warn("dropping request without id", "session_id", sessionID, "msg", msg.Msg)
		return
	}

	handler, ok := s.reqTable[msg.Msg]
	if !ok {
		s.logger.Warn("unknown request", "session_id", sessionID, "msg", msg.Msg, "req_id", reqID)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusServerError, nil)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic handling request", "session_id", sessionID, "msg", msg.Msg, "req_id", reqID, "panic", r)
			s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusServerError, nil)
		}
	}()

	s.logger.Debug("request received", "session_id", sessionID, "msg", msg.Msg, "req_id", reqID)
	handler(s.ctx, sessionID, reqID, msg)
}

func (s *Server) handleResponse(sessionID string, msg *protocol.Message) {
	reqID, ok := msg.RequestID()
	if !ok {
		s.logger.Warn("dropping response without req_id", "session_id", sessionID, "msg", msg.Msg)
		return
	}
	s.requests.Resolve(reqID, msg.StatusCode(), msg.MsgData)
}

// driverVersion prefers the metadata version over the build version.
func (s *Server) driverVersion() string {
	if s.metadata.Version != "" {
		return s.metadata.Version
	}
	return s.version
}

func (s *Server) handleGetDriverVersion(_ context.Context, sessionID string, reqID uint64, _ *protocol.Message) {
	s.respond(sessionID, reqID, protocol.RespDriverVersion, protocol.StatusOK, protocol.DriverVersion{
		Name: s.metadata.DisplayName(),
		Version: protocol.VersionDetails{
			API:    APIVersion,
			Driver: s.driverVersion(),
		},
	})
}

func (s *Server) handleGetDeviceState(_ context.Context, sessionID string, reqID uint64, _ *protocol.Message) {
	s.respond(sessionID, reqID, protocol.RespDeviceState, protocol.StatusOK, protocol.DeviceStatePayload{
		State: s.DeviceState(),
	})
}

// availableEntitiesRequest optionally narrows get_available_entities.
type availableEntitiesRequest struct {
	Filter struct {
		EntityType string `json:"entity_type"`
	} `json:"filter"`
}

type availableEntities struct {
	AvailableEntities []entity.Descriptor `json:"available_entities"`
}

func (s *Server) handleGetAvailableEntities(_ context.Context, sessionID string, reqID uint64, msg *protocol.Message) {
	var req availableEntitiesRequest
	if err := msg.DecodeData(&req); err != nil {
		s.logger.Debug("ignoring unreadable entity filter", "session_id", sessionID, "error", err)
	}

	descriptors := s.available.Descriptors()
	if t := req.Filter.EntityType; t != "" {
		filtered := descriptors[:0]
		for _, d := range descriptors {
			if string(d.EntityType) == t {
				filtered = append(filtered, d)
			}
		}
		descriptors = filtered
	}

	s.respond(sessionID, reqID, protocol.RespAvailableEntities, protocol.StatusOK, availableEntities{
		AvailableEntities: descriptors,
	})
}

func (s *Server) handleGetEntityStates(_ context.Context, sessionID string, reqID uint64, _ *protocol.Message) {
	s.respond(sessionID, reqID, protocol.RespEntityStates, protocol.StatusOK, s.configured.States())
}

func (s *Server) handleGetDriverMetadata(_ context.Context, sessionID string, reqID uint64, _ *protocol.Message) {
	s.respond(sessionID, reqID, protocol.RespDriverMetadata, protocol.StatusOK, s.metadata.Document)
}

func (s *Server) handleSubscribeEvents(ctx context.Context, sessionID string, reqID uint64, msg *protocol.Message) {
	var req protocol.EntityIDsRequest
	if err := msg.DecodeData(&req); err != nil {
		s.logger.Warn("invalid subscribe_events payload", "session_id", sessionID, "error", err)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusBadRequest, nil)
		return
	}

	missing := entity.Subscribe(s.available, s.configured, req.EntityIDs)
	if len(missing) > 0 {
		s.logger.Info("subscribed with unknown entities", "session_id", sessionID, "missing", missing)
	}

	s.emit(ctx, Signal{Kind: SignalSubscribeEntities, SessionID: sessionID, EntityIDs: req.EntityIDs})
	s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusOK, nil)
}

func (s *Server) handleUnsubscribeEvents(ctx context.Context, sessionID string, reqID uint64, msg *protocol.Message) {
	var req protocol.EntityIDsRequest
	if err := msg.DecodeData(&req); err != nil {
		s.logger.Warn("invalid unsubscribe_events payload", "session_id", sessionID, "error", err)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusBadRequest, nil)
		return
	}

	res := s.configured.Unsubscribe(req.EntityIDs)
	if !res.OK() {
		s.logger.Info("unsubscribed entities that were not configured", "session_id", sessionID, "missing", res.Missing)
	}

	s.emit(ctx, Signal{
		Kind:        SignalUnsubscribeEntities,
		SessionID:   sessionID,
		EntityIDs:   req.EntityIDs,
		Unsubscribe: &res,
	})
	s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusOK, nil)
}
