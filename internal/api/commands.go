package api

import (
	"context"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// handleEntityCommand validates the request before any lookup, then lets
// the entity's command handler answer. Entities without a handler fall
// back to the entity_command signal; the driver acknowledges with
// AcknowledgeCommand.
func (s *Server) handleEntityCommand(ctx context.Context, sessionID string, reqID uint64, msg *protocol.Message) {
	var req protocol.EntityCommandRequest
	if err := msg.DecodeData(&req); err != nil || req.EntityID == "" || req.CmdID == "" {
		s.logger.Warn("entity_command without entity_id or cmd_id", "session_id", sessionID, "req_id", reqID, "error", err)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusBadRequest, nil)
		return
	}

	e, ok := s.configured.Get(req.EntityID)
	if !ok {
		s.logger.Warn("entity_command for entity that is not configured", "session_id", sessionID, "entity_id", req.EntityID)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusNotFound, nil)
		return
	}

	if code, handled := e.Command(ctx, req.CmdID, req.Params); handled {
		s.logger.Debug("entity command executed", "entity_id", req.EntityID, "cmd_id", req.CmdID, "code", code)
		s.respond(sessionID, reqID, protocol.RespResult, code, nil)
		return
	}

	n := s.emit(ctx, Signal{Kind: SignalEntityCommand, SessionID: sessionID, ReqID: reqID, Command: &req})
	if n == 0 {
		s.logger.Warn("no command handler for entity", "entity_id", req.EntityID, "cmd_id", req.CmdID)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusNotImplemented, nil)
	}
}

// AcknowledgeCommand answers a request the engine handed to the driver
// through a signal (entity_command, setup_driver, setup_user_data).
func (s *Server) AcknowledgeCommand(sessionID string, reqID uint64, code int) error {
	if _, ok := s.sessions.Lookup(sessionID); !ok {
		return ErrNoHubConnection
	}
	s.respond(sessionID, reqID, protocol.RespResult, code, nil)
	return nil
}
