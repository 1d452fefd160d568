package api

import (
	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// eventSignals is the fixed event dispatch table for events that map
// directly onto a signal.
func eventSignals() map[string]SignalKind {
	return map[string]SignalKind{
		protocol.EventConnect:          SignalConnect,
		protocol.EventDisconnect:       SignalDisconnect,
		protocol.EventEnterStandby:     SignalEnterStandby,
		protocol.EventExitStandby:      SignalExitStandby,
		protocol.EventOAuth2Authorized: SignalOAuth2Authorized,
		protocol.EventOAuth2Revoked:    SignalOAuth2Revoked,
	}
}

// handleEvent turns a hub event into a local signal. Unknown events are
// logged and ignored.
func (s *Server) handleEvent(sessionID string, msg *protocol.Message) {
	if msg.Msg == protocol.EventAbortDriverSetup {
		s.handleAbortDriverSetup(sessionID, msg)
		return
	}

	kind, ok := s.eventTable[msg.Msg]
	if !ok {
		s.logger.Warn("ignoring unknown event", "session_id", sessionID, "msg", msg.Msg)
		return
	}

	s.logger.Debug("event received", "session_id", sessionID, "msg", msg.Msg)
	s.emit(s.ctx, Signal{Kind: kind, SessionID: sessionID, Data: msg.MsgData})
}

func (s *Server) handleAbortDriverSetup(sessionID string, msg *protocol.Message) {
	var ev protocol.AbortDriverSetupEvent
	if err := msg.DecodeData(&ev); err != nil {
		s.logger.Debug("unreadable abort_driver_setup payload", "session_id", sessionID, "error", err)
	}
	reason := protocol.SetupError(ev.Error)
	if reason == "" {
		reason = protocol.SetupErrorOther
	}

	s.logger.Info("hub aborted driver setup", "session_id", sessionID, "reason", reason)
	if s.setup != nil {
		s.setup.Abort(s.ctx, reason)
	}
	s.emit(s.ctx, Signal{Kind: SignalSetupAbort, SessionID: sessionID, SetupError: reason})
}
