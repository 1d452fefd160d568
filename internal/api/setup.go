package api

import (
	"context"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
	"github.com/nerrad567/hubdriver-core/internal/setup"
)

// handleSetupDriver starts the setup wizard. The request is acknowledged
// before the handler runs; the wizard then reports through
// driver_setup_change events.
func (s *Server) handleSetupDriver(ctx context.Context, sessionID string, reqID uint64, msg *protocol.Message) {
	var req protocol.SetupDriverRequest
	if err := msg.DecodeData(&req); err != nil {
		s.logger.Warn("invalid setup_driver payload", "session_id", sessionID, "error", err)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusBadRequest, nil)
		return
	}
	if req.SetupData == nil {
		req.SetupData = map[string]string{}
	}

	if s.setup == nil {
		s.legacySetup(ctx, Signal{Kind: SignalSetupDriver, SessionID: sessionID, ReqID: reqID, Setup: &req})
		return
	}

	step, err := s.setup.Start(sessionID, setup.DriverSetupRequest{
		Reconfigure: req.Reconfigure,
		SetupData:   req.SetupData,
	})
	if err != nil {
		s.logger.Warn("setup_driver rejected", "session_id", sessionID, "error", err)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusConflict, nil)
		return
	}

	s.logger.Info("driver setup started", "session_id", sessionID, "reconfigure", req.Reconfigure)
	s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusOK, nil)
	go step.Run(s.ctx)
}

// handleSetDriverUserData continues the wizard with the values or the
// confirmation the user entered. Exactly one of them must be present.
func (s *Server) handleSetDriverUserData(ctx context.Context, sessionID string, reqID uint64, msg *protocol.Message) {
	var req protocol.SetDriverUserDataRequest
	if err := msg.DecodeData(&req); err != nil {
		s.logger.Warn("invalid set_driver_user_data payload", "session_id", sessionID, "error", err)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusBadRequest, nil)
		return
	}

	if (req.Confirm == nil) == (req.InputValues == nil) {
		s.logger.Warn("set_driver_user_data needs either input_values or confirm", "session_id", sessionID)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusBadRequest, nil)
		return
	}

	var m setup.Message = setup.UserDataResponse{InputValues: req.InputValues}
	if req.Confirm != nil {
		m = setup.UserConfirmationResponse{Confirm: *req.Confirm}
	}

	if s.setup == nil {
		s.legacySetup(ctx, Signal{Kind: SignalSetupUserData, SessionID: sessionID, ReqID: reqID, UserData: &req})
		return
	}

	step, err := s.setup.Continue(sessionID, m)
	if err != nil {
		s.logger.Warn("set_driver_user_data rejected", "session_id", sessionID, "error", err)
		s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusConflict, nil)
		return
	}

	s.respond(sessionID, reqID, protocol.RespResult, protocol.StatusOK, nil)
	go step.Run(s.ctx)
}

// legacySetup hands a setup request to the driver, which acknowledges it
// with AcknowledgeCommand and reports with the DriverSetup* helpers.
func (s *Server) legacySetup(ctx context.Context, sig Signal) {
	if s.emit(ctx, sig) == 0 {
		s.logger.Warn("no setup handler registered", "session_id", sig.SessionID, "signal", sig.Kind)
		s.respond(sig.SessionID, sig.ReqID, protocol.RespResult, protocol.StatusNotImplemented, nil)
	}
}

// SendSetupChange sends a driver_setup_change event to one session.
func (s *Server) SendSetupChange(sessionID string, change protocol.DriverSetupChange) error {
	return s.sendEvent(sessionID, protocol.EventDriverSetupChange, protocol.CategoryDevice, change)
}

// DriverSetupProgress reports that the setup is still running.
func (s *Server) DriverSetupProgress(sessionID string) error {
	return s.SendSetupChange(sessionID, protocol.DriverSetupChange{
		EventType: protocol.SetupEventSetup,
		State:     protocol.SetupStateSetup,
	})
}

// RequestSetupUserInput asks the hub to show a form.
func (s *Server) RequestSetupUserInput(sessionID string, title protocol.LanguageText, settings []any) error {
	if settings == nil {
		settings = []any{}
	}
	return s.SendSetupChange(sessionID, protocol.DriverSetupChange{
		EventType: protocol.SetupEventSetup,
		State:     protocol.SetupStateWaitUserAction,
		RequireUserAction: &protocol.RequireUserAction{
			Input: &protocol.UserInputForm{Title: title, Settings: settings},
		},
	})
}

// RequestSetupUserConfirmation asks the hub to show a confirmation screen.
func (s *Server) RequestSetupUserConfirmation(sessionID string, confirmation protocol.UserConfirmation) error {
	return s.SendSetupChange(sessionID, protocol.DriverSetupChange{
		EventType: protocol.SetupEventSetup,
		State:     protocol.SetupStateWaitUserAction,
		RequireUserAction: &protocol.RequireUserAction{
			Confirmation: &confirmation,
		},
	})
}

// DriverSetupComplete ends the setup successfully.
func (s *Server) DriverSetupComplete(sessionID string) error {
	return s.SendSetupChange(sessionID, protocol.DriverSetupChange{
		EventType: protocol.SetupEventStop,
		State:     protocol.SetupStateOK,
	})
}

// DriverSetupError ends the setup with a failure reason.
func (s *Server) DriverSetupError(sessionID string, code protocol.SetupError) error {
	if code == "" {
		code = protocol.SetupErrorOther
	}
	return s.SendSetupChange(sessionID, protocol.DriverSetupChange{
		EventType: protocol.SetupEventStop,
		State:     protocol.SetupStateError,
		Error:     code,
	})
}
