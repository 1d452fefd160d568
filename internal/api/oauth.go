package api

import (
	"context"
	"encoding/json"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// hubSession returns the only connected session. Driver-initiated requests
// need an unambiguous target, so zero or several sessions is an error.
func (s *Server) hubSession() (string, error) {
	ids := s.sessions.IDs()
	switch len(ids) {
	case 0:
		return "", ErrNoHubConnection
	case 1:
		return ids[0], nil
	default:
		return "", ErrMultipleHubConnections
	}
}

// RequestOAuthToken asks the hub for the OAuth2 token of authID.
// The response payload is returned as sent by the hub.
func (s *Server) RequestOAuthToken(ctx context.Context, authID string) (json.RawMessage, error) {
	sessionID, err := s.hubSession()
	if err != nil {
		return nil, err
	}
	return s.requests.Send(ctx, sessionID, protocol.ReqGetOAuth2Token, protocol.OAuth2TokenRequest{
		AuthID: authID,
	})
}

// RefreshOAuthToken asks the hub to refresh the OAuth2 token of authID.
func (s *Server) RefreshOAuthToken(ctx context.Context, authID, refreshToken string) (json.RawMessage, error) {
	sessionID, err := s.hubSession()
	if err != nil {
		return nil, err
	}
	return s.requests.Send(ctx, sessionID, protocol.ReqRefreshOAuth2Token, protocol.OAuth2TokenRequest{
		AuthID:       authID,
		RefreshToken: refreshToken,
	})
}
