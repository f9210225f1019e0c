package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/shelfsync/internal/models"
)

// SessionService calls the remote playback-session endpoints.
type SessionService struct {
	network *NetworkService
}

// NewSessionService creates a SessionService on the given network.
func NewSessionService(network *NetworkService) *SessionService {
	return &SessionService{network: network}
}

type startSessionRequest struct {
	ItemID         string `json:"itemId"`
	ForceTranscode bool   `json:"forceTranscode"`
}

type syncSessionRequest struct {
	TimeListened float64 `json:"timeListened"`
	CurrentTime  float64 `json:"currentTime"`
}

// Start opens a remote playback session for the item. The server closes
// any session previously open for this user implicitly.
func (s *SessionService) Start(ctx context.Context, itemID string, forceTranscode bool) (*models.PlaySession, error) {
	var session models.PlaySession
	body := startSessionRequest{ItemID: itemID, ForceTranscode: forceTranscode}
	if err := s.network.Send(ctx, http.MethodPost, "/session/start", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Sync reports listened time and the current position for an open session.
func (s *SessionService) Sync(ctx context.Context, sessionID string, timeListened, currentTime float64) error {
	path := fmt.Sprintf("/session/%s/sync", sessionID)
	body := syncSessionRequest{TimeListened: timeListened, CurrentTime: currentTime}
	return s.network.Send(ctx, http.MethodPost, path, body, nil)
}

// Close closes an open session by id.
func (s *SessionService) Close(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/session/%s/close", sessionID)
	return s.network.Send(ctx, http.MethodPost, path, nil, nil)
}
