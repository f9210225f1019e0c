package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/shelfsync/internal/models"
)

// UserService fetches the authenticated user's profile, including the
// server-side bookmark list consumed by the bookmark sync queue.
type UserService struct {
	network *NetworkService
}

// NewUserService creates a UserService on the given network.
func NewUserService(network *NetworkService) *UserService {
	return &UserService{network: network}
}

// FetchMe retrieves the current user's profile.
func (s *UserService) FetchMe(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.network.Send(ctx, http.MethodGet, "/api/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
