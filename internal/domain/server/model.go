// Package server models a selectable VPN exit group ("squad") — §3 "Server".
package server

import (
	"context"

	"github.com/vpnbroker/broker/internal/types"
)

// Server is a squad: a panel-managed VPN exit group a subscription can be
// connected to.
type Server struct {
	ID                 string
	SquadUUID          string
	DisplayName        string
	CountryCode        string
	PriceKopeksPerMonth types.Kopeks
	IsAvailable        bool
	IsFull             bool
}

// Selectable reports whether a server can be added to a subscription right
// now (§3 invariant: connected_squads must be a subset of currently
// available squads at the moment of write).
func (s *Server) Selectable() bool {
	return s.IsAvailable && !s.IsFull
}

// Repository persists servers.
type Repository interface {
	Create(ctx context.Context, s *Server) error
	Get(ctx context.Context, id string) (*Server, error)
	GetBySquadUUID(ctx context.Context, squadUUID string) (*Server, error)
	ListAvailable(ctx context.Context) ([]*Server, error)
	List(ctx context.Context) ([]*Server, error)
	Update(ctx context.Context, s *Server) error
}
