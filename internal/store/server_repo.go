package store

import (
	"context"

	ierr "github.com/vpnbroker/broker/internal/errors"

	"github.com/vpnbroker/broker/internal/domain/server"
)

type serverRepo struct{ store *Store }

func (st *Store) Servers() server.Repository { return &serverRepo{store: st} }

func (r *serverRepo) Create(ctx context.Context, sv *server.Server) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.servers[sv.ID] = sv
	return nil
}

func (r *serverRepo) Get(ctx context.Context, id string) (*server.Server, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	sv, ok := s.servers[id]
	if !ok {
		return nil, ierr.WithError(ierr.ErrNotFound).WithHintf("server %s not found", id).Mark(ierr.ErrNotFound)
	}
	return sv, nil
}

func (r *serverRepo) GetBySquadUUID(ctx context.Context, squadUUID string) (*server.Server, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	for _, sv := range s.servers {
		if sv.SquadUUID == squadUUID {
			return sv, nil
		}
	}
	return nil, ierr.WithError(ierr.ErrNotFound).WithHintf("server with squad_uuid %s not found", squadUUID).Mark(ierr.ErrNotFound)
}

func (r *serverRepo) ListAvailable(ctx context.Context) ([]*server.Server, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*server.Server
	for _, sv := range s.servers {
		if sv.Selectable() {
			out = append(out, sv)
		}
	}
	return out, nil
}

func (r *serverRepo) List(ctx context.Context) ([]*server.Server, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	out := make([]*server.Server, 0, len(s.servers))
	for _, sv := range s.servers {
		out = append(out, sv)
	}
	return out, nil
}

func (r *serverRepo) Update(ctx context.Context, sv *server.Server) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.servers[sv.ID] = sv
	return nil
}
