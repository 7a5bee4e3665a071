package store

import (
	"context"

	"github.com/vpnbroker/broker/internal/domain/promogroup"
	ierr "github.com/vpnbroker/broker/internal/errors"
)

type promoGroupRepo struct{ store *Store }

func (st *Store) PromoGroups() promogroup.Repository { return &promoGroupRepo{store: st} }

func (r *promoGroupRepo) Create(ctx context.Context, g *promogroup.PromoGroup) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.promoGroups[g.ID] = g
	return nil
}

func (r *promoGroupRepo) Get(ctx context.Context, id string) (*promogroup.PromoGroup, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	g, ok := s.promoGroups[id]
	if !ok {
		return nil, ierr.WithError(ierr.ErrNotFound).WithHintf("promo group %s not found", id).Mark(ierr.ErrNotFound)
	}
	return g, nil
}

func (r *promoGroupRepo) GetDefault(ctx context.Context) (*promogroup.PromoGroup, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	for _, g := range s.promoGroups {
		if g.IsDefault {
			return g, nil
		}
	}
	return nil, ierr.WithError(ierr.ErrNotFound).WithHint("no default promo group configured").Mark(ierr.ErrNotFound)
}

func (r *promoGroupRepo) Update(ctx context.Context, g *promogroup.PromoGroup) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.promoGroups[g.ID] = g
	return nil
}

func (r *promoGroupRepo) List(ctx context.Context) ([]*promogroup.PromoGroup, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	out := make([]*promogroup.PromoGroup, 0, len(s.promoGroups))
	for _, g := range s.promoGroups {
		out = append(out, g)
	}
	return out, nil
}
