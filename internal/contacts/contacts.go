// Package contacts derives the contact graph: the set of users a given
// user has exchanged at least one message with. The set is recomputed
// from the message store on every call; there is no maintained index.
package contacts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/store"
)

// Deriver computes contact sets on demand.
type Deriver struct {
	store store.Store
	log   *zerolog.Logger
}

// NewDeriver creates a contact graph deriver over the given store.
func NewDeriver(st store.Store, logger *zerolog.Logger) *Deriver {
	return &Deriver{
		store: st,
		log:   logger,
	}
}

// ContactsOf returns the user records for every distinct counterparty of
// the given username, in no particular order. A user with no messages
// yields an empty slice. Resolution of individual counterparties is
// best-effort: a failing lookup is skipped and logged rather than
// aborting the whole derivation.
func (d *Deriver) ContactsOf(ctx context.Context, username string) ([]*store.User, error) {
	names, err := d.store.CounterpartiesOf(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list counterparties: %w", err)
	}

	users := make([]*store.User, 0, len(names))
	for _, name := range names {
		if name == username {
			continue
		}
		user, err := d.store.GetUserByUsername(ctx, name)
		if err != nil {
			d.log.Warn().Err(err).Str("username", name).Msg("skipping unresolvable contact")
			continue
		}
		users = append(users, user)
	}

	return users, nil
}
