package store

import (
	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/component"
)

type providerKey struct{}

// Provide makes s available to owner and all of its descendants.
func Provide(owner *component.Owner, s *Store) {
	owner.SetValue(providerKey{}, s)
}

// From returns the store provided by owner or its nearest ancestor. It
// fails with ProviderMissing if none did.
func From(owner *component.Owner) (*Store, error) {
	if owner != nil {
		if v, ok := owner.LookupValue(providerKey{}); ok {
			if s, ok := v.(*Store); ok && s != nil {
				return s, nil
			}
		}
	}
	return nil, errors.New(errors.ProviderMissing)
}
