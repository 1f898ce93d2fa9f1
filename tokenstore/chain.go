package tokenstore

import (
	"context"
	"errors"
)

// Chain is a fallback chain over several stores.
//
// Set writes to every store and succeeds when at least one write succeeds.
// Get returns the access token of the first store holding one, and the
// refresh token of the first store holding a refresh token. Clear clears
// every store and reports all failures.
type Chain struct {
	stores []Store
}

func NewChain(stores ...Store) *Chain {
	out := make([]Store, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Chain{stores: out}
}

func (c *Chain) Set(ctx context.Context, tokens Tokens) error {
	if tokens.Empty() {
		return ErrEmptyToken
	}

	var errs []error
	ok := 0
	for _, s := range c.stores {
		if err := s.Set(ctx, tokens); err != nil {
			errs = append(errs, err)
			continue
		}
		ok++
	}
	if ok == 0 {
		if len(errs) == 0 {
			return ErrUnavailable
		}
		return errors.Join(errs...)
	}
	return nil
}

func (c *Chain) Get(ctx context.Context) (Tokens, error) {
	var (
		out  Tokens
		errs []error
	)
	for _, s := range c.stores {
		t, err := s.Get(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if out.Access == "" {
			out.Access = t.Access
		}
		if out.Refresh == "" {
			out.Refresh = t.Refresh
		}
		if out.Access != "" && out.Refresh != "" {
			break
		}
	}
	if out.Empty() && len(errs) == len(c.stores) && len(errs) > 0 {
		return Tokens{}, errors.Join(errs...)
	}
	return out, nil
}

func (c *Chain) Clear(ctx context.Context) error {
	var errs []error
	for _, s := range c.stores {
		if err := s.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
