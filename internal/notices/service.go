package notices

import (
	"context"
	"fmt"
	"strconv"

	"github.com/khadamat/khadamat/internal/kvstore"
)

// Service combines the feed with the persisted visibility flag.
type Service struct {
	feed  *Feed
	store kvstore.Store
}

// NewService wires a feed to the store holding the hide flag.
func NewService(feed *Feed, store kvstore.Store) *Service {
	return &Service{feed: feed, store: store}
}

// Hidden reports the stored flag. Missing or unreadable values mean visible.
func (s *Service) Hidden(ctx context.Context, scope string) (bool, error) {
	v, ok, err := kvstore.Scoped(s.store, scope).Get(ctx, kvstore.KeyHideNotifications)
	if err != nil {
		return false, fmt.Errorf("read notice flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	hidden, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return hidden, nil
}

// SetHidden stores the flag as "true" or "false".
func (s *Service) SetHidden(ctx context.Context, scope string, hidden bool) error {
	if err := kvstore.Scoped(s.store, scope).Set(ctx, kvstore.KeyHideNotifications, strconv.FormatBool(hidden)); err != nil {
		return fmt.Errorf("write notice flag: %w", err)
	}
	return nil
}

// Latest returns recent notices unless the caller hid them.
func (s *Service) Latest(ctx context.Context, scope string, limit int) (bool, []Notice, error) {
	hidden, err := s.Hidden(ctx, scope)
	if err != nil {
		return false, nil, err
	}
	if hidden {
		return true, []Notice{}, nil
	}
	return false, s.feed.Latest(limit), nil
}
