// Package portal drives the appointment portal: logging in and walking the
// booking calendar of every configured location.
package portal

import (
	"context"
	"time"
)

// Page is everything the login and scanning logic needs from the portal UI.
// Markup details stay behind this interface.
type Page interface {
	// Load navigates to url and waits for the network to settle.
	Load(ctx context.Context, url string) error

	// FindLogoutMarker reports whether the logged-in marker is visible,
	// waiting up to wait for it. A zero wait checks once.
	FindLogoutMarker(ctx context.Context, wait time.Duration) (bool, error)
	// FindLoginForm waits up to wait for the login form heading.
	FindLoginForm(ctx context.Context, wait time.Duration) (bool, error)
	// SubmitLogin fills both credential fields and clicks submit once it is enabled.
	SubmitLogin(ctx context.Context, holderNumber, birthdate string) error

	OnSelectionView(ctx context.Context) (bool, error)
	// OpenSelectionView clicks through to the appointment selection view.
	OpenSelectionView(ctx context.Context) error

	SelectLocation(ctx context.Context, name string) error
	// ListWeekDays returns the day-name and date headers of the visible week.
	ListWeekDays(ctx context.Context) (names, dates []string, err error)
	IsWeekEndReached(ctx context.Context) (bool, error)
	AdvanceWeek(ctx context.Context) error

	// DayHasNoSlots reports whether the day column at index shows the empty-state text.
	DayHasNoSlots(ctx context.Context, day int) (bool, error)
	// ListDaySlotLabels returns the raw labels of all enabled time buttons of a day column.
	ListDaySlotLabels(ctx context.Context, day int) ([]string, error)
}
