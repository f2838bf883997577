package portal

import (
	"context"
	"errors"
	"time"
)

type fakeDay struct {
	name    string
	date    string
	noSlots bool
	labels  []string

	noSlotsErr error
	labelsErr  error
}

// fakeCalendar is what one location shows: weeks of day columns.
type fakeCalendar struct {
	weeks [][]fakeDay
	// Week index whose next-week control reports disabled; -1 never.
	endAtWeek  int
	advanceErr error
	// Extra date headers to simulate a partial render.
	extraDates []string
}

// fakePage is a scripted Page. It records calls to assert on what the logic touched.
type fakePage struct {
	loadErr        error
	loggedIn       bool
	loginMarkerErr error
	formVisible    bool
	submitErr      error
	loginSucceeds  bool

	onSelection  bool
	openSelErr   error
	openSelCalls int

	calendars map[string]*fakeCalendar
	selectErr map[string]error

	current      *fakeCalendar
	week         int
	submitted    []string
	selected     []string
	advanceCalls int
	weeksRead    []int
}

var errFake = errors.New("boom")

func newFakePage() *fakePage {
	return &fakePage{
		formVisible:   true,
		loginSucceeds: true,
		onSelection:   true,
		calendars:     make(map[string]*fakeCalendar),
		selectErr:     make(map[string]error),
	}
}

func (f *fakePage) Load(ctx context.Context, url string) error {
	return f.loadErr
}

func (f *fakePage) FindLogoutMarker(ctx context.Context, wait time.Duration) (bool, error) {
	if f.loginMarkerErr != nil {
		return false, f.loginMarkerErr
	}
	if wait == 0 {
		return f.loggedIn, nil
	}
	return f.loggedIn || (len(f.submitted) > 0 && f.loginSucceeds), nil
}

func (f *fakePage) FindLoginForm(ctx context.Context, wait time.Duration) (bool, error) {
	return f.formVisible, nil
}

func (f *fakePage) SubmitLogin(ctx context.Context, holderNumber, birthdate string) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, holderNumber, birthdate)
	return nil
}

func (f *fakePage) OnSelectionView(ctx context.Context) (bool, error) {
	return f.onSelection, nil
}

func (f *fakePage) OpenSelectionView(ctx context.Context) error {
	f.openSelCalls++
	if f.openSelErr != nil {
		return f.openSelErr
	}
	f.onSelection = true
	return nil
}

func (f *fakePage) SelectLocation(ctx context.Context, name string) error {
	f.selected = append(f.selected, name)
	if err := f.selectErr[name]; err != nil {
		return err
	}
	calendar, ok := f.calendars[name]
	if !ok {
		calendar = &fakeCalendar{endAtWeek: -1}
	}
	f.current = calendar
	f.week = 0
	return nil
}

func (f *fakePage) days() []fakeDay {
	if f.week >= len(f.current.weeks) {
		return nil
	}
	return f.current.weeks[f.week]
}

func (f *fakePage) ListWeekDays(ctx context.Context) ([]string, []string, error) {
	f.weeksRead = append(f.weeksRead, f.week)
	var names, dates []string
	for _, day := range f.days() {
		names = append(names, day.name)
		dates = append(dates, day.date)
	}
	dates = append(dates, f.current.extraDates...)
	return names, dates, nil
}

func (f *fakePage) IsWeekEndReached(ctx context.Context) (bool, error) {
	// The control is checked while week-1 is shown, before moving to week.
	return f.current.endAtWeek == f.week+1, nil
}

func (f *fakePage) AdvanceWeek(ctx context.Context) error {
	f.advanceCalls++
	if f.current.advanceErr != nil && f.week+1 == 2 {
		return f.current.advanceErr
	}
	f.week++
	return nil
}

func (f *fakePage) DayHasNoSlots(ctx context.Context, day int) (bool, error) {
	d := f.days()[day]
	return d.noSlots, d.noSlotsErr
}

func (f *fakePage) ListDaySlotLabels(ctx context.Context, day int) ([]string, error) {
	d := f.days()[day]
	if d.labelsErr != nil {
		return nil, d.labelsErr
	}
	if d.noSlots {
		// residual disabled buttons would never be enumerated, but a naive
		// scan could still see them
		return []string{"07:00"}, nil
	}
	return d.labels, nil
}
