package portal

import (
	"context"
	"fmt"
	"log"
	"strings"

	"slot-notifier/internal/slots"
)

// MaxWeeks is how many calendar pages are walked per location.
const MaxWeeks = 6

type Scanner struct {
	page      Page
	locations []slots.Location
}

func NewScanner(page Page, locations []slots.Location) *Scanner {
	return &Scanner{
		page:      page,
		locations: locations,
	}
}

// CheckAllLocations returns one result per configured location, in configured
// order. It returns nil when the appointment selection view cannot be reached.
func (s *Scanner) CheckAllLocations(ctx context.Context) []slots.LocationResult {
	onSelection, err := s.page.OnSelectionView(ctx)
	if err != nil {
		log.Printf("Could not check for the appointment selection view: %v", err)
	}

	if !onSelection {
		log.Println("Not on appointment selection page, navigating...")
		if err := s.page.OpenSelectionView(ctx); err != nil {
			log.Printf("❌ Could not navigate to appointment selection: %v", err)
			return nil
		}
		log.Println("Navigated to appointment selection page")
	}

	results := make([]slots.LocationResult, 0, len(s.locations))
	for _, location := range s.locations {
		if ctx.Err() != nil {
			log.Printf("Scan interrupted before %s: %v", location.Name, ctx.Err())
			break
		}
		results = append(results, s.CheckForAppointments(ctx, location))
	}
	return results
}

// CheckForAppointments walks up to MaxWeeks calendar pages of one location. Any
// failure yields an empty result so the remaining locations still get scanned.
func (s *Scanner) CheckForAppointments(ctx context.Context, location slots.Location) slots.LocationResult {
	log.Printf("Checking for appointments at %s...", location.Name)

	found, err := s.scanLocation(ctx, location)
	if err != nil {
		log.Printf("❌ Error checking appointments at %s: %v", location.Name, err)
		return slots.LocationResult{Location: location}
	}

	log.Printf("Found %d slot/s at %s", len(found), location.Name)
	return slots.LocationResult{Location: location, Slots: found}
}

func (s *Scanner) scanLocation(ctx context.Context, location slots.Location) ([]slots.Slot, error) {
	if err := s.page.SelectLocation(ctx, location.Name); err != nil {
		return nil, fmt.Errorf("selecting location: %w", err)
	}

	var found []slots.Slot
	for week := 0; week < MaxWeeks; week++ {
		if week > 0 {
			ended, err := s.page.IsWeekEndReached(ctx)
			if err != nil {
				log.Printf("Could not read the next week control, stopping: %v", err)
				break
			}
			if ended {
				log.Println("Next button is disabled, no more weeks to check")
				break
			}
			if err := s.page.AdvanceWeek(ctx); err != nil {
				return nil, fmt.Errorf("advancing to week %d: %w", week+1, err)
			}
		}

		weekSlots, err := s.scanWeek(ctx, week)
		if err != nil {
			return nil, fmt.Errorf("week %d: %w", week+1, err)
		}
		found = append(found, weekSlots...)
	}
	return found, nil
}

func (s *Scanner) scanWeek(ctx context.Context, week int) ([]slots.Slot, error) {
	names, dates, err := s.page.ListWeekDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading day headers: %w", err)
	}

	// Partial renders can leave the two header lists out of step.
	days := min(len(names), len(dates))
	log.Printf("Week %d: Found %d day names and %d dates", week+1, len(names), len(dates))

	var found []slots.Slot
	for day := 0; day < days; day++ {
		dayName := strings.TrimSpace(names[day])
		date := strings.TrimSpace(dates[day])
		if dayName == "" || date == "" {
			log.Printf("Skipping day %d due to missing name or date", day)
			continue
		}

		// The widget shows either the empty-state text or time buttons, and may
		// leave disabled buttons behind the empty state.
		empty, err := s.page.DayHasNoSlots(ctx, day)
		if err != nil {
			log.Printf("Could not determine if appointments are available for %s %s: %v", dayName, date, err)
			continue
		}
		if empty {
			continue
		}

		labels, err := s.page.ListDaySlotLabels(ctx, day)
		if err != nil {
			log.Printf("Could not read time slots for %s %s: %v", dayName, date, err)
			continue
		}

		times := uniqueLabels(labels)
		if len(times) == 0 {
			continue
		}
		log.Printf("Found %d slots for %s %s: %s", len(times), dayName, date, strings.Join(times, ", "))
		for _, t := range times {
			found = append(found, slots.Slot{Day: dayName, Date: date, Time: t})
		}
	}
	return found, nil
}

// uniqueLabels trims labels, drops blanks and keeps the first occurrence of each.
func uniqueLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	unique := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		unique = append(unique, label)
	}
	return unique
}
