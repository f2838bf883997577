package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-notifier/internal/browser"
)

const calendarHTML = `<div id="jour"><h2>Mo</h2><h3>12.05.2025</h3><p>Keine Termine frei</p><div class="hour"><button disabled>07:00</button></div></div>
<div id="jour"><h2>Di</h2><h3>13.05.2025</h3><div class="hour"><button>08:15</button><button disabled>09:00</button><button>10:30</button></div></div>
<div id="jour"><h2>Mi</h2><h3>14.05.2025</h3><p style="display:none">Keine Termine frei</p><div class="hour"><button>11:00</button></div></div>`

const overviewHTML = `<span style="display:none">Auswählen</span>
<table><tr><td><button onclick="document.getElementById('head').style.display = 'block'">Auswählen</button></td></tr></table>
<h2 id="head" style="display:none">Neuer Termin</h2>`

// The next week button swaps the first date shortly after being clicked.
const advancingButtonHTML = `<button onclick="setTimeout(() => { document.querySelector('#jour h3').textContent = '19.05.2025'; }, 200)">&gt;</button>`

var fixtures = map[string]string{
	"/calendar": calendarHTML + advancingButtonHTML,
	"/stale":    calendarHTML + `<button>&gt;</button>`,
	"/last":     calendarHTML + `<button disabled>&gt;</button>`,
	"/no-next":  calendarHTML,
	"/overview": overviewHTML,
}

func chromeAvailable() bool {
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func newTestChromePage(t *testing.T) (context.Context, *ChromePage, string) {
	t.Helper()
	if !chromeAvailable() {
		t.Skip("no Chrome binary found")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := fixtures[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body>%s</body></html>`, body)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	session := browser.NewSession(chromedp.NoSandbox)
	require.NoError(t, session.Open(ctx, false))
	t.Cleanup(func() { _ = session.Close() })

	page := NewChromePage(session, 50*time.Millisecond)
	page.weekChange = 500 * time.Millisecond
	return ctx, page, server.URL
}

func TestChromePage(t *testing.T) {
	ctx, page, baseURL := newTestChromePage(t)

	t.Run("reads the week columns", func(t *testing.T) {
		require.NoError(t, page.Load(ctx, baseURL+"/calendar"))

		names, dates, err := page.ListWeekDays(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mo", "Di", "Mi"}, names)
		assert.Equal(t, []string{"12.05.2025", "13.05.2025", "14.05.2025"}, dates)

		labels, err := page.ListDaySlotLabels(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"08:15", "10:30"}, labels)
	})

	t.Run("no slots marker is scoped to its column", func(t *testing.T) {
		require.NoError(t, page.Load(ctx, baseURL+"/calendar"))

		for day, want := range []bool{true, false, false, false} {
			empty, err := page.DayHasNoSlots(ctx, day)
			require.NoError(t, err)
			assert.Equal(t, want, empty, "day %d", day)
		}
	})

	t.Run("week end", func(t *testing.T) {
		cases := map[string]bool{"/calendar": false, "/last": true, "/no-next": true}
		for path, want := range cases {
			require.NoError(t, page.Load(ctx, baseURL+path))
			reached, err := page.IsWeekEndReached(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, reached, path)
		}
	})

	t.Run("advance waits for the headers to change", func(t *testing.T) {
		require.NoError(t, page.Load(ctx, baseURL+"/calendar"))

		require.NoError(t, page.AdvanceWeek(ctx))
		_, dates, err := page.ListWeekDays(ctx)
		require.NoError(t, err)
		assert.Equal(t, "19.05.2025", dates[0])
	})

	t.Run("advance falls back to settling", func(t *testing.T) {
		require.NoError(t, page.Load(ctx, baseURL+"/stale"))

		start := time.Now()
		require.NoError(t, page.AdvanceWeek(ctx))
		assert.GreaterOrEqual(t, time.Since(start), page.weekChange+page.settleDelay)

		_, dates, err := page.ListWeekDays(ctx)
		require.NoError(t, err)
		assert.Equal(t, "12.05.2025", dates[0])
	})

	t.Run("hidden duplicate of the select button is skipped", func(t *testing.T) {
		require.NoError(t, page.Load(ctx, baseURL+"/overview"))

		on, err := page.OnSelectionView(ctx)
		require.NoError(t, err)
		assert.False(t, on)

		require.NoError(t, page.OpenSelectionView(ctx))
		on, err = page.OnSelectionView(ctx)
		require.NoError(t, err)
		assert.True(t, on)
	})
}
