package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"slot-notifier/internal/browser"
)

const (
	selectorTimeout   = 10 * time.Second
	weekChangeTimeout = 10 * time.Second
	pollEvery         = 200 * time.Millisecond
)

// isVisibleJS mirrors what a user would consider visible: laid out and not hidden by style.
const isVisibleJS = `(el) => {
	if (!el) return false;
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	return rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
}`

var _ Page = (*ChromePage)(nil)

// ChromePage implements Page on a live browser session.
type ChromePage struct {
	session     *browser.Session
	settleDelay time.Duration
	weekChange  time.Duration
}

func NewChromePage(session *browser.Session, settleDelay time.Duration) *ChromePage {
	return &ChromePage{
		session:     session,
		settleDelay: settleDelay,
		weekChange:  weekChangeTimeout,
	}
}

func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

func (p *ChromePage) evaluate(ctx context.Context, expression string, res any) error {
	return p.session.Run(ctx, chromedp.Evaluate(expression, res))
}

func (p *ChromePage) anyVisibleCSS(ctx context.Context, css string) (bool, error) {
	var visible bool
	expression := fmt.Sprintf(`(() => {
	const isVisible = %s;
	return [...document.querySelectorAll(%s)].some(isVisible);
})()`, isVisibleJS, jsString(css))
	err := p.evaluate(ctx, expression, &visible)
	return visible, err
}

// firstVisibleXPath returns the 1-based position of the first visible node
// matching xpath, or 0 when none is visible.
func (p *ChromePage) firstVisibleXPath(ctx context.Context, xpath string) (int, error) {
	var position int
	expression := fmt.Sprintf(`(() => {
	const isVisible = %s;
	const found = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (let i = 0; i < found.snapshotLength; i++) {
		if (isVisible(found.snapshotItem(i))) return i + 1;
	}
	return 0;
})()`, isVisibleJS, jsString(xpath))
	err := p.evaluate(ctx, expression, &position)
	return position, err
}

func (p *ChromePage) anyVisibleXPath(ctx context.Context, xpath string) (bool, error) {
	position, err := p.firstVisibleXPath(ctx, xpath)
	return position > 0, err
}

// visibleTarget narrows xpath to its first visible match. chromedp.Click waits
// for every matched node to be visible, so hidden duplicates must be excluded.
func (p *ChromePage) visibleTarget(ctx context.Context, xpath string) (string, error) {
	position, err := p.firstVisibleXPath(ctx, xpath)
	if err != nil || position == 0 {
		return "", err
	}
	return fmt.Sprintf("(%s)[%d]", xpath, position), nil
}

// waitVisible waits up to timeout for sel. Running out of time is a negative
// answer, not an error.
func (p *ChromePage) waitVisible(ctx context.Context, timeout time.Duration, sel string, by chromedp.QueryOption) (bool, error) {
	err := p.session.RunWithin(ctx, timeout, chromedp.WaitVisible(sel, by))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, err
}

func (p *ChromePage) waitUntil(ctx context.Context, timeout time.Duration, cond func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond()
		if err != nil || ok {
			return ok, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := p.session.Settle(ctx, pollEvery); err != nil {
			return false, err
		}
	}
}

func (p *ChromePage) Load(ctx context.Context, url string) error {
	return p.session.Navigate(ctx, url)
}

func (p *ChromePage) FindLogoutMarker(ctx context.Context, wait time.Duration) (bool, error) {
	if wait <= 0 {
		return p.anyVisibleCSS(ctx, logoutMarkerCSS)
	}
	return p.waitVisible(ctx, wait, logoutMarkerCSS, chromedp.ByQuery)
}

func (p *ChromePage) FindLoginForm(ctx context.Context, wait time.Duration) (bool, error) {
	return p.waitVisible(ctx, wait, loginHeadingXPath, chromedp.BySearch)
}

func (p *ChromePage) SubmitLogin(ctx context.Context, holderNumber, birthdate string) error {
	err := p.session.RunWithin(ctx, selectorTimeout,
		chromedp.Clear(holderInputCSS, chromedp.ByQuery),
		chromedp.SendKeys(holderInputCSS, holderNumber, chromedp.ByQuery),
		chromedp.Clear(birthdateInputCSS, chromedp.ByQuery),
		chromedp.SendKeys(birthdateInputCSS, birthdate, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("filling login form: %w", err)
	}

	err = p.session.RunWithin(ctx, selectorTimeout,
		chromedp.WaitEnabled(loginButtonXPath, chromedp.BySearch),
		chromedp.Click(loginButtonXPath, chromedp.BySearch),
	)
	if err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}
	return nil
}

func (p *ChromePage) OnSelectionView(ctx context.Context) (bool, error) {
	return p.anyVisibleXPath(ctx, selectionHeadXPath)
}

func (p *ChromePage) OpenSelectionView(ctx context.Context) error {
	if err := p.session.WaitIdle(ctx); err != nil {
		return err
	}
	// The overview renders its table late and announces nothing when done.
	if err := p.session.Settle(ctx, 2*p.settleDelay); err != nil {
		return err
	}

	target, err := p.visibleTarget(ctx, selectExactXPath)
	if err != nil {
		return err
	}
	if target == "" {
		target, err = p.visibleTarget(ctx, selectCellXPath)
		if err != nil {
			return err
		}
		if target == "" {
			return fmt.Errorf("could not find %q button", selectText)
		}
	}

	if err := p.session.RunWithin(ctx, selectorTimeout, chromedp.Click(target, chromedp.BySearch)); err != nil {
		return fmt.Errorf("clicking %q: %w", selectText, err)
	}

	arrived, err := p.waitVisible(ctx, selectorTimeout, selectionHeadXPath, chromedp.BySearch)
	if err != nil {
		return err
	}
	if !arrived {
		return fmt.Errorf("%q heading did not appear", selectionHeading)
	}
	return nil
}

func (p *ChromePage) SelectLocation(ctx context.Context, name string) error {
	found, err := p.waitVisible(ctx, selectorTimeout, locationSelectCSS, chromedp.ByQuery)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("location selector %s not found", locationSelectCSS)
	}

	var selected bool
	expression := fmt.Sprintf(`(() => {
	const select = document.querySelector(%s);
	if (!select) return false;
	const option = [...select.options].find(o => (o.label || o.textContent || '').trim() === %s);
	if (!option) return false;
	select.value = option.value;
	select.dispatchEvent(new Event('input', { bubbles: true }));
	select.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, jsString(locationSelectCSS), jsString(name))
	if err := p.evaluate(ctx, expression, &selected); err != nil {
		return err
	}
	if !selected {
		return fmt.Errorf("location %q is not offered by the portal", name)
	}

	// The calendar re-renders asynchronously after a selection.
	if err := p.session.Settle(ctx, p.settleDelay); err != nil {
		return err
	}
	return p.session.WaitIdle(ctx)
}

func (p *ChromePage) ListWeekDays(ctx context.Context) ([]string, []string, error) {
	var names, dates []string
	err := p.session.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`[...document.querySelectorAll(%s)].map(e => e.textContent || '')`, jsString(dayNameCSS)), &names),
		chromedp.Evaluate(fmt.Sprintf(`[...document.querySelectorAll(%s)].map(e => e.textContent || '')`, jsString(dayDateCSS)), &dates),
	)
	if err != nil {
		return nil, nil, err
	}
	return names, dates, nil
}

func (p *ChromePage) IsWeekEndReached(ctx context.Context) (bool, error) {
	var disabled bool
	expression := fmt.Sprintf(`(() => {
	const found = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	const button = found.singleNodeValue;
	if (!button) return true;
	return button.disabled || button.getAttribute('aria-disabled') === 'true';
})()`, jsString(nextWeekXPath))
	err := p.evaluate(ctx, expression, &disabled)
	return disabled, err
}

func (p *ChromePage) firstDate(ctx context.Context) (string, error) {
	var date string
	expression := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return el ? (el.textContent || '').trim() : '';
})()`, jsString(dayDateCSS))
	err := p.evaluate(ctx, expression, &date)
	return date, err
}

func (p *ChromePage) AdvanceWeek(ctx context.Context) error {
	before, err := p.firstDate(ctx)
	if err != nil {
		return err
	}

	target, err := p.visibleTarget(ctx, nextWeekXPath)
	if err != nil {
		return err
	}
	if target == "" {
		return errors.New("next week button is not visible")
	}
	if err := p.session.RunWithin(ctx, selectorTimeout, chromedp.Click(target, chromedp.BySearch)); err != nil {
		return fmt.Errorf("clicking next week: %w", err)
	}

	changed, err := p.waitUntil(ctx, p.weekChange, func() (bool, error) {
		after, err := p.firstDate(ctx)
		return after != "" && after != before, err
	})
	if err != nil {
		return err
	}
	if !changed {
		log.Printf("Week headers did not change within %v, settling for %v", p.weekChange, p.settleDelay)
		if err := p.session.Settle(ctx, p.settleDelay); err != nil {
			return err
		}
	}
	return p.session.WaitIdle(ctx)
}

// Day columns repeat the same markup, so a day is addressed by its position.

func (p *ChromePage) DayHasNoSlots(ctx context.Context, day int) (bool, error) {
	var empty bool
	expression := fmt.Sprintf(`(() => {
	const isVisible = %s;
	const column = document.querySelectorAll(%s)[%d];
	if (!column) return false;
	return [...column.querySelectorAll('p')].some(p => (p.textContent || '').includes(%s) && isVisible(p));
})()`, isVisibleJS, jsString(dayColumnCSS), day, jsString(noSlotsText))
	err := p.evaluate(ctx, expression, &empty)
	return empty, err
}

func (p *ChromePage) ListDaySlotLabels(ctx context.Context, day int) ([]string, error) {
	var labels []string
	expression := fmt.Sprintf(`(() => {
	const column = document.querySelectorAll(%s)[%d];
	if (!column) return [];
	return [...column.querySelectorAll(%s)].map(b => b.textContent || '');
})()`, jsString(dayColumnCSS), day, jsString(slotButtonsCSS))
	if err := p.evaluate(ctx, expression, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}
