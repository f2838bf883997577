package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"slot-notifier/internal/browser"
	"slot-notifier/internal/config"
	"slot-notifier/internal/portal"
	"slot-notifier/internal/slots"
)

var ErrLoginFailed = errors.New("failed to login")

// PageOpener starts a browser for one cycle. The returned close func releases it.
type PageOpener func(ctx context.Context, visible bool) (portal.Page, func() error, error)

type Notifier interface {
	Notify(ctx context.Context, results []slots.LocationResult)
}

type Bot struct {
	appConfig *config.AppConfig
	visible   bool
	openPage  PageOpener
	notifier  Notifier
}

func InitBot(appConfig *config.AppConfig, notifier Notifier, visible bool) *Bot {
	return &Bot{
		appConfig: appConfig,
		visible:   visible,
		openPage:  chromePageOpener(appConfig),
		notifier:  notifier,
	}
}

func chromePageOpener(appConfig *config.AppConfig) PageOpener {
	return func(ctx context.Context, visible bool) (portal.Page, func() error, error) {
		session := browser.NewSession()
		if err := session.Open(ctx, visible); err != nil {
			return nil, nil, err
		}
		return portal.NewChromePage(session, appConfig.SettleDelay), session.Close, nil
	}
}

// CheckAppointments runs one scan cycle: browser, login, scan, notify. The
// browser is closed on every path.
func (b *Bot) CheckAppointments(ctx context.Context) error {
	cycleID := uuid.NewString()[:8]
	log.Printf("[%s] Starting appointment check...", cycleID)

	page, closePage, err := b.openPage(ctx, b.visible)
	if err != nil {
		return fmt.Errorf("[%s] opening browser: %w", cycleID, err)
	}
	defer func() {
		if closeErr := closePage(); closeErr != nil {
			log.Printf("[%s] Error closing browser: %v", cycleID, closeErr)
		}
	}()

	credentials := portal.Credentials{
		HolderNumber: b.appConfig.HolderNumber,
		Birthdate:    b.appConfig.Birthdate,
	}
	if !portal.NewAuthenticator(page, b.appConfig.PortalURL, credentials).Login(ctx) {
		return fmt.Errorf("[%s] %w", cycleID, ErrLoginFailed)
	}

	results := portal.NewScanner(page, b.appConfig.Locations).CheckAllLocations(ctx)
	available := slots.Aggregate(results)
	log.Printf("[%s] Appointment check completed: %d slot/s at %d of %d location/s",
		cycleID, slots.Total(available), len(available), len(b.appConfig.Locations))

	b.notifier.Notify(ctx, available)
	return nil
}
