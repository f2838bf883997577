// Package notify delivers found slots to Telegram and the local desktop.
package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"slot-notifier/internal/slots"
)

const (
	// Telegram allows roughly one message per second into the same chat.
	chatSendInterval = time.Second
	sendAttempts     = 3
	retryDelay       = 2 * time.Second

	// Telegram rejects sendMessage texts longer than this.
	maxMessageRunes = 4096
)

type ChatSender interface {
	SendChat(ctx context.Context, text string, topicID int64) error
}

type DesktopSender interface {
	SendDesktop(title, body string) error
}

// QuietHours suppresses notifications from Start:00 up to End:00 in Location.
// A nil Location disables it.
type QuietHours struct {
	Location *time.Location
	Start    int
	End      int
}

func (q QuietHours) Active(now time.Time) bool {
	if q.Location == nil {
		return false
	}
	hour := now.In(q.Location).Hour()
	return hour >= q.Start && hour < q.End
}

type Notifier struct {
	chat       ChatSender
	desktop    DesktopSender
	quiet      QuietHours
	limiter    *rate.Limiter
	retryDelay time.Duration
	now        func() time.Time
}

// New creates a Notifier. desktop may be nil to disable desktop alerts.
func New(chat ChatSender, desktop DesktopSender, quiet QuietHours) *Notifier {
	return &Notifier{
		chat:       chat,
		desktop:    desktop,
		quiet:      quiet,
		limiter:    rate.NewLimiter(rate.Every(chatSendInterval), 1),
		retryDelay: retryDelay,
		now:        time.Now,
	}
}

func pluralSlots(n int) string {
	if n == 1 {
		return "1 appointment slot"
	}
	return fmt.Sprintf("%d appointment slots", n)
}

// Title is the headline used for both the chat message and the desktop alert.
func Title(result slots.LocationResult) string {
	return fmt.Sprintf("%s found at %s!", pluralSlots(len(result.Slots)), result.Location.Name)
}

// FormatHTML renders a result as Telegram HTML messages. Slots that do not fit
// into one message continue in the next, so no message exceeds maxMessageRunes.
func FormatHTML(result slots.LocationResult) []string {
	header := fmt.Sprintf("📅 <b>%s</b>\n", html.EscapeString(Title(result)))
	continued := fmt.Sprintf("📅 <b>%s (continued)</b>\n", html.EscapeString(result.Location.Name))

	var messages []string
	var b strings.Builder
	b.WriteString(header)
	size, lines := utf8.RuneCountInString(header), 0
	for _, label := range result.Labels() {
		line := "\n• " + html.EscapeString(label)
		n := utf8.RuneCountInString(line)
		if lines > 0 && size+n > maxMessageRunes {
			messages = append(messages, b.String())
			b.Reset()
			b.WriteString(continued)
			size, lines = utf8.RuneCountInString(continued), 0
		}
		if size+n > maxMessageRunes {
			line = truncateRunes(line, maxMessageRunes-size)
			n = utf8.RuneCountInString(line)
		}
		b.WriteString(line)
		size += n
		lines++
	}
	return append(messages, b.String())
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// FormatPlain renders the bullet lines of a result without markup.
func FormatPlain(result slots.LocationResult) string {
	lines := make([]string, 0, len(result.Slots))
	for _, label := range result.Labels() {
		lines = append(lines, "• "+label)
	}
	return strings.Join(lines, "\n")
}

// Notify sends one message per location with slots. Delivery errors are logged
// and never stop delivery for the remaining locations.
func (n *Notifier) Notify(ctx context.Context, results []slots.LocationResult) {
	results = slots.Aggregate(results)
	if len(results) == 0 {
		log.Println("No available appointments found")
		return
	}

	if n.quiet.Active(n.now()) {
		log.Printf("🔇 Notification for %d location/s suppressed due to quiet hours (%d:00-%d:00 %s).",
			len(results), n.quiet.Start, n.quiet.End, n.quiet.Location)
		return
	}

	log.Println("=================================")
	log.Printf("%s found!", pluralSlots(slots.Total(results)))
	for _, result := range results {
		log.Printf("%s: %s", result.Location.Name, strings.Join(result.Labels(), ", "))
	}
	log.Println("=================================")

	for _, result := range results {
		if n.desktop != nil {
			if err := n.desktop.SendDesktop(Title(result), FormatPlain(result)); err != nil {
				log.Printf("❌ Error showing desktop notification for %s: %v", result.Location.Name, err)
			}
		}

		for _, message := range FormatHTML(result) {
			if err := n.limiter.Wait(ctx); err != nil {
				log.Printf("Stopping notifications: %v", err)
				return
			}
			n.sendWithRetry(ctx, message, result.Location)
		}
	}
}

func (n *Notifier) sendWithRetry(ctx context.Context, message string, location slots.Location) {
	var notifErr error
	for attempts := 0; attempts < sendAttempts; attempts++ {
		notifErr = n.chat.SendChat(ctx, message, location.TopicID)
		if notifErr == nil {
			log.Printf("📤 Telegram notification sent successfully for %s (Attempt %d).", location.Name, attempts+1)
			return
		}

		log.Printf("Attempt %d: Error sending Telegram notification for %s: %v", attempts+1, location.Name, notifErr)

		if attempts < sendAttempts-1 {
			select {
			case <-ctx.Done():
				log.Printf("FAILED to send Telegram notification for %s: %v", location.Name, ctx.Err())
				return
			case <-time.After(n.retryDelay):
			}
		}
	}
	log.Printf("FAILED to send Telegram notification after %d attempts for %s", sendAttempts, location.Name)
}

// SendStartupMessage tells the chat the poller is running.
func (n *Notifier) SendStartupMessage(ctx context.Context, locations []slots.Location, interval time.Duration) error {
	names := make([]string, 0, len(locations))
	for _, location := range locations {
		names = append(names, html.EscapeString(location.Name))
	}
	message := fmt.Sprintf("✅ <b>Slot notifier started successfully!</b>\n\nMonitoring %d location/s every %v: %s",
		len(locations), interval, strings.Join(names, ", "))

	if n.quiet.Active(n.now()) {
		log.Printf("Test notification suppressed due to quiet hours.")
		return nil
	}
	if err := n.chat.SendChat(ctx, message, 0); err != nil {
		return err
	}
	log.Println("Test notification sent successfully.")
	return nil
}
