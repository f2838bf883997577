package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"slot-notifier/internal/slots"
)

const (
	defaultPortalURL   = "https://portal.stva.zh.ch/ecari-dispoweb/ui/app/init/#/conduite/prive/rendez-vous"
	defaultSettleDelay = 2 * time.Second

	// Longest interval that still fits in a time.Duration.
	maxIntervalMinutes = math.MaxInt64 / int64(time.Minute)
)

// ErrInvalidConfig is wrapped by every FieldError.
var ErrInvalidConfig = errors.New("configuration invalid")

// FieldError names the environment input that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}

type AppConfig struct {
	HolderNumber     string
	Birthdate        string
	CheckInterval    time.Duration
	Locations        []slots.Location
	PortalURL        string
	TelegramBotToken string
	TelegramChatId   string

	DesktopNotifications bool
	SettleDelay          time.Duration

	// Quiet hours are disabled when Timezone is nil.
	Timezone       *time.Location
	QuietHourStart int
	QuietHourEnd   int
}

type locationsFile struct {
	Locations []slots.Location `yaml:"locations"`
}

// parseLocations splits the raw LOCATIONS value. An entry may carry a Telegram
// topic as "Name:123".
func parseLocations(locationsRaw string) []slots.Location {
	var locations []slots.Location
	for _, entry := range strings.Split(locationsRaw, ",") {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}

		location := slots.Location{Name: trimmed}
		if i := strings.LastIndex(trimmed, ":"); i > 0 {
			if topicID, err := strconv.ParseInt(strings.TrimSpace(trimmed[i+1:]), 10, 64); err == nil && topicID > 0 {
				location = slots.Location{Name: strings.TrimSpace(trimmed[:i]), TopicID: topicID}
			}
		}
		if location.Name == "" {
			continue
		}
		locations = append(locations, location)
	}
	return locations
}

func loadLocationsFile(path string) ([]slots.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file locationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	locations := make([]slots.Location, 0, len(file.Locations))
	for _, location := range file.Locations {
		location.Name = strings.TrimSpace(location.Name)
		if location.TopicID < 0 {
			return nil, fmt.Errorf("location %q has negative telegram_topic_id %d", location.Name, location.TopicID)
		}
		if location.Name != "" {
			locations = append(locations, location)
		}
	}
	return locations, nil
}

func parseQuietHours(raw string) (int, int, error) {
	startRaw, endRaw, found := strings.Cut(raw, "-")
	if !found {
		return 0, 0, errors.New("expected start-end, e.g. 0-7")
	}
	start, err := strconv.Atoi(strings.TrimSpace(startRaw))
	if err != nil {
		return 0, 0, fmt.Errorf("start hour: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endRaw))
	if err != nil {
		return 0, 0, fmt.Errorf("end hour: %w", err)
	}
	if start < 0 || start > 23 || end < 0 || end > 24 || start >= end {
		return 0, 0, fmt.Errorf("invalid window %d-%d", start, end)
	}
	return start, end, nil
}

func required(getenv func(string) string, key string) (string, error) {
	value := strings.TrimSpace(getenv(key))
	if value == "" {
		return "", &FieldError{Field: key, Reason: "is not set"}
	}
	return value, nil
}

// LoadFromEnv builds the configuration from getenv. It never returns a partial config.
func LoadFromEnv(getenv func(string) string) (*AppConfig, error) {
	holderNumber, err := required(getenv, "HOLDER_NUMBER")
	if err != nil {
		return nil, err
	}
	birthdate, err := required(getenv, "BIRTHDATE")
	if err != nil {
		return nil, err
	}

	intervalRaw, err := required(getenv, "CHECK_INTERVAL_MINUTES")
	if err != nil {
		return nil, err
	}
	intervalMinutes, err := strconv.ParseInt(intervalRaw, 10, 64)
	if err != nil || intervalMinutes <= 0 || intervalMinutes > maxIntervalMinutes {
		return nil, &FieldError{Field: "CHECK_INTERVAL_MINUTES", Reason: fmt.Sprintf("must be a positive integer, got %q", intervalRaw)}
	}

	var locations []slots.Location
	if path := strings.TrimSpace(getenv("LOCATIONS_FILE")); path != "" {
		locations, err = loadLocationsFile(path)
		if err != nil {
			return nil, &FieldError{Field: "LOCATIONS_FILE", Reason: err.Error()}
		}
		if len(locations) == 0 {
			return nil, &FieldError{Field: "LOCATIONS_FILE", Reason: "contains no locations"}
		}
	} else {
		locationsRaw, err := required(getenv, "LOCATIONS")
		if err != nil {
			return nil, err
		}
		locations = parseLocations(locationsRaw)
		if len(locations) == 0 {
			return nil, &FieldError{Field: "LOCATIONS", Reason: "is empty after parsing"}
		}
	}

	telegramBotToken, err := required(getenv, "TELEGRAM_BOT_TOKEN")
	if err != nil {
		return nil, err
	}
	telegramChatID, err := required(getenv, "TELEGRAM_CHAT_ID")
	if err != nil {
		return nil, err
	}

	appConfig := &AppConfig{
		HolderNumber:     holderNumber,
		Birthdate:        birthdate,
		CheckInterval:    time.Duration(intervalMinutes) * time.Minute,
		Locations:        locations,
		PortalURL:        defaultPortalURL,
		TelegramBotToken: telegramBotToken,
		TelegramChatId:   telegramChatID,
		SettleDelay:      defaultSettleDelay,
	}

	if portalURL := strings.TrimSpace(getenv("PORTAL_URL")); portalURL != "" {
		appConfig.PortalURL = portalURL
	}

	if raw := strings.TrimSpace(getenv("SETTLE_DELAY")); raw != "" {
		settleDelay, err := time.ParseDuration(raw)
		if err != nil || settleDelay < 0 {
			return nil, &FieldError{Field: "SETTLE_DELAY", Reason: fmt.Sprintf("must be a non-negative duration, got %q", raw)}
		}
		appConfig.SettleDelay = settleDelay
	}

	if raw := strings.TrimSpace(getenv("DESKTOP_NOTIFY")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &FieldError{Field: "DESKTOP_NOTIFY", Reason: fmt.Sprintf("must be a boolean, got %q", raw)}
		}
		appConfig.DesktopNotifications = enabled
	}

	if raw := strings.TrimSpace(getenv("QUIET_HOURS")); raw != "" {
		start, end, err := parseQuietHours(raw)
		if err != nil {
			return nil, &FieldError{Field: "QUIET_HOURS", Reason: err.Error()}
		}
		timeLocation, err := time.LoadLocation(strings.TrimSpace(getenv("TIMEZONE")))
		if err != nil {
			return nil, &FieldError{Field: "TIMEZONE", Reason: err.Error()}
		}
		appConfig.Timezone = timeLocation
		appConfig.QuietHourStart = start
		appConfig.QuietHourEnd = end
	}

	return appConfig, nil
}

// ParseConfiguration loads an optional .env file and then reads the process environment.
func ParseConfiguration() (*AppConfig, error) {
	log.Println("Attempting to load .env file...")
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
		log.Println("No .env file found, using process environment only.")
	} else {
		log.Println(".env file loaded successfully.")
	}

	appConfig, err := LoadFromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}

	log.Printf("Telegram Bot Token Length: %d", len(appConfig.TelegramBotToken))
	if len(appConfig.TelegramBotToken) > 10 {
		log.Printf("Telegram Bot Token Hint: Starts with '%s', ends with '%s'", appConfig.TelegramBotToken[:5], appConfig.TelegramBotToken[len(appConfig.TelegramBotToken)-5:])
	}

	log.Printf("Monitoring %d location/s every %v", len(appConfig.Locations), appConfig.CheckInterval)
	for i, location := range appConfig.Locations {
		if location.TopicID != 0 {
			log.Printf("%d. %s (topic %d)", i+1, location.Name, location.TopicID)
		} else {
			log.Printf("%d. %s", i+1, location.Name)
		}
	}

	if appConfig.Timezone != nil {
		log.Printf("Quiet hours: %d:00-%d:00 %s", appConfig.QuietHourStart, appConfig.QuietHourEnd, appConfig.Timezone)
	}

	return appConfig, nil
}
