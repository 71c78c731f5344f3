package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hmuroya/taskward/internal/calendar"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskward/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskward/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

// CalendarEnv configures the business calendar used for due dates and
// reminder hours. Start and end are HH:MM in the configured timezone.
type CalendarEnv struct {
	Timezone      string `envconfig:"TIMEZONE" default:"Asia/Tokyo"`
	BusinessStart string `envconfig:"BUSINESS_START" default:"09:00"`
	BusinessEnd   string `envconfig:"BUSINESS_END" default:"18:00"`
}

type MaintenanceEnv struct {
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	ArchiveAfterDays int           `envconfig:"ARCHIVE_AFTER_DAYS" default:"14"`
	RetentionDays    int           `envconfig:"RETENTION_DAYS" default:"90"`
	ReminderThrottle time.Duration `envconfig:"REMINDER_THROTTLE" default:"60m"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:ops@taskward.local"`
}

type Env struct {
	BaseEnv
	StorageEnv
	CalendarEnv
	MaintenanceEnv
	VAPIDEnv
}

const namespace = "TASKWARD"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// CalendarConfig resolves the env strings into an immutable calendar.Config.
// Resolution happens once at startup; the pure calendar functions never read
// the environment themselves.
func (e *CalendarEnv) CalendarConfig() (calendar.Config, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("invalid timezone %q: %w", e.Timezone, err)
	}
	startHour, startMinute, err := parseHourMinute(e.BusinessStart)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("invalid business start: %w", err)
	}
	endHour, endMinute, err := parseHourMinute(e.BusinessEnd)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("invalid business end: %w", err)
	}
	return calendar.Config{
		Location:    loc,
		StartHour:   startHour,
		StartMinute: startMinute,
		EndHour:     endHour,
		EndMinute:   endMinute,
	}, nil
}

func parseHourMinute(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q is not HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%q is not HH:MM", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return hour, minute, nil
}

func (e *MaintenanceEnv) ArchiveAfter() time.Duration {
	return time.Duration(e.ArchiveAfterDays) * 24 * time.Hour
}

func (e *MaintenanceEnv) Retention() time.Duration {
	return time.Duration(e.RetentionDays) * 24 * time.Hour
}
