package eventlog

import (
	"fmt"
	"time"
)

// Messages written by the console itself. They double as i18n catalog keys.
const (
	MsgRefreshed        = "log refreshed"
	MsgNormalRequest    = "normal request processed"
	MsgRateLimitReached = "rate limit threshold reached"
	MsgConfigChecked    = "configuration check completed"
)

// RefreshIP is the placeholder address stamped on manual refresh entries.
const RefreshIP = "192.168.1.1"

// Template is a {level, message} pair the traffic simulator draws from.
type Template struct {
	Level   Level
	Message string
}

// SimulatedCatalog is the fixed set of synthetic traffic entries.
var SimulatedCatalog = []Template{
	{Level: LevelInfo, Message: MsgNormalRequest},
	{Level: LevelWarn, Message: MsgRateLimitReached},
	{Level: LevelDebug, Message: MsgConfigChecked},
}

// SimulatedIP returns the address for host octet n in 192.168.1.0/24.
func SimulatedIP(n int) string {
	return fmt.Sprintf("192.168.1.%d", n)
}

type seedEntry struct {
	at      string
	level   Level
	message string
	ip      string
}

var seed = []seedEntry{
	{"2024-09-22 10:30:15", LevelInfo, "WAF started", ""},
	{"2024-09-22 10:31:22", LevelWarn, "SQL injection attempt detected", "192.168.1.50"},
	{"2024-09-22 10:32:45", LevelError, "malicious request blocked", "10.0.0.100"},
	{"2024-09-22 10:33:12", LevelInfo, "configuration updated", ""},
	{"2024-09-22 10:34:33", LevelDebug, "processing normal request", "192.168.1.10"},
}

// Seed appends the demo history shown on a fresh console, oldest first, so
// the newest seed entry ends up at the front.
func Seed(s *Store) {
	for _, e := range seed {
		t, err := time.ParseInLocation(TimestampFormat, e.at, time.Local)
		if err != nil {
			continue
		}
		s.Append(NewEntry(t, e.level, e.message, e.ip))
	}
}
