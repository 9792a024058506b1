package view

import (
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/notification"
	"grimm.is/iwaf/internal/stats"
)

// Palette.
const (
	ColorSuccess = "#27ae60"
	ColorError   = "#e74c3c"
	ColorWarning = "#f39c12"
	ColorInfo    = "#3498db"
	ColorMuted   = "#7f8c8d"
)

// SeverityColor maps a notification severity to its toast color. Unknown
// severities render as info.
func SeverityColor(severity string) string {
	switch notification.NormalizeSeverity(severity) {
	case notification.SeveritySuccess:
		return ColorSuccess
	case notification.SeverityError:
		return ColorError
	case notification.SeverityWarning:
		return ColorWarning
	}
	return ColorInfo
}

// SeverityIcon maps a severity to its icon name.
func SeverityIcon(severity string) string {
	switch notification.NormalizeSeverity(severity) {
	case notification.SeveritySuccess:
		return "check-circle"
	case notification.SeverityError:
		return "exclamation-circle"
	case notification.SeverityWarning:
		return "exclamation-triangle"
	}
	return "info-circle"
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatUptime renders d as whole hours and minutes.
func FormatUptime(p *message.Printer, d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return p.Sprintf(i18n.MsgUptime, h, m)
}

// ThreatLabel returns the localized threat level, or "Unknown".
func ThreatLabel(p *message.Printer, level stats.ThreatLevel) string {
	switch level {
	case stats.ThreatLow:
		return p.Sprintf(i18n.LabelLow)
	case stats.ThreatMedium:
		return p.Sprintf(i18n.LabelMedium)
	case stats.ThreatHigh:
		return p.Sprintf(i18n.LabelHigh)
	case stats.ThreatCritical:
		return p.Sprintf(i18n.LabelCritical)
	}
	return p.Sprintf(i18n.LabelUnknown)
}

// ThreatColor returns the indicator color for level.
func ThreatColor(level stats.ThreatLevel) string {
	switch level {
	case stats.ThreatLow:
		return ColorSuccess
	case stats.ThreatMedium:
		return ColorWarning
	case stats.ThreatHigh, stats.ThreatCritical:
		return ColorError
	}
	return ColorMuted
}

// RequestSeries is the request chart's data.
var RequestSeries = []float64{20, 35, 25, 45, 30, 55, 40, 65, 50, 70}

// Point is a chart vertex in canvas coordinates, y growing downwards.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

// ChartPoints lays data out across a width x height canvas. The maximum
// value sits at 80% of the height.
func ChartPoints(data []float64, width, height float64) []Point {
	if len(data) == 0 {
		return nil
	}
	maxY := data[0]
	for _, v := range data[1:] {
		maxY = math.Max(maxY, v)
	}
	stepX := 0.0
	if len(data) > 1 {
		stepX = width / float64(len(data)-1)
	}
	points := make([]Point, len(data))
	for i, v := range data {
		y := height
		if maxY > 0 {
			y = height - (v/maxY)*height*0.8
		}
		points[i] = Point{X: float64(i) * stepX, Y: y, Value: v}
	}
	return points
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
