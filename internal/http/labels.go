package http

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

var relativeMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "ahora", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "%s 1 minuto", DivBy: 1},
	{D: time.Hour, Format: "%s %d minutos", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "%s 1 hora", DivBy: 1},
	{D: humanize.Day, Format: "%s %d horas", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "%s 1 día", DivBy: 1},
	{D: humanize.Week, Format: "%s %d días", DivBy: humanize.Day},
	{D: 2 * humanize.Week, Format: "%s 1 semana", DivBy: 1},
	{D: humanize.Month, Format: "%s %d semanas", DivBy: humanize.Week},
	{D: math.MaxInt64, Format: "%s mucho tiempo", DivBy: 1},
}

// relativeLabel renders then relative to now, e.g. "en 3 horas" or "hace 5 minutos".
func relativeLabel(then, now time.Time) string {
	return humanize.CustomRelTime(then, now, "hace", "en", relativeMagnitudes)
}

// distanceLabel renders a distance in kilometres with SI prefixes ("850 m",
// "2.3 km"). Unknown distances render empty.
func distanceLabel(km float64) string {
	if math.IsInf(km, 0) || math.IsNaN(km) || km < 0 {
		return ""
	}
	meters := km * 1000
	if meters < 1 {
		return "0 m"
	}
	return humanize.SIWithDigits(meters, 1, "m")
}

func attendeeLabel(count int) string {
	if count == 1 {
		return "1 persona"
	}
	return humanize.Comma(int64(count)) + " personas"
}
