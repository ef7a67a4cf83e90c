package helpers

import (
	"context"
	"fmt"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/healthcare-identity/pkg/mailer/templates"
)

const localTimeLayout = "02 January 2006, 15:04 MST"

// LocalizeTimesIfPossible rewrites the display times in data to the time zone
// of the request IP. Lookups that fail leave data untouched.
func LocalizeTimesIfPossible(ctx context.Context, resolver mailtpl.GeoResolver, data map[string]any) {
	if resolver == nil {
		return
	}
	ipVal, ok := data["IP"]
	if !ok || fmt.Sprintf("%v", ipVal) == "" {
		return
	}
	g, err := resolver.Lookup(ctx, fmt.Sprintf("%v", ipVal))
	if err != nil {
		return
	}
	if loc, ok := data["Location"]; !ok || fmt.Sprintf("%v", loc) == "" {
		if s := mailtpl.FormatGeo(g); s != "" {
			data["Location"] = s
		}
	}
	if strings.TrimSpace(g.Timezone) == "" {
		return
	}
	tz, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	if t, ok := parseTimeAny(data["ExpiresAt"]); ok && !t.IsZero() {
		data["ExpiresAtText"] = t.In(tz).Format(localTimeLayout)
	}
	if t, ok := parseTimeAny(data["TimeAt"]); ok && !t.IsZero() {
		data["Time"] = t.In(tz).Format(localTimeLayout)
	}
}

func parseTimeAny(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, true
	}
	s := fmt.Sprintf("%v", v)
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
