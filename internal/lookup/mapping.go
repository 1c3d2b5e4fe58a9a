package lookup

import (
	"strconv"
	"strings"
	"time"
)

func forceHTTPS(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// publishYear reads the year of yyyy-MM-dd, yyyy-MM and yyyy dates.
func publishYear(date string) *int {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			y := t.Year()
			return &y
		}
	}
	return nil
}

// trailingYear reads free-form dates such as "August 1965" or "1965".
func trailingYear(date string) *int {
	if y := publishYear(date); y != nil {
		return y
	}
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[len(date)-4:])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

func positive(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func joinTitle(title, subtitle string) string {
	parts := make([]string, 0, 2)
	if title != "" {
		parts = append(parts, title)
	}
	if strings.TrimSpace(subtitle) != "" {
		parts = append(parts, subtitle)
	}
	return strings.Join(parts, ": ")
}
