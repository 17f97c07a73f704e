package rows

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// FormatTimeAgo renders created relative to now. Buckets use integer
// division: 60 minutes is "1 hours ago". Entries a week old or more fall back
// to the calendar date.
func FormatTimeAgo(created, now time.Time) string {
	diff := now.Sub(created)
	minutes := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return created.In(now.Location()).Format(dateLayout)
	}
}
