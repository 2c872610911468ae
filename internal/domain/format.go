package domain

import (
	"fmt"
	"time"
)

// FormatElapsed renders a duration as MM:SS.ff (minutes, seconds, hundredths).
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	minutes := ms / 60000
	seconds := (ms / 1000) % 60
	hundredths := (ms % 1000) / 10
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, hundredths)
}
