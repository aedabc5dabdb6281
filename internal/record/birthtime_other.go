//go:build !linux

package record

import "time"

func birthTime(string) (time.Time, bool) {
	return time.Time{}, false
}
