package util

import "fmt"

// HumanBytes formats a body size for log lines, e.g. "12.40 KB".
func HumanBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n)
	for _, unit := range []string{"KB", "MB", "GB"} {
		v /= 1024
		if v < 1024 || unit == "GB" {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
	}

	return fmt.Sprintf("%d B", n)
}
