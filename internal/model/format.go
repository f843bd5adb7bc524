package model

import "fmt"

// FormatSpeed renders a byte rate as megabytes per second with one decimal.
//
//	FormatSpeed(1572864) // "1.5 MB/s"
func FormatSpeed(bytesPerSec float64) string {
	return fmt.Sprintf("%.1f MB/s", bytesPerSec/1024/1024)
}

// FormatETA renders remaining seconds as "MM:SS" below one hour and as
// whole hours ("2 hrs+") otherwise.
//
//	FormatETA(75)   // "01:15"
//	FormatETA(7300) // "2 hrs+"
func FormatETA(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 3600 {
		return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%d hrs+", seconds/3600)
}
