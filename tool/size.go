package tool

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with two decimals in 1024-based units, e.g. "30.00 MB".
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	value := float64(size)
	for _, unit := range sizeUnits[:len(sizeUnits)-1] {
		if value < 1024 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[len(sizeUnits)-1])
}
