package index

import "unicode/utf8"

// minPrintableRatio is the printable-character threshold below which content
// is treated as binary.
const minPrintableRatio = 0.9

// isBinary reports whether content should be rejected as binary: any NUL
// byte, or fewer than 90% printable characters.
func isBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	printable := 0
	total := 0
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		if r == 0 {
			return true
		}
		total++
		if r == '\n' || r == '\r' || r == '\t' || (r >= 0x20 && r != utf8.RuneError) {
			printable++
		}
		i += size
	}

	return float64(printable)/float64(total) < minPrintableRatio
}
