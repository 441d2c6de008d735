// Package hexdump formats byte slices for human inspection, primarily in
// test failure output.
package hexdump

import (
	"fmt"
	"strings"
)

// Dump renders b in rows of bytesPerRow hex bytes, with the row offset at
// the start of each row and the ASCII rendering at the end, like xxd.
// Non-printable bytes render as '.'.
func Dump(b []byte, bytesPerRow int) string {
	if bytesPerRow <= 0 {
		bytesPerRow = 16
	}
	var out strings.Builder
	for row := 0; row*bytesPerRow < len(b); row++ {
		first := row * bytesPerRow
		last := first + bytesPerRow
		out.WriteString(fmt.Sprintf("%08x: ", first))
		var ascii []byte
		for i := first; i < last; i++ {
			if i%8 == 0 {
				out.WriteByte(' ')
			}
			if i >= len(b) {
				out.WriteString("   ")
				continue
			}
			out.WriteString(fmt.Sprintf(" %02x", b[i]))
			if b[i] >= 0x20 && b[i] <= 0x7e {
				ascii = append(ascii, b[i])
			} else {
				ascii = append(ascii, '.')
			}
		}
		out.WriteString("  ")
		out.Write(ascii)
		out.WriteByte('\n')
	}
	return out.String()
}
