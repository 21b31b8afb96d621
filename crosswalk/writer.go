package crosswalk

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteLines writes every line as UTF-8 text followed by a newline and
// flushes. Invalid UTF-8 sequences are replaced with U+FFFD.
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(strings.ToValidUTF8(line, "�")); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}
