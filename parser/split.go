// Package parser splits shell command lines into chain segments and
// normalizes each segment to its effective command. It approximates a shell
// tokenizer just far enough to isolate independently-dangerous sub-commands;
// it is deliberately not a full shell parser, and both Split and Normalize
// are total over arbitrary input.
package parser

import "strings"

// Split breaks a command line into segments delimited by top-level &&, ||,
// and ;. Delimiters inside single or double quotes do not split, and the ;;
// case terminator is copied through literally. Blank segments are dropped.
func Split(command string) []string {
	var segments []string
	var current strings.Builder
	var quote byte

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			segments = append(segments, current.String())
		}
		current.Reset()
	}

	i := 0
	for i < len(command) {
		ch := command[i]

		// A quote toggles state only when preceded by an even number of
		// consecutive backslashes.
		if (ch == '"' || ch == '\'') && !escapedByBackslashes(command, i) {
			switch quote {
			case 0:
				quote = ch
			case ch:
				quote = 0
			}
		}

		if quote == 0 {
			if i+2 <= len(command) && (command[i:i+2] == "&&" || command[i:i+2] == "||") {
				flush()
				i += 2
				continue
			}
			if ch == ';' {
				if i+1 < len(command) && command[i+1] == ';' {
					current.WriteString(";;")
					i += 2
					continue
				}
				flush()
				i++
				continue
			}
		}

		current.WriteByte(ch)
		i++
	}
	flush()

	return segments
}

// escapedByBackslashes reports whether the character at position i is
// preceded by an odd number of consecutive backslashes, i.e. whether the
// character itself is escaped (`\"` is, `\\"` is not).
func escapedByBackslashes(s string, i int) bool {
	count := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		count++
	}
	return count%2 == 1
}
