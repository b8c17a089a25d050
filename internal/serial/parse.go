package serial

import "strings"

// ParseLine decodes "id1:value1,id2:value2,..." into a map of id to raw
// value. Tokens that do not split into exactly one key and one value on ':'
// are dropped. Later duplicates win.
func ParseLine(line string) map[string]string {
	out := make(map[string]string)
	for _, token := range strings.Split(line, ",") {
		parts := strings.Split(token, ":")
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}
