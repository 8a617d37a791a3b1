package repos

import (
	"fmt"
	"io"
	"sort"
)

const (
	notSet = "<not set>"
	masked = "********"
)

// PrintAttributes writes the variant's known attributes, marking absent ones,
// followed by any attributes the variant does not recognise
func (b *base) PrintAttributes(w io.Writer) {
	fmt.Fprintf(w, "%s:\n", b.name)

	known := make(map[string]bool, len(b.known))
	for _, key := range b.known {
		known[key] = true
		fmt.Fprintf(w, "  %s: %s\n", key, b.display(key))
	}

	var extra []string
	for key := range b.attributes {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	if len(extra) == 0 {
		return
	}

	sort.Strings(extra)
	fmt.Fprintln(w, "  extra attributes:")
	for _, key := range extra {
		fmt.Fprintf(w, "    %s: %s\n", key, b.display(key))
	}
}

func (b *base) display(key string) string {
	value, ok := b.attributes.Get(key)
	switch {
	case !ok:
		return notSet
	case isSecret(key):
		return masked
	default:
		return value
	}
}
