package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/starford/thoughts/internal/models"
)

// writeListing prints one line per entry: id, creation date and time, and
// the title with a leading star for favorites.
func writeListing(w io.Writer, entries []models.Entry) {
	for _, e := range entries {
		star := ""
		if e.Favorite {
			star = "*"
		}
		fmt.Fprintf(w, "%s  %s %s  %s%s\n", e.ID, e.Date(), e.Time(), star, e.Title)
	}
}

// writeEntry prints a header block followed by the body.
func writeEntry(w io.Writer, e models.Entry) {
	fmt.Fprintf(w, "id:       %s\n", e.ID)
	fmt.Fprintf(w, "title:    %s\n", e.Title)
	fmt.Fprintf(w, "created:  %s %s\n", e.Date(), e.Time())
	fmt.Fprintf(w, "favorite: %t\n", e.Favorite)
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "tags:     %s\n", strings.Join(e.Tags, ", "))
	}
	fmt.Fprintln(w)
	io.WriteString(w, e.Body)
	if e.Body != "" && !strings.HasSuffix(e.Body, "\n") {
		fmt.Fprintln(w)
	}
}
