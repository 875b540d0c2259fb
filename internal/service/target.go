package service

import (
	"fmt"
	"strings"
)

// Target identifies the user a sanction applies to, with the display
// name recorded into the history entry.
type Target struct {
	ID   int64
	Name string
}

// LinkedName returns an HTML-safe link to the user's profile
func (t Target) LinkedName() string {
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("user %d", t.ID)
	}

	// Handle '&', '<', '>' for HTML safety
	name = strings.ReplaceAll(name, "&", "&amp;")
	name = strings.ReplaceAll(name, "<", "&lt;")
	name = strings.ReplaceAll(name, ">", "&gt;")

	return fmt.Sprintf("<a href=\"tg://user?id=%d\">%s</a>", t.ID, name)
}
