package models

import "fmt"

// View identifies one of the ranked keyword views.
type View string

// Ranked views
const (
	ViewPopular View = "popular"
	ViewRecent  View = "recent"
)

// Views lists every ranked view in reporting order.
var Views = []View{ViewPopular, ViewRecent}

// ParseView validates a view name from user input.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewPopular, ViewRecent:
		return View(s), nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// Read sources reported alongside query results
const (
	SourceCache = "cache"
	SourceLive  = "live"
	SourceStore = "store"
)
