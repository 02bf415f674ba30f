// package models defines the data model for the library save pipeline
package models

// Track represents a single track in the remote catalog.
type Track struct {
	ID     string // Opaque Spotify track ID
	Title  string
	Artist string
}

// Playlist represents playlist metadata from the remote service.
type Playlist struct {
	ID         string
	Name       string
	Owner      string
	TrackCount int
	Public     bool
}

// PageInfo describes one fetched page of a paginated listing.
type PageInfo struct {
	Offset  int // Offset the page was requested at
	Fetched int // Usable tracks collected so far, cumulative across pages
	Total   int // Total items the remote reports for the listing
}

// Label renders a human-readable "Artist - Title" suffix for log lines.
// Returns the empty string when neither field is populated.
func (t Track) Label() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return ""
	}
}

// IDs extracts the track identifiers from a slice of tracks, preserving order.
func IDs(tracks []Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	return ids
}
