package spotify

// User represents a Spotify user profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	DurationMS int      `json:"duration_ms"`
	IsLocal    bool     `json:"is_local"`
	URI        string   `json:"uri"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackRef struct {
	Total int `json:"total"`
}

// Playlist represents a Spotify playlist object.
type Playlist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       owner    `json:"owner"`
	Public      bool     `json:"public"`
	Tracks      trackRef `json:"tracks"`
	URI         string   `json:"uri"`
}

// PlaylistItem represents a track within a playlist context. Track is a
// pointer because the API returns null entries for removed or unavailable
// tracks.
type PlaylistItem struct {
	AddedAt string `json:"added_at"`
	IsLocal bool   `json:"is_local"`
	Track   *Track `json:"track"`
}

// PlaylistItemsPage represents one page of a playlist's track listing.
type PlaylistItemsPage struct {
	Items    []PlaylistItem `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
}

// apiError is the error envelope the Web API returns on non-2xx responses.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
