package feed

// Wire structs for the remote chart feed document. One document carries
// one or more chart views; the alias string classifies each view.

type Document struct {
	Charts []ChartView `json:"charts"`
}

type ChartView struct {
	Date    string      `json:"date"`
	Alias   string      `json:"alias"`
	Region  string      `json:"region,omitempty"`
	Entries []ViewEntry `json:"entries"`
}

type ViewEntry struct {
	CurrentRank  int      `json:"currentRank"`
	PreviousRank int      `json:"previousRank"`
	PeakRank     int      `json:"peakRank"`
	Streams      string   `json:"streams,omitempty"`
	Track        TrackRef `json:"trackMetadata"`
}

type TrackRef struct {
	Name    string      `json:"trackName"`
	URI     string      `json:"trackUri"`
	Artists []ArtistRef `json:"artists"`
}

type ArtistRef struct {
	Name string `json:"name"`
	URI  string `json:"spotifyUri"`
}
