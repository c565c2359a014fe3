package musicapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Track is a remote search result. An empty ID means the candidate is
// unusable for download.
type Track struct {
	ID      string
	Title   string
	Artists []string
	Album   string
	PicID   string
	LyricID string
	Source  string
}

// ArtistLine joins the artist list for display and scoring.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, " ")
}

// SongURL is a resolved download location for one quality tier.
type SongURL struct {
	URL     string
	Bitrate int
	Size    int64
}

// Lyrics holds LRC-format lyrics. Translated is empty when the service
// has no translation for the track.
type Lyrics struct {
	Lyric      string
	Translated string
}

// CoverArt is a resolved album art location.
type CoverArt struct {
	URL string
}

// flexString tolerates the service returning identifiers as either JSON
// strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexStrings tolerates the artist field arriving as an array or as a
// single string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}
	if data[0] == '[' {
		var values []flexString
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				out = append(out, string(v))
			}
		}
		*f = out
		return nil
	}
	var single flexString
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*f = nil
		return nil
	}
	*f = []string{string(single)}
	return nil
}

type trackPayload struct {
	ID      flexString  `json:"id"`
	Name    flexString  `json:"name"`
	Artist  flexStrings `json:"artist"`
	Album   flexString  `json:"album"`
	PicID   flexString  `json:"pic_id"`
	LyricID flexString  `json:"lyric_id"`
	Source  flexString  `json:"source"`
}

func (p trackPayload) track() Track {
	return Track{
		ID:      string(p.ID),
		Title:   string(p.Name),
		Artists: p.Artist,
		Album:   string(p.Album),
		PicID:   string(p.PicID),
		LyricID: string(p.LyricID),
		Source:  string(p.Source),
	}
}

type songURLPayload struct {
	URL  flexString `json:"url"`
	BR   flexString `json:"br"`
	Size flexString `json:"size"`
}

func (p songURLPayload) songURL() SongURL {
	bitrate, _ := strconv.Atoi(string(p.BR))
	size, _ := strconv.ParseInt(string(p.Size), 10, 64)
	return SongURL{URL: string(p.URL), Bitrate: bitrate, Size: size}
}

type lyricsPayload struct {
	Lyric  flexString `json:"lyric"`
	TLyric flexString `json:"tlyric"`
}

type coverArtPayload struct {
	URL flexString `json:"url"`
}
