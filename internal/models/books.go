package models

import (
	"fmt"
	"strconv"
	"strings"
)

// AllowedShelves lists the shelves a user may add volumes to from search results.
var AllowedShelves = []string{"Reading now", "Favorites", "To read"}

// Shelf is a named, user-owned collection of volumes.
type Shelf struct {
	ID                 int    `json:"id"`
	Title              string `json:"title,omitempty"`
	Access             string `json:"access,omitempty"`
	VolumeCount        int    `json:"volumeCount,omitempty"`
	Updated            string `json:"updated,omitempty"`
	VolumesLastUpdated string `json:"volumesLastUpdated,omitempty"`
}

// Key returns the shelf id in the string form used by gateway paths.
func (s Shelf) Key() string { return strconv.Itoa(s.ID) }

// DisplayTitle falls back to "Shelf" for untitled shelves.
func (s Shelf) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return "Shelf"
	}
	return s.Title
}

// Label renders the shelf as "<title> (<count>)".
func (s Shelf) Label() string {
	return fmt.Sprintf("%s (%d)", s.DisplayTitle(), s.VolumeCount)
}

// IsAddable reports whether volumes may be added to the shelf from search.
func IsAddable(s Shelf) bool {
	name := strings.ToLower(strings.TrimSpace(s.Title))
	for _, allowed := range AllowedShelves {
		if strings.ToLower(allowed) == name {
			return true
		}
	}
	return false
}

// ImageLinks holds cover image URLs.
type ImageLinks struct {
	Thumbnail      string `json:"thumbnail,omitempty"`
	SmallThumbnail string `json:"smallThumbnail,omitempty"`
}

// VolumeInfo is the descriptive part of a [Volume].
type VolumeInfo struct {
	Title         string      `json:"title,omitempty"`
	Authors       []string    `json:"authors,omitempty"`
	Description   string      `json:"description,omitempty"`
	PageCount     int         `json:"pageCount,omitempty"`
	ImageLinks    *ImageLinks `json:"imageLinks,omitempty"`
	PublishedDate string      `json:"publishedDate,omitempty"`
	Publisher     string      `json:"publisher,omitempty"`
}

// Volume is a single book entry as the upstream catalog represents it.
type Volume struct {
	ID         string      `json:"id,omitempty"`
	VolumeInfo *VolumeInfo `json:"volumeInfo,omitempty"`
}

// Renderable reports whether the volume has enough data to show.
func (v Volume) Renderable() bool {
	return v.ID != "" && v.VolumeInfo != nil
}

// Title returns the volume title or an empty string.
func (v Volume) Title() string {
	if v.VolumeInfo == nil {
		return ""
	}
	return v.VolumeInfo.Title
}

// AuthorLine joins the volume's authors with ", ".
func (v Volume) AuthorLine() string {
	if v.VolumeInfo == nil {
		return ""
	}
	return strings.Join(v.VolumeInfo.Authors, ", ")
}

// Thumbnail returns the https cover URL, if any.
func (v Volume) Thumbnail() string {
	if v.VolumeInfo == nil || v.VolumeInfo.ImageLinks == nil {
		return ""
	}
	return SecureThumbnail(v.VolumeInfo.ImageLinks.Thumbnail)
}

// BookSummary is a flattened public search result.
type BookSummary struct {
	GoogleID      string   `json:"googleId"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	ThumbnailLink string   `json:"thumbnailLink,omitempty"`
}

// AuthorLine joins the book's authors with ", ".
func (b BookSummary) AuthorLine() string {
	return strings.Join(b.Authors, ", ")
}

// Blurb returns the description or a placeholder.
func (b BookSummary) Blurb() string {
	if strings.TrimSpace(b.Description) == "" {
		return "No description available."
	}
	return b.Description
}

// Thumbnail returns the https cover URL, if any.
func (b BookSummary) Thumbnail() string {
	return SecureThumbnail(b.ThumbnailLink)
}

// SecureThumbnail rewrites a leading "http:" scheme to "https:".
func SecureThumbnail(u string) string {
	if strings.HasPrefix(u, "http:") {
		return "https:" + strings.TrimPrefix(u, "http:")
	}
	return u
}
