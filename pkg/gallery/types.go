// Package gallery provides the public photo gallery queries.
package gallery

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// All is the filter value meaning "no filter".
const All = "all"

// Image is one public gallery photo.
type Image struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Image         string   `json:"image"`
	Thumbnail     string   `json:"thumbnail"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	EventDate     string   `json:"event_date"`
	EventLocation string   `json:"event_location"`
	PeopleTagged  string   `json:"people_tagged"`
	SpecialGuests string   `json:"special_guests"`
	ViewCount     int      `json:"view_count"`
	Likes         int      `json:"likes"`
	Comments      int      `json:"comments"`
	Photographer  string   `json:"photographer"`
	Priority      string   `json:"priority"`
	IsFeatured    bool     `json:"is_featured"`
}

// Date parses EventDate (YYYY-MM-DD).
func (i Image) Date() (time.Time, error) {
	return time.Parse(time.DateOnly, i.EventDate)
}

// ThumbnailOrImage prefers the thumbnail URL.
func (i Image) ThumbnailOrImage() string {
	if i.Thumbnail != "" {
		return i.Thumbnail
	}
	return i.Image
}

// CategoryID is a category id; the synthetic "All Photos" entry uses "all".
type CategoryID string

// UnmarshalJSON accepts numbers and strings.
func (id *CategoryID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CategoryID(s)
		return nil
	}
	*id = CategoryID(data)
	return nil
}

// Category is a gallery category with its public image count.
type Category struct {
	ID           CategoryID `json:"id"`
	Name         string     `json:"name"`
	CategoryType string     `json:"category_type"`
	ColorCode    string     `json:"color_code"`
	Count        int        `json:"count"`
}

// Value is what the category contributes to a Filter.
func (c Category) Value() string {
	if c.CategoryType != "" {
		return c.CategoryType
	}
	return string(c.ID)
}

// Filter narrows the image listing. Empty fields and "all" mean no filter.
type Filter struct {
	Category string `json:"category"`
	Tag      string `json:"tag"`
	Search   string `json:"search"`
}

// Normalize trims the filter and folds "all" to empty.
func (f Filter) Normalize() Filter {
	norm := func(s string) string {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, All) {
			return ""
		}
		return s
	}
	return Filter{
		Category: norm(f.Category),
		Tag:      norm(f.Tag),
		Search:   strings.TrimSpace(f.Search),
	}
}

// Page is everything the gallery page shows.
type Page struct {
	Filter     Filter
	Images     []Image
	Categories []Category
	Tags       []string
}
