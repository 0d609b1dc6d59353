package portal

import (
	"context"

	"github.com/Sternrassler/alumni-portal-client/pkg/gallery"
)

// GalleryView is the photo gallery page.
type GalleryView struct {
	Title      string             `json:"title"`
	Subtitle   string             `json:"subtitle"`
	State      ViewState          `json:"state"`
	Notice     *Notice            `json:"notice,omitempty"`
	Filter     gallery.Filter     `json:"filter"`
	Images     []gallery.Image    `json:"images"`
	Categories []gallery.Category `json:"categories"`
	Tags       []string           `json:"tags"`
}

// Gallery loads images, categories and tags for filter.
func (p *Pages) Gallery(ctx context.Context, filter gallery.Filter) (view GalleryView) {
	view = GalleryView{
		Title:      "TABH Gallery",
		Subtitle:   "Capturing memories, celebrating moments, and preserving the spirit of brotherhood at Tauras Army Boys Hostel",
		Filter:     filter.Normalize(),
		Images:     []gallery.Image{},
		Categories: []gallery.Category{},
		Tags:       []string{},
	}
	defer p.recoverPage("gallery", &view.Notice)

	page, err := p.gallery.LoadPage(ctx, filter)
	if page != nil {
		if page.Images != nil {
			view.Images = page.Images
		}
		if page.Categories != nil {
			view.Categories = page.Categories
		}
		if page.Tags != nil {
			view.Tags = page.Tags
		}
	}

	switch {
	case err != nil && ctx.Err() != nil:
		view.State = StateLoading
	case err != nil:
		view.State = StateError
		view.Notice = loadFailed("gallery data", err)
	case len(view.Images) == 0:
		view.State = StateEmpty
		view.Notice = infoNotice("No photos found")
	default:
		view.State = StateReady
	}
	return view
}
