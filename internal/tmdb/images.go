package tmdb

// Image URL derivation. The provider returns bare paths; URLs are assembled
// from the CDN base plus a size token. Selection is an explicit priority
// list, not a scored ranking.

const imageBaseURL = "https://image.tmdb.org/t/p/"

const (
	sizeBackdrop = "w1280"
	sizePoster   = "w500"
)

// ImageURL assembles a CDN URL for a provider image path.
// Returns "" for an empty path.
func ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	return imageBaseURL + size + path
}

// BestBackdropURL picks the best available wide image for a movie:
// the dedicated backdrop field when present, else the poster as a fallback.
// Returns "" when the provider has neither.
func BestBackdropURL(r *MovieResult) string {
	if r == nil {
		return ""
	}
	if r.BackdropPath != "" {
		return ImageURL(r.BackdropPath, sizeBackdrop)
	}
	return ImageURL(r.PosterPath, sizePoster)
}

// PosterURL derives the standard poster URL, or "" when absent.
func PosterURL(r *MovieResult) string {
	if r == nil {
		return ""
	}
	return ImageURL(r.PosterPath, sizePoster)
}
