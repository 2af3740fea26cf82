package models

import "time"

// Variant names the resolution an Image was derived at. See the
// Variant Generator's catalogue for max dimensions per name.
type Variant string

const (
	VariantOriginal Variant = "original"
	VariantSmall    Variant = "small"
	VariantMedium   Variant = "medium"
	VariantLarge    Variant = "large"
)

// VariantMaxDimensions maps a variant to its maximum long-edge size in
// pixels. VariantOriginal has no cap — it passes through unscaled.
var VariantMaxDimensions = map[Variant]int{
	VariantSmall:  256,
	VariantMedium: 512,
	VariantLarge:  1024,
}

// GeneratedVariants lists the variants the Variant Generator produces
// from a completed Upload, in the order they should be attempted.
var GeneratedVariants = []Variant{VariantOriginal, VariantSmall, VariantMedium, VariantLarge}

// Image is one variant (original or resized) derived from an Upload.
// (UploadID, Variant) is unique; an Image cannot outlive its Upload.
type Image struct {
	ID         string    `db:"id" json:"id"`
	UploadID   string    `db:"upload_id" json:"upload_id"`
	Variant    Variant   `db:"variant" json:"variant"`
	Path       string    `db:"path" json:"path"`
	Width      int       `db:"width" json:"width"`
	Height     int       `db:"height" json:"height"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SupportedImageMimeTypes are the MIME types the Variant Generator can
// decode and resize.
var SupportedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}
