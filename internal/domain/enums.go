package domain

import (
	"path/filepath"
	"strings"
)

// FileType represents the accepted plan document formats.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeTIFF FileType = "tiff"
	FileTypeGIF  FileType = "gif"
	FileTypeBMP  FileType = "bmp"
	FileTypeWEBP FileType = "webp"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeJPG:  "image/jpeg",
	FileTypePNG:  "image/png",
	FileTypeTIFF: "image/tiff",
	FileTypeGIF:  "image/gif",
	FileTypeBMP:  "image/bmp",
	FileTypeWEBP: "image/webp",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/jpg":       FileTypeJPG,
	"image/png":       FileTypePNG,
	"image/tiff":      FileTypeTIFF,
	"image/gif":       FileTypeGIF,
	"image/bmp":       FileTypeBMP,
	"image/x-ms-bmp":  FileTypeBMP,
	"image/webp":      FileTypeWEBP,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"tif":  FileTypeTIFF,
	"tiff": FileTypeTIFF,
	"gif":  FileTypeGIF,
	"bmp":  FileTypeBMP,
	"webp": FileTypeWEBP,
}

// IsRaster reports whether the file type is a single raster image.
func (f FileType) IsRaster() bool {
	return f != FileTypePDF && f != ""
}

// ContentType returns the canonical MIME type for the file type.
func (f FileType) ContentType() string {
	return AllowedFileTypes[f]
}

// ResolveFileType picks the file type from the declared MIME type, falling back
// to the filename extension when the declared type is missing or generic.
func ResolveFileType(filename, declared string) (FileType, bool) {
	ct := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct != "" && ct != "application/octet-stream" {
		ft, ok := AllowedContentTypes[ct]
		return ft, ok
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ft, ok := AllowedExtensions[ext]
	return ft, ok
}

// LowConfidencePolicy decides what happens when every extracted segment is
// below the confidence threshold.
type LowConfidencePolicy string

const (
	LowConfidenceProceed LowConfidencePolicy = "proceed"
	LowConfidenceFail    LowConfidencePolicy = "fail"
)

// ArtifactKind identifies one of the four generated artifacts.
type ArtifactKind string

const (
	ArtifactSummary      ArtifactKind = "summary"
	ArtifactPullSheet    ArtifactKind = "pullsheet"
	ArtifactBOM          ArtifactKind = "bom"
	ArtifactVerification ArtifactKind = "verification"
	ArtifactWorkbook     ArtifactKind = "workbook"
)

// ArtifactKinds lists the artifact kinds in build order.
var ArtifactKinds = []ArtifactKind{
	ArtifactSummary,
	ArtifactPullSheet,
	ArtifactBOM,
	ArtifactVerification,
}

// Format is the rendering format of an artifact.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type of the rendering format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// PublishedFormats lists the renderings handed back to callers for each kind.
var PublishedFormats = map[ArtifactKind][]Format{
	ArtifactSummary:      {FormatPDF},
	ArtifactPullSheet:    {FormatPDF, FormatCSV},
	ArtifactBOM:          {FormatPDF, FormatCSV},
	ArtifactVerification: {FormatPDF},
	ArtifactWorkbook:     {FormatXLSX},
}
