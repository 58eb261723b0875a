package github

import (
	"unicode/utf8"

	"github.com/aezell/prview/internal/model"
)

// Classify decides how a repository file is shown. Files larger than maxSize
// are never decoded, nil data means the fetch failed and anything that is not
// valid UTF-8 is treated as binary.
func Classify(entry Entry, data []byte, maxSize int64) model.FileContent {
	fc := model.FileContent{Path: entry.Path, Size: entry.Size}
	switch {
	case maxSize > 0 && entry.Size > maxSize:
		fc.Kind = model.ContentOversized
	case data == nil:
		fc.Kind = model.ContentMissing
	case !utf8.Valid(data):
		fc.Kind = model.ContentBinary
		fc.Size = int64(len(data))
	default:
		fc.Kind = model.ContentText
		fc.Blob = model.NewBlob(entry.Path, data)
	}
	return fc
}
