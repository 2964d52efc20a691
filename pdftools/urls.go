package pdftools

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/goreliks/pdf-hunter-go/domainmodel"
)

// AnnotationURL is one URL found in a link annotation, with its page — the
// raw shape the (external) PDF parser returns
// before ExtractURLs turns it into a domainmodel.ExtractedURL.
type AnnotationURL struct {
	URL       string
	PageIndex int
}

// ExtractURLs merges link-annotation, visible-text, and XMP-metadata URL
// sources into a single deduplicated list, per spec.md §4.5
// find_embedded_urls ("deduplicates by (url, page_index, source)").
func ExtractURLs(annotations []AnnotationURL, textURLs []AnnotationURL, xmpURLs []AnnotationURL) []domainmodel.ExtractedURL {
	all := make([]domainmodel.ExtractedURL, 0, len(annotations)+len(textURLs)+len(xmpURLs))
	for _, a := range annotations {
		all = append(all, domainmodel.ExtractedURL{URL: a.URL, PageIndex: a.PageIndex, Source: domainmodel.URLSourceAnnotation})
	}
	for _, t := range textURLs {
		all = append(all, domainmodel.ExtractedURL{URL: t.URL, PageIndex: t.PageIndex, Source: domainmodel.URLSourceText})
	}
	for _, x := range xmpURLs {
		all = append(all, domainmodel.ExtractedURL{URL: x.URL, PageIndex: x.PageIndex, Source: domainmodel.URLSourceXMP})
	}
	return domainmodel.DedupeExtractedURLs(all)
}

// ScanQR decodes any QR code present in img and, if found, returns the
// decoded URL as a domainmodel.ExtractedURL with Source=qr, per spec.md
// §4.5 scan_qr_codes. Returns (nil, nil) when no QR code is present —
// that is not an error, just an empty page.
func ScanQR(img image.Image, pageIndex int) (*domainmodel.ExtractedURL, error) {
	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}

	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bitmap, nil)
	if err != nil {
		// gozxing.NotFoundException is the expected "no QR code present"
		// outcome; treat it the same as any other decode failure here —
		// the caller distinguishes "no result" from "error" by nil check.
		return nil, nil
	}

	return &domainmodel.ExtractedURL{
		URL:       result.GetText(),
		PageIndex: pageIndex,
		Source:    domainmodel.URLSourceQR,
	}, nil
}
