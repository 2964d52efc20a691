// Package extraction implements Agent A — PDF Extraction, the one
// deterministic, LLM-free agent in the pipeline (spec.md §4.5). Its four
// nodes are grounded on agent/builder.go's ExecuteFunc shape
// (ctx, harness-equivalent, task) => result, adapted here to the
// orchestrator's (ctx, RunState) => Partial node contract since these
// nodes need no LLM harness at all.
package extraction

import (
	"context"
	"fmt"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/imagephash"
	"github.com/goreliks/pdf-hunter-go/pdftools"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/session"
)

const agentName = "PdfExtraction"

// Deps bundles Agent A's external collaborators. Renderer is an interface
// so tests can substitute a synthetic renderer without shelling out.
type Deps struct {
	Renderer pdftools.Renderer
}

// SetupSession implements setup_session: derives the run's identity and
// creates its on-disk artifact tree. Every error is fatal, per spec.md
// §4.5: INPUT_ERROR for an invalid or unreadable input, PERSISTENCE_ERROR
// when the directory tree cannot be created.
func SetupSession(input domainmodel.RunInput) (*runstate.Partial, error) {
	sess, err := session.Begin(input)
	if err != nil {
		return nil, err
	}
	return &runstate.Partial{
		SessionID:      &sess.SessionID,
		Session:        &sess,
		PagesToProcess: &input.PagesToProcess,
	}, nil
}

// ExtractPDFImages implements extract_pdf_images(pages_to_process):
// renders pages [0, pagesToProcess) in ascending order, hashes each, and
// saves it under the session's pdf_extraction/ directory. A render
// failure on one page is logged and skipped (RENDER_ERROR, non-fatal);
// the run continues with the remaining pages. It also returns the
// successfully rendered pages themselves, since scan_qr_codes needs the
// same in-memory images and re-rendering them a second time would be
// wasteful and could disagree with what was actually saved to disk.
func ExtractPDFImages(ctx context.Context, deps Deps, sess domainmodel.Session, pdfPath string, pagesToProcess int) (*runstate.Partial, []pdftools.RenderedPage) {
	outDir := session.ArtifactPath(sess, domainmodel.SubdirPDFExtraction)

	partial := &runstate.Partial{}
	var rendered []pdftools.RenderedPage
	for page := 0; page < pagesToProcess; page++ {
		img, err := deps.Renderer.RenderPage(ctx, pdfPath, page)
		if err != nil {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "extract_pdf_images", corerr.KindRender,
				fmt.Sprintf("page %d render failed", page)).WithCause(err))
			continue
		}

		phash, err := imagephash.Compute(img)
		if err != nil {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "extract_pdf_images", corerr.KindRender,
				fmt.Sprintf("page %d phash failed", page)).WithCause(err))
			continue
		}

		savedPath, err := pdftools.SavePage(outDir, page, phash, img)
		if err != nil {
			partial.Errors = append(partial.Errors, err)
			continue
		}

		partial.ExtractedImages = append(partial.ExtractedImages, domainmodel.ExtractedImage{
			PageIndex: page,
			SavedPath: savedPath,
			PHash:     phash,
		})
		rendered = append(rendered, pdftools.RenderedPage{PageIndex: page, Image: img})
	}
	return partial, rendered
}

// FindEmbeddedURLs implements find_embedded_urls: merges link-annotation,
// visible-text, and XMP-metadata URL sources and deduplicates by
// (url, page_index, source). Extraction of each raw source is an external
// collaborator's job (the PDF parser); this node only merges and dedupes.
func FindEmbeddedURLs(annotations, textURLs, xmpURLs []pdftools.AnnotationURL) *runstate.Partial {
	urls := pdftools.ExtractURLs(annotations, textURLs, xmpURLs)
	return &runstate.Partial{ExtractedURLs: urls}
}

// ScanQRCodes implements scan_qr_codes: decodes any QR code present in
// each already-rendered page and appends a source=qr ExtractedURL for
// every hit. A page with no QR code contributes nothing; a decode error
// is recorded as RENDER_ERROR and the remaining pages are still scanned.
func ScanQRCodes(images []pdftools.RenderedPage) *runstate.Partial {
	partial := &runstate.Partial{}
	for _, rp := range images {
		found, err := pdftools.ScanQR(rp.Image, rp.PageIndex)
		if err != nil {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "scan_qr_codes", corerr.KindRender,
				fmt.Sprintf("page %d qr scan failed", rp.PageIndex)).WithCause(err))
			continue
		}
		if found != nil {
			partial.ExtractedURLs = append(partial.ExtractedURLs, *found)
		}
	}
	return partial
}
