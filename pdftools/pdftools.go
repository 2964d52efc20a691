// Package pdftools wraps the PDF static-analysis toolchain (pdfid,
// pdf-parser, peepdf, and a PyMuPDF-backed page renderer) as opaque
// command-line collaborators, per spec.md §1. Every wrapper shells out via
// the teacher's exec.Run and returns structured data; none of these
// binaries are implemented here — only the contract-compliant adapter
// around them.
package pdftools

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/goreliks/pdf-hunter-go/corerr"
	executil "github.com/goreliks/pdf-hunter-go/exec"
)

// maxInlineStreamBytes is the size above which object_content refuses to
// decompress a stream into the model's context, per spec.md §6's tool
// contract ("object_content must reject decompression of streams >100 KB").
const maxInlineStreamBytes = 100 * 1024

// RenderedPage is one rendered page, ready for perceptual hashing and
// filename derivation.
type RenderedPage struct {
	PageIndex int
	Image     image.Image
}

// Renderer renders PDF pages to images via an external CLI (a
// PyMuPDF-backed `pdf-render` binary, per SPEC_FULL.md §2.2). It is a
// thin, swappable seam: tests supply a Renderer that returns synthetic
// images without shelling out.
type Renderer interface {
	RenderPage(ctx context.Context, pdfPath string, pageIndex int) (image.Image, error)
}

// CLIRenderer shells out to the `pdf-render` binary, writing one PNG per
// invocation to a scratch file and decoding it back into memory.
type CLIRenderer struct {
	Binary  string
	WorkDir string
	Timeout time.Duration
}

// NewCLIRenderer returns a CLIRenderer defaulting to the `pdf-render`
// binary name and a 30s per-page timeout.
func NewCLIRenderer(workDir string) *CLIRenderer {
	return &CLIRenderer{Binary: "pdf-render", WorkDir: workDir, Timeout: 30 * time.Second}
}

func (r *CLIRenderer) RenderPage(ctx context.Context, pdfPath string, pageIndex int) (image.Image, error) {
	outPath := filepath.Join(r.WorkDir, fmt.Sprintf(".render_%d.png", pageIndex))
	defer os.Remove(outPath)

	result, err := executil.Run(ctx, executil.Config{
		Command: r.Binary,
		Args:    []string{"--input", pdfPath, "--page", fmt.Sprintf("%d", pageIndex), "--output", outPath},
		Timeout: r.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pdf-render invocation failed: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("pdf-render exited %d: %s", result.ExitCode, string(result.Stderr))
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open rendered page: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}
	return img, nil
}

// SavePage writes img as a PNG under dir, named `{pageIndex}_{phash}.png`
// per spec.md §4.5. The caller supplies phash (computed via imagephash).
func SavePage(dir string, pageIndex int, phash string, img image.Image) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d_%s.png", pageIndex, phash))
	f, err := os.Create(path)
	if err != nil {
		return "", corerr.New("PdfExtraction", "extract_pdf_images", corerr.KindPersistence,
			fmt.Sprintf("failed to create %s", path)).WithCause(err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", corerr.New("PdfExtraction", "extract_pdf_images", corerr.KindRender,
			"failed to encode page image").WithCause(err)
	}
	return path, nil
}

// ObjectSummary is one object_summary() entry from the parser wrapper's
// contract (spec.md §6).
type ObjectSummary struct {
	ObjectID string `json:"object_id"`
	Type     string `json:"type"`
	HasStream bool  `json:"has_stream"`
	StreamLen int    `json:"stream_len,omitempty"`
}

// Scanner wraps one of the three external PDF static scanners (pdfid,
// pdf-parser, peepdf). Run returns the scanner's raw stdout for the triage
// node to compose into its structural summary.
type Scanner struct {
	Name    string
	Binary  string
	Args    []string
	Timeout time.Duration
}

// NewScanner constructs a Scanner for one of the three external tools.
func NewScanner(name, binary string, args ...string) *Scanner {
	return &Scanner{Name: name, Binary: binary, Args: args, Timeout: 20 * time.Second}
}

// Run shells out to the scanner against pdfPath and returns its raw
// stdout. A non-zero exit is surfaced as corerr.KindTool, not fatal — the
// calling node logs it and continues with whichever scanners succeeded.
func (s *Scanner) Run(ctx context.Context, pdfPath string) (string, error) {
	result, err := executil.Run(ctx, executil.Config{
		Command: s.Binary,
		Args:    append(append([]string{}, s.Args...), pdfPath),
		Timeout: s.Timeout,
	})
	if err != nil {
		return "", corerr.New("FileAnalysis", "triage", corerr.KindTool,
			fmt.Sprintf("%s invocation failed", s.Name)).WithCause(err)
	}
	if result.ExitCode != 0 {
		return "", corerr.New("FileAnalysis", "triage", corerr.KindTool,
			fmt.Sprintf("%s exited %d: %s", s.Name, result.ExitCode, string(result.Stderr)))
	}
	return string(result.Stdout), nil
}

// ObjectContent implements the object_content(id, filter_stream) tool
// contract: streams over maxInlineStreamBytes are never decompressed
// inline. Instead the caller is told to use DumpObjectStream.
type ObjectContent struct {
	ObjectID      string `json:"object_id"`
	Content       string `json:"content,omitempty"`
	Truncated     bool   `json:"truncated"`
	StreamLenHint int    `json:"stream_len_hint,omitempty"`
	Guidance      string `json:"guidance,omitempty"`
}

// FetchObjectContent runs pdf-parser's object dump for one object id and
// applies the >100KB short-circuit.
func FetchObjectContent(ctx context.Context, parserBinary, pdfPath, objectID string, filterStream bool) (*ObjectContent, error) {
	args := []string{"-o", objectID}
	if filterStream {
		args = append(args, "-f")
	}
	result, err := executil.Run(ctx, executil.Config{
		Command: parserBinary,
		Args:    append(args, pdfPath),
		Timeout: 20 * time.Second,
	})
	if err != nil {
		return nil, corerr.New("FileAnalysis", "run_investigation", corerr.KindTool, "pdf-parser invocation failed").WithCause(err)
	}

	if len(result.Stdout) > maxInlineStreamBytes {
		return &ObjectContent{
			ObjectID:      objectID,
			Truncated:     true,
			StreamLenHint: len(result.Stdout),
			Guidance:      "stream exceeds 100KB; call dump_object_stream with an explicit output_path under file_analysis/ instead of requesting inline content",
		}, nil
	}
	return &ObjectContent{ObjectID: objectID, Content: string(result.Stdout)}, nil
}

// DumpObjectStream writes a large object's decompressed stream to
// outputPath, which must live under the session's file_analysis/
// directory (DumpObjectStreamTool resolves and checks the model's
// output_path against that directory before calling this). This is how the model is guided to inspect
// streams too large to fit inline, per spec.md §9's "large payloads"
// re-architecture note.
func DumpObjectStream(ctx context.Context, parserBinary, pdfPath, objectID, outputPath string) error {
	result, err := executil.Run(ctx, executil.Config{
		Command: parserBinary,
		Args:    []string{"-o", objectID, "-f", "-d", outputPath, pdfPath},
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return corerr.New("FileAnalysis", "run_investigation", corerr.KindTool, "dump_object_stream failed").WithCause(err)
	}
	if result.ExitCode != 0 {
		return corerr.New("FileAnalysis", "run_investigation", corerr.KindTool,
			fmt.Sprintf("dump_object_stream exited %d", result.ExitCode))
	}
	return nil
}

// DecodeHex decodes a hex-encoded blob and writes it to outputPath under
// the session directory, per spec.md §6 ("write their output to a
// provided output_directory under the session, not to a temp dir").
func DecodeHex(data []byte, outputPath string) error {
	decoded := make([]byte, hex.DecodedLen(len(data)))
	n, err := hex.Decode(decoded, data)
	if err != nil {
		return fmt.Errorf("invalid hex payload: %w", err)
	}
	return os.WriteFile(outputPath, decoded[:n], 0o644)
}

// DecodeBase64 decodes a base64 blob and writes it under the session
// directory, same contract as DecodeHex.
func DecodeBase64(encoded string, outputPath string) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid base64 payload: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// Reflect is the strategic no-op tool from spec.md §3/§4.4: it returns
// whatever note the model passes in, giving the model a way to think out
// loud without mutating any state or counting against the action budget.
func Reflect(note string) map[string]any {
	return map[string]any{"reflected": note}
}

