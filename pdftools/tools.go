package pdftools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goreliks/pdf-hunter-go/schema"
	"github.com/goreliks/pdf-hunter-go/types"
)

// ParserTools bundles the pdf-parser-backed tool.Tool adapters offered to
// Agent B's ReAct investigators, per spec.md §4.6/§6. One instance is
// scoped to a single PDF path and session directory.
type ParserTools struct {
	ParserBinary string
	RTFBinary    string
	PDFPath      string
}

// ObjectContentTool implements the object_content(id, filter_stream)
// contract: streams over 100KB never decompress inline (see
// FetchObjectContent).
type ObjectContentTool struct {
	tools *ParserTools
}

func (p *ParserTools) ObjectContentTool() *ObjectContentTool { return &ObjectContentTool{tools: p} }

func (t *ObjectContentTool) Name() string        { return "object_content" }
func (t *ObjectContentTool) Version() string     { return "1.0.0" }
func (t *ObjectContentTool) Description() string {
	return "Returns the content of one PDF object. Streams larger than 100KB are never decompressed inline; use dump_object_stream instead."
}
func (t *ObjectContentTool) Tags() []string { return []string{"pdf", "static-analysis"} }
func (t *ObjectContentTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{
		"object_id":     schema.String(),
		"filter_stream": schema.Bool(),
	}, "object_id")
}
func (t *ObjectContentTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{
		"object_id": schema.String(),
		"content":   schema.String(),
		"truncated": schema.Bool(),
	}, "object_id", "truncated")
}
func (t *ObjectContentTool) Health(ctx context.Context) types.HealthStatus {
	return types.NewHealthyStatus("ok")
}
func (t *ObjectContentTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	objectID, _ := input["object_id"].(string)
	if objectID == "" {
		return nil, fmt.Errorf("object_id is required")
	}
	filterStream, _ := input["filter_stream"].(bool)

	result, err := FetchObjectContent(ctx, t.tools.ParserBinary, t.tools.PDFPath, objectID, filterStream)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"object_id":       result.ObjectID,
		"content":         result.Content,
		"truncated":       result.Truncated,
		"stream_len_hint": result.StreamLenHint,
		"guidance":        result.Guidance,
	}, nil
}

// DumpObjectStreamTool implements dump_object_stream(id, output_path).
type DumpObjectStreamTool struct {
	tools      *ParserTools
	sessionDir string
}

func (p *ParserTools) DumpObjectStreamTool(sessionDir string) *DumpObjectStreamTool {
	return &DumpObjectStreamTool{tools: p, sessionDir: sessionDir}
}

func (t *DumpObjectStreamTool) Name() string    { return "dump_object_stream" }
func (t *DumpObjectStreamTool) Version() string { return "1.0.0" }
func (t *DumpObjectStreamTool) Description() string {
	return "Writes a PDF object's decompressed stream to a file under the session's file_analysis/ directory."
}
func (t *DumpObjectStreamTool) Tags() []string { return []string{"pdf", "static-analysis"} }
func (t *DumpObjectStreamTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{
		"object_id":   schema.String(),
		"output_path": schema.String(),
	}, "object_id", "output_path")
}
func (t *DumpObjectStreamTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"written": schema.Bool()}, "written")
}
func (t *DumpObjectStreamTool) Health(ctx context.Context) types.HealthStatus {
	return types.NewHealthyStatus("ok")
}
func (t *DumpObjectStreamTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	objectID, _ := input["object_id"].(string)
	outputPath, _ := input["output_path"].(string)
	if objectID == "" || outputPath == "" {
		return nil, fmt.Errorf("object_id and output_path are required")
	}
	// A relative output_path is taken relative to the session's
	// file_analysis/ directory; any path that resolves outside it is refused.
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(t.sessionDir, outputPath)
	}
	if rel, err := filepath.Rel(t.sessionDir, outputPath); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("output_path must be under %s", t.sessionDir)
	}
	if err := DumpObjectStream(ctx, t.tools.ParserBinary, t.tools.PDFPath, objectID, outputPath); err != nil {
		return nil, err
	}
	return map[string]any{"written": true}, nil
}

// AnalyzeRTFTool wraps the RTF diagnostic helper. Its contract is
// read-only — it returns everything in one call to avoid the model
// looping on repeated RTF probes, per spec.md §6.
type AnalyzeRTFTool struct {
	tools *ParserTools
}

func (p *ParserTools) AnalyzeRTFTool() *AnalyzeRTFTool { return &AnalyzeRTFTool{tools: p} }

func (t *AnalyzeRTFTool) Name() string    { return "analyze_rtf_objects" }
func (t *AnalyzeRTFTool) Version() string { return "1.0.0" }
func (t *AnalyzeRTFTool) Description() string {
	return "Read-only; no extraction. Returns all RTF diagnostic information about embedded objects in one call."
}
func (t *AnalyzeRTFTool) Tags() []string { return []string{"pdf", "rtf", "static-analysis"} }
func (t *AnalyzeRTFTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{})
}
func (t *AnalyzeRTFTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"summary": schema.String()}, "summary")
}
func (t *AnalyzeRTFTool) Health(ctx context.Context) types.HealthStatus {
	return types.NewHealthyStatus("ok")
}
func (t *AnalyzeRTFTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	scanner := NewScanner("rtf-analyzer", t.tools.RTFBinary, t.tools.PDFPath)
	out, err := scanner.Run(ctx, t.tools.PDFPath)
	if err != nil {
		return nil, err
	}
	return map[string]any{"summary": out}, nil
}

// ReflectTool is the strategic no-op: it lets the model think out loud
// without mutating state, and it never counts against the action budget.
type ReflectTool struct{}

func (ReflectTool) Name() string    { return "reflect" }
func (ReflectTool) Version() string { return "1.0.0" }
func (ReflectTool) Description() string {
	return "Records a reasoning note without taking any action. Use this to think through next steps."
}
func (ReflectTool) Tags() []string { return []string{"meta"} }
func (ReflectTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"note": schema.String()}, "note")
}
func (ReflectTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"reflected": schema.String()}, "reflected")
}
func (ReflectTool) Health(ctx context.Context) types.HealthStatus {
	return types.NewHealthyStatus("ok")
}
func (ReflectTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	note, _ := input["note"].(string)
	return Reflect(note), nil
}
