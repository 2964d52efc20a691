package httpface

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goreliks/pdf-hunter-go/agents/extraction"
	"github.com/goreliks/pdf-hunter-go/agents/fileanalysis"
	"github.com/goreliks/pdf-hunter-go/agents/imageanalysis"
	"github.com/goreliks/pdf-hunter-go/agents/reportgen"
	"github.com/goreliks/pdf-hunter-go/agents/urlinvestigation"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/llmgw"
	"github.com/goreliks/pdf-hunter-go/orchestrator"
	"github.com/goreliks/pdf-hunter-go/pdftools"
	"github.com/goreliks/pdf-hunter-go/rules"
)

type fakeProvider struct {
	responses []*llm.CompletionResponse
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func gatewayWith(responses ...*llm.CompletionResponse) *llmgw.Client {
	return llmgw.New(llmgw.Config{Provider: &fakeProvider{responses: responses}})
}

type fakeRenderer struct{}

func (fakeRenderer) RenderPage(ctx context.Context, pdfPath string, pageIndex int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img, nil
}

func innocentDeps(t *testing.T) orchestrator.Deps {
	t.Helper()
	risk, err := rules.NewRiskProgram(rules.DefaultRiskExpression)
	require.NoError(t, err)

	return orchestrator.Deps{
		Extraction: extraction.Deps{Renderer: fakeRenderer{}},
		FileAnalysis: fileanalysis.Deps{
			Gateway: gatewayWith(&llm.CompletionResponse{Content: `{"decision":"innocent","reasoning":"no active content found"}`}),
			Scanners: fileanalysis.Scanners{
				PDFID:     pdftools.NewScanner("pdfid", "echo", "clean PDF, no red flags"),
				PDFParser: pdftools.NewScanner("pdf-parser", "echo", "1 obj"),
				PeePDF:    pdftools.NewScanner("peepdf", "echo", "no suspicious elements"),
			},
			Risk: risk,
		},
		ImageAnalysis: imageanalysis.Deps{
			Gateway: gatewayWith(&llm.CompletionResponse{
				Content: `{"findings":[],"deception_tactics":[],"benign_signals":["plain text page"],"page_verdict":"Benign","page_confidence":0.9}`,
			}, &llm.CompletionResponse{
				Content: `{"overall_verdict":"Benign","overall_confidence":0.9,"prioritized_urls":[]}`,
			}),
		},
		URLInvestigation: urlinvestigation.Deps{
			Gateway:  gatewayWith(),
			Browsers: nil,
		},
		ReportGen: reportgen.Deps{
			Gateway: gatewayWith(&llm.CompletionResponse{
				Content: `{"verdict":"Benign","confidence":0.95,"key_findings":["no active content"],"reasoning":"static and visual analysis found nothing malicious"}`,
			}, &llm.CompletionResponse{
				Content: "# Forensic Report\n\nBenign single-page document.",
			}),
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	return NewServer(Config{UploadDir: dir, OutputDirectory: dir}, innocentDeps(t))
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
}

func TestHandleAnalyzeRejectsMissingFile(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("pages_to_process", "1"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyzeRejectsInvalidPagesToProcess(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "sample.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n%%EOF"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("pages_to_process", "0"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatusUnknownIDReturns404(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/sessions/does-not-exist/status", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestAnalyzeReachesCompleteStatus drives a full upload through to a
// terminal status, exercising the upload-id registration, the
// OnSessionReady session-id alias, and the status endpoint's "session ID
// redirect" per spec.md §6.
func TestAnalyzeReachesCompleteStatus(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "sample.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n%%EOF"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("pages_to_process", "1"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var analyzeResp struct {
		UploadID string `json:"upload_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analyzeResp))
	require.NotEmpty(t, analyzeResp.UploadID)

	deadline := time.Now().Add(10 * time.Second)
	var status map[string]any
	for time.Now().Before(deadline) {
		statusReq := httptest.NewRequest(http.MethodGet, "/sessions/"+analyzeResp.UploadID+"/status", nil)
		statusRec := httptest.NewRecorder()
		srv.ServeHTTP(statusRec, statusReq)
		require.Equal(t, http.StatusOK, statusRec.Code)

		require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
		if s, _ := status["status"].(string); s == string(StatusComplete) || s == string(StatusFailed) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	require.Equal(t, string(StatusComplete), status["status"])
	require.Equal(t, analyzeResp.UploadID, status["upload_id"])
	require.NotEmpty(t, status["session_id"])
}
