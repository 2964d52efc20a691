// Package session derives a PDF Hunter run's identity, creates its on-disk
// artifact tree, and binds a structured JSONL log sink scoped to that tree.
// It is the direct analogue of Session Manager in SPEC_FULL §4.2.
package session

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
)

// Begin computes the PDF's SHA1/MD5, derives the session_id, creates the
// full directory tree under input.OutputDirectory (or the current working
// directory if unset), and returns the resulting Session.
//
// If input.SessionID is already set, begin_session is idempotent: it
// reuses the given id and only ensures the directories exist (P10), rather
// than deriving a fresh timestamp.
func Begin(input domainmodel.RunInput) (domainmodel.Session, error) {
	if err := input.Validate(); err != nil {
		return domainmodel.Session{}, corerr.New("PdfExtraction", "setup_session", corerr.KindInput, err.Error())
	}

	f, err := os.Open(input.FilePath)
	if err != nil {
		return domainmodel.Session{}, corerr.New("PdfExtraction", "setup_session", corerr.KindInput,
			fmt.Sprintf("cannot open %s", input.FilePath)).WithCause(err)
	}
	defer f.Close()

	sha1Sum, md5Sum, err := hashFile(f)
	if err != nil {
		return domainmodel.Session{}, corerr.New("PdfExtraction", "setup_session", corerr.KindInput,
			"failed to hash pdf").WithCause(err)
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = sha1Sum + "_" + domainmodel.Timestamp(time.Now())
	}

	outputRoot := input.OutputDirectory
	if outputRoot == "" {
		outputRoot = "."
	}
	outputDir := filepath.Join(outputRoot, sessionID)

	for _, sub := range domainmodel.AllSubdirs() {
		if err := os.MkdirAll(filepath.Join(outputDir, sub), 0o755); err != nil {
			return domainmodel.Session{}, corerr.New("PdfExtraction", "setup_session", corerr.KindPersistence,
				fmt.Sprintf("failed to create %s", sub)).WithCause(err)
		}
	}

	sess := domainmodel.Session{
		SessionID:  sessionID,
		OutputDir:  outputDir,
		PDFSHA1:    sha1Sum,
		PDFMD5:     md5Sum,
		SourcePath: input.FilePath,
	}
	if err := sess.Validate(); err != nil {
		return domainmodel.Session{}, corerr.New("PdfExtraction", "setup_session", corerr.KindInput, err.Error())
	}
	return sess, nil
}

func hashFile(r io.Reader) (sha1Hex, md5Hex string, err error) {
	sha1h := sha1.New()
	md5h := md5.New()
	if _, err := io.Copy(io.MultiWriter(sha1h, md5h), r); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(sha1h.Sum(nil)), hex.EncodeToString(md5h.Sum(nil)), nil
}

// ArtifactPath joins dir components onto the session's OutputDir, which is
// how the core keeps its artifacts under output_dir rather than /tmp (I7).
// elem is joined as given and not checked: a ".." component can lead
// outside OutputDir.
func ArtifactPath(sess domainmodel.Session, elem ...string) string {
	return filepath.Join(append([]string{sess.OutputDir}, elem...)...)
}

// LogPath returns the path to this session's structured log file.
func LogPath(sess domainmodel.Session) string {
	return ArtifactPath(sess, domainmodel.SubdirLogs, "session.jsonl")
}
