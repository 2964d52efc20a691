package pdftools

import (
	"os"
	"regexp"
)

var urlPattern = regexp.MustCompile(`https?://[^\s()<>\[\]'"]+`)
var uriAnnotationPattern = regexp.MustCompile(`/URI\s*\(([^)]+)\)`)
var xmpPacketPattern = regexp.MustCompile(`(?s)<\?xpacket begin.*?<\?xpacket end[^?]*\?>`)

// ExtractRawURLSources reads pdfPath and splits every URL-looking string
// it contains into the three raw sources ExtractURLs expects: /URI
// annotation dictionaries, the embedded XMP metadata packet, and anything
// else found in the raw byte stream (a pragmatic stand-in for "visible
// text", since this module has no PDF content-stream layout engine).
// page_index is always 0: without an object-to-page map, per-page
// attribution of a raw byte offset is not meaningful, so every raw hit is
// reported against page 0 and left for a human or an LLM investigator to
// confirm per spec.md's agent-driven triage model.
func ExtractRawURLSources(pdfPath string) (annotations, textURLs, xmpURLs []AnnotationURL, err error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, nil, nil, err
	}

	annotationMatches := make(map[string]bool)
	for _, m := range uriAnnotationPattern.FindAllSubmatch(data, -1) {
		url := string(m[1])
		annotationMatches[url] = true
		annotations = append(annotations, AnnotationURL{URL: url})
	}

	xmpMatches := make(map[string]bool)
	if packet := xmpPacketPattern.Find(data); packet != nil {
		for _, m := range urlPattern.FindAll(packet, -1) {
			xmpMatches[string(m)] = true
			xmpURLs = append(xmpURLs, AnnotationURL{URL: string(m)})
		}
	}

	for _, m := range urlPattern.FindAll(data, -1) {
		url := string(m)
		if annotationMatches[url] || xmpMatches[url] {
			continue
		}
		textURLs = append(textURLs, AnnotationURL{URL: url})
	}

	return annotations, textURLs, xmpURLs, nil
}
