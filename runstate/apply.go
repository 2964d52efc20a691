package runstate

import (
	"fmt"
	"reflect"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
)

// Partial is what a node returns: only the fields it actually produced are
// non-nil/non-empty. Singleton fields are pointers so "not set" is
// distinguishable from the type's zero value; additive fields are plain
// slices where a nil or empty slice means "nothing to contribute".
type Partial struct {
	SessionID *string             `runstate:"singleton"`
	Session   *domainmodel.Session `runstate:"singleton"`

	PagesToProcess *int `runstate:"singleton"`

	ExtractedImages []domainmodel.ExtractedImage `runstate:"additive"`
	ExtractedURLs   []domainmodel.ExtractedURL   `runstate:"additive"`

	Missions             []domainmodel.InvestigationMission     `runstate:"additive"`
	MissionReports       []domainmodel.MissionReport             `runstate:"additive"`
	MasterEvidenceGraph  *domainmodel.EvidenceGraph              `runstate:"singleton"`
	StaticAnalysisReport *domainmodel.StaticAnalysisFinalReport  `runstate:"singleton"`

	VisualAnalysisReport *domainmodel.ImageAnalysisReport `runstate:"singleton"`

	PrioritizedURLs    []domainmodel.PrioritizedURL   `runstate:"additive"`
	URLAnalysisResults []domainmodel.URLAnalysisResult `runstate:"additive"`

	FinalVerdict *domainmodel.FinalVerdict `runstate:"singleton"`
	FinalReport  *string                   `runstate:"singleton"`

	Errors []*corerr.Error `runstate:"additive"`
}

// Apply merges p into s according to each field's runstate struct tag,
// mirroring schema.FromType's reflection walk over json tags: additive
// fields are appended in arrival order, singleton fields are overwritten
// only when the partial actually set them. Field names must match between
// Partial and RunState; a mismatch is a programmer error and panics.
func (s *RunState) Apply(p *Partial) {
	if p == nil {
		return
	}

	pv := reflect.ValueOf(*p)
	pt := pv.Type()
	sv := reflect.ValueOf(s).Elem()

	for i := 0; i < pt.NumField(); i++ {
		field := pt.Field(i)
		tag := field.Tag.Get("runstate")
		if tag == "" {
			continue
		}

		srcField := pv.Field(i)
		dstField := sv.FieldByName(field.Name)
		if !dstField.IsValid() {
			panic(fmt.Sprintf("runstate: Partial field %q has no matching RunState field", field.Name))
		}

		switch tag {
		case "additive":
			applyAdditive(srcField, dstField)
		case "singleton":
			applySingleton(srcField, dstField)
		default:
			panic(fmt.Sprintf("runstate: unknown reducer tag %q on field %q", tag, field.Name))
		}
	}
}

// applyAdditive appends every element of a non-nil slice in src to dst,
// preserving arrival order. An empty or nil slice contributes nothing.
func applyAdditive(src, dst reflect.Value) {
	if src.Kind() != reflect.Slice || src.IsNil() || src.Len() == 0 {
		return
	}
	merged := reflect.AppendSlice(dst, src)
	dst.Set(merged)
}

// applySingleton overwrites dst with the value src points to, if set. When
// dst itself is a pointer type (e.g. *StaticAnalysisFinalReport), the
// pointer is copied directly rather than dereferenced, since both sides
// already represent "unset" as nil.
func applySingleton(src, dst reflect.Value) {
	if src.Kind() != reflect.Ptr || src.IsNil() {
		return
	}
	if dst.Kind() == reflect.Ptr {
		dst.Set(src)
		return
	}
	dst.Set(src.Elem())
}
