package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"lessonlens/api-gateway/models"
)

// The evaluation text is natural-language LLM output with soft formatting
// guarantees only. Parsing is best-effort and never fails: every field has a
// safe default, and a completely unparseable response yields a structurally
// valid empty result.

// Score labels as they appear in the evaluation text.
const (
	labelStudentParticipation = "학생 참여"
	labelConceptExplanation   = "개념 설명"
	labelFeedback             = "피드백"
	labelStructure            = "체계성"
	labelInteraction          = "상호작용"
)

// Section markers in their fixed expected order.
var sectionMarkers = []string{
	"우수점:",
	"우수점(영어):",
	"개선점:",
	"개선점(영어):",
	"하이라이트:",
}

const (
	sectionStrengths = iota
	sectionStrengthsEn
	sectionImprovements
	sectionImprovementsEn
	sectionHighlights
)

// Highlight field prefixes. The translated rationale prefix is listed before
// the native one so precedence is encoded once; reordering these breaks the
// 이유/이유(영어) distinction.
type highlightField int

const (
	fieldTimestamp highlightField = iota
	fieldTeacher
	fieldStudent
	fieldReasonEn
	fieldReason
	fieldType
)

var highlightPrefixes = []struct {
	prefix string
	field  highlightField
}{
	{"시간:", fieldTimestamp},
	{"교사:", fieldTeacher},
	{"학생:", fieldStudent},
	{"이유(영어):", fieldReasonEn},
	{"이유:", fieldReason},
	{"유형:", fieldType},
}

var (
	scoreLineRe   = regexp.MustCompile(`^([^:]+?)\s*:\s*(\d+)`)
	bulletStripRe = regexp.MustCompile(`^[- \d.]+`)
)

// classifyHighlightLine reports the field a line carries, with the prefix
// stripped from the returned value.
func classifyHighlightLine(line string) (highlightField, string, bool) {
	for _, p := range highlightPrefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.field, strings.TrimSpace(strings.TrimPrefix(line, p.prefix)), true
		}
	}
	return 0, "", false
}

func isHighlightLine(line string) bool {
	if strings.Contains(line, "하이라이트") {
		return true
	}
	_, _, ok := classifyHighlightLine(line)
	return ok
}

// highlightBuilder accumulates field lines into highlight records. A new
// timestamp line closes the record in progress; a record is only emitted
// once it holds both a timestamp and a recognized category.
type highlightBuilder struct {
	current models.Highlight
	out     []models.Highlight
}

func (b *highlightBuilder) feed(line string) {
	field, value, ok := classifyHighlightLine(line)
	if !ok {
		return
	}
	switch field {
	case fieldTimestamp:
		b.flush()
		b.current.Timestamp = value
	case fieldTeacher:
		b.current.TeacherText = trimQuotes(value)
	case fieldStudent:
		b.current.StudentText = trimQuotes(value)
	case fieldReasonEn:
		b.current.ReasonEn = value
	case fieldReason:
		b.current.Reason = value
	case fieldType:
		switch value {
		case models.HighlightConceptUnderstanding, models.HighlightActiveParticipation, models.HighlightPositiveFeedback:
			b.current.Type = value
		}
	}
}

func (b *highlightBuilder) flush() {
	if b.current.Timestamp != "" && b.current.Type != "" {
		b.out = append(b.out, b.current)
	}
	b.current = models.Highlight{}
}

func trimQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

// markerAfter returns the earliest section at or after current+1 whose marker
// text the line contains. Marker text seen out of order (the LLM echoing an
// earlier section's label inside an item) does not advance the section.
func markerAfter(current int, line string) (int, bool) {
	for idx := current + 1; idx < len(sectionMarkers); idx++ {
		if strings.Contains(line, sectionMarkers[idx]) {
			return idx, true
		}
	}
	return 0, false
}

func containsAnyMarker(line string) bool {
	for _, m := range sectionMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

func assignScore(scores *models.RubricScore, label string, value int) {
	switch label {
	case labelStudentParticipation:
		scores.StudentParticipation = value
	case labelConceptExplanation:
		scores.ConceptExplanation = value
	case labelFeedback:
		scores.Feedback = value
	case labelStructure:
		scores.Structure = value
	case labelInteraction:
		scores.Interaction = value
	}
}

// Parse converts the LLM's free-text evaluation into a typed result. Scores
// default to zero for absent labels, lists may have any length, and
// highlight records nested inside the improvements section are recovered and
// removed from the improvements list.
func Parse(text string) models.AnalysisResult {
	result := models.AnalysisResult{
		Strengths:      []string{},
		StrengthsEn:    []string{},
		Improvements:   []string{},
		ImprovementsEn: []string{},
		Highlights:     []models.Highlight{},
	}

	lines := strings.Split(text, "\n")

	// Scores are scanned across the whole text: unmatched labels are
	// ignored, so field lines such as "시간: 05" never collide.
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if m := scoreLineRe.FindStringSubmatch(line); m != nil {
			if value, err := strconv.Atoi(m[2]); err == nil {
				assignScore(&result.Scores, strings.TrimSpace(m[1]), value)
			}
		}
	}

	// Section content: every line between a marker and the next marker.
	section := -1
	var highlightLines []string
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if next, ok := markerAfter(section, line); ok {
			section = next
			continue
		}
		if containsAnyMarker(line) {
			continue // echoed label inside an item, belongs to no section
		}
		switch section {
		case sectionStrengths, sectionStrengthsEn, sectionImprovements, sectionImprovementsEn:
			item := strings.TrimSpace(bulletStripRe.ReplaceAllString(line, ""))
			if item == "" || strings.Contains(item, "점:") || strings.Contains(item, "영어") {
				continue
			}
			switch section {
			case sectionStrengths:
				result.Strengths = append(result.Strengths, item)
			case sectionStrengthsEn:
				result.StrengthsEn = append(result.StrengthsEn, item)
			case sectionImprovements:
				result.Improvements = append(result.Improvements, item)
			case sectionImprovementsEn:
				if !isHighlightLine(item) {
					result.ImprovementsEn = append(result.ImprovementsEn, item)
				}
			}
		case sectionHighlights:
			// Field lines are frequently bulleted or indented.
			item := strings.TrimSpace(bulletStripRe.ReplaceAllString(line, ""))
			if item != "" {
				highlightLines = append(highlightLines, item)
			}
		}
	}

	// The LLM sometimes nests highlight records inside the improvements
	// section despite instructions. Recover them first, and drop those
	// lines from the improvements list.
	var builder highlightBuilder
	kept := result.Improvements[:0]
	for _, item := range result.Improvements {
		if isHighlightLine(item) {
			builder.feed(item)
			continue
		}
		kept = append(kept, item)
	}
	result.Improvements = kept
	builder.flush()

	for _, line := range highlightLines {
		builder.feed(line)
	}
	builder.flush()
	result.Highlights = append(result.Highlights, builder.out...)

	return result
}
