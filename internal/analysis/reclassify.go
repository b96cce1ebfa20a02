package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"lessonlens/api-gateway/models"
)

// Diarization assigns arbitrary voice identities. Downstream scoring needs a
// consistent teacher/student partition, so the transcript is post-processed
// with lexical heuristics: the teacher's voice is pinned to PrimarySpeaker
// and student-sounding turns on that tag are pushed to SecondarySpeaker.
const (
	PrimarySpeaker   = "A"
	SecondarySpeaker = "B"
)

type role int

const (
	roleNone role = iota
	roleTeacher
	roleStudent
)

// roleRule pairs a named predicate with the role it votes for. Rules are
// evaluated in order and the first match wins, so teacher indicators take
// precedence over student indicators.
type roleRule struct {
	name  string
	role  role
	match func(text string) bool
}

var (
	teacherOpenerRe   = regexp.MustCompile(`^(좋아요|잘했어|맞아요|그렇죠|네|자|이제|그럼|봅시다)`)
	teacherVocabRe    = regexp.MustCompile(`선생님|교사|설명|문제|질문`)
	teacherQuestionRe = regexp.MustCompile(`(어떻게|무엇을|왜|어디서).*(할까요|인가요|일까요)`)
	teacherAnswerRe   = regexp.MustCompile(`답은|정답|계산|해결`)

	studentOpenerRe = regexp.MustCompile(`^(네|아니요|모르겠어요|잘 모르겠어요)`)
	studentHelpRe   = regexp.MustCompile(`선생님|질문있어요|도와주세요`)
	studentNumberRe = regexp.MustCompile(`^[0-9]+$`)
	studentStruggRe = regexp.MustCompile(`이해|못해|어려워|쉬워`)

	numericOnlyRe        = regexp.MustCompile(`^[0-9\s]+$`)
	numericExclamatoryRe = regexp.MustCompile(`^[0-9\s!?]+$`)
)

var roleRules = []roleRule{
	{"teacher-opener", roleTeacher, teacherOpenerRe.MatchString},
	{"teacher-vocabulary", roleTeacher, teacherVocabRe.MatchString},
	{"teacher-question-form", roleTeacher, teacherQuestionRe.MatchString},
	{"teacher-answer-talk", roleTeacher, teacherAnswerRe.MatchString},
	{"teacher-long-turn", roleTeacher, func(text string) bool {
		return utf8.RuneCountInString(text) > 80 && !numericOnlyRe.MatchString(text)
	}},
	{"student-opener", roleStudent, studentOpenerRe.MatchString},
	{"student-help-request", roleStudent, studentHelpRe.MatchString},
	{"student-bare-number", roleStudent, studentNumberRe.MatchString},
	{"student-struggle-talk", roleStudent, studentStruggRe.MatchString},
	{"student-short-reaction", roleStudent, func(text string) bool {
		return utf8.RuneCountInString(text) < 30 && numericExclamatoryRe.MatchString(text)
	}},
}

func classifyRole(text string) role {
	for _, rule := range roleRules {
		if rule.match(text) {
			return rule.role
		}
	}
	return roleNone
}

// Reclassify corrects diarization speaker tags using lexical patterns. It is
// a pure function: the returned slice has the same length and order as the
// input and only speaker tags may differ. A teacher match on a non-primary
// tag promotes it; a student match on the primary tag demotes it; a teacher
// match already on the primary tag is left alone even when student patterns
// would also fire.
func Reclassify(utterances []models.Utterance) []models.Utterance {
	out := make([]models.Utterance, len(utterances))
	copy(out, utterances)
	for i := range out {
		switch classifyRole(strings.TrimSpace(out[i].Text)) {
		case roleTeacher:
			if out[i].Speaker != PrimarySpeaker {
				out[i].Speaker = PrimarySpeaker
			}
		case roleStudent:
			if out[i].Speaker == PrimarySpeaker {
				out[i].Speaker = SecondarySpeaker
			}
		}
	}
	return out
}
