package scoring

import (
	"fmt"
	"strings"

	"lessonlens/api-gateway/internal/analysis"
	"lessonlens/api-gateway/models"
)

// interleaveLimit bounds the chronological excerpt embedded in the prompt;
// the full transcript is already present in the per-role sections.
const interleaveLimit = 20

const noUtterancesMarker = "(발화 없음)"
const noDialogueMarker = "(대화 없음)"

// systemPrompt instructs the model to answer in the rigidly labeled format
// the parser expects. Validation of the response is deliberately not done
// here: format drift is a parsing concern, not a network-call concern.
const systemPrompt = `당신은 한국어 교육 현장의 수업 대화를 분석하는 전문가입니다.
음성인식 결과에 일부 오류가 있을 수 있으니, 전체적인 맥락을 파악하여 분석해주세요.

다음 5개 항목을 0-20점으로 평가하고, 반드시 아래 형식으로만 응답해주세요:

학생 참여: [숫자]
개념 설명: [숫자]
피드백: [숫자]
체계성: [숫자]
상호작용: [숫자]

우수점:
- [구체적인 우수한 점 1]
- [구체적인 우수한 점 2]
- [구체적인 우수한 점 3]

우수점(영어):
- [Specific strength 1 in English]
- [Specific strength 2 in English]
- [Specific strength 3 in English]

개선점:
- [구체적인 개선할 점 1]
- [구체적인 개선할 점 2]
- [구체적인 개선할 점 3]

개선점(영어):
- [Specific improvement 1 in English]
- [Specific improvement 2 in English]
- [Specific improvement 3 in English]

하이라이트:
시간: [MM:SS 형식]
교사: [교사의 실제 발화 내용]
학생: [학생의 실제 발화 내용]
이유: [이 상호작용이 교육적으로 의미있는 구체적 이유]
이유(영어): [Educational significance in English]
유형: [개념이해/적극참여/긍정피드백 중 하나]

IMPORTANT: 하이라이트 정보는 반드시 '하이라이트:' 섹션 아래에만 작성하고, 개선점 섹션에는 포함하지 마세요.

평가 기준:
- 학생 참여: 학생들의 적극적 발언, 질문, 반응 정도
- 개념 설명: 교사의 명확하고 체계적인 개념 전달
- 피드백: 학생 답변에 대한 적절하고 건설적인 피드백
- 체계성: 수업의 논리적 흐름과 구조
- 상호작용: 교사-학생, 학생-학생 간 활발한 소통

점수 기준:
- 15-20점: 탁월한 성과
- 10-14점: 기본 요구사항 충족
- 5-9점: 개선 필요
- 0-4점: 심각한 문제

주의사항:
- 음성인식 오류로 인한 반복/오타는 무시하고 전체 맥락으로 판단
- 실제 교육 상황의 자연스러운 대화 특성을 고려
- 최소 2-3개의 의미있는 하이라이트 포함`

// BuildPrompt renders the user message: teacher-tagged utterances, student
// utterances attributed to their tags, a truncated chronological interleave,
// and summary turn statistics. locale is the speech-recognition language the
// transcript was extracted in.
func BuildPrompt(utterances []models.Utterance, locale string) string {
	var teacherLines, studentLines, flowLines []string
	teacherCount := 0

	for i, u := range utterances {
		stamp := analysis.FormatOffset(u.Start)
		if u.Speaker == analysis.PrimarySpeaker {
			teacherCount++
			teacherLines = append(teacherLines, fmt.Sprintf("[%s] %s", stamp, u.Text))
		} else {
			studentLines = append(studentLines, fmt.Sprintf("[%s] 화자 %s: %s", stamp, u.Speaker, u.Text))
		}
		if i < interleaveLimit {
			role := "학생"
			if u.Speaker == analysis.PrimarySpeaker {
				role = "교사"
			}
			flowLines = append(flowLines, fmt.Sprintf("[%s] %s: %s", stamp, role, u.Text))
		}
	}

	total := len(utterances)
	denominator := total
	if denominator == 0 {
		denominator = 1
	}
	teacherRatio := int(float64(teacherCount)/float64(denominator)*100 + 0.5)
	studentRatio := int(float64(total-teacherCount)/float64(denominator)*100 + 0.5)

	var b strings.Builder
	fmt.Fprintf(&b, "다음은 실제 수업 대화 내용입니다 (음성인식 언어: %s):\n\n", locale)
	fmt.Fprintf(&b, "=== 교사 발화 (화자 %s) ===\n%s\n\n", analysis.PrimarySpeaker, joinOrMarker(teacherLines, noUtterancesMarker))
	fmt.Fprintf(&b, "=== 학생 발화 (화자 %s, C 등) ===\n%s\n\n", analysis.SecondarySpeaker, joinOrMarker(studentLines, noUtterancesMarker))
	fmt.Fprintf(&b, "=== 전체 대화 흐름 (시간순, 처음 %d개) ===\n%s\n\n", interleaveLimit, joinOrMarker(flowLines, noDialogueMarker))
	fmt.Fprintf(&b, "총 발화 수: %d개\n", total)
	fmt.Fprintf(&b, "교사 발화 비율: %d%%\n", teacherRatio)
	fmt.Fprintf(&b, "학생 발화 비율: %d%%\n", studentRatio)
	return b.String()
}

func joinOrMarker(lines []string, marker string) string {
	if len(lines) == 0 {
		return marker
	}
	return strings.Join(lines, "\n")
}
