package assessment

import (
	"encoding/json"
	"fmt"
)

const errNoDetailedResults = "No detailed results available"

// pronScores appears both nested under "PronunciationAssessment" (SDK style)
// and flattened onto the parent object (REST short-audio style).
type pronScores struct {
	AccuracyScore     *float64 `json:"AccuracyScore"`
	FluencyScore      *float64 `json:"FluencyScore"`
	CompletenessScore *float64 `json:"CompletenessScore"`
	PronScore         *float64 `json:"PronScore"`
	ErrorType         *string  `json:"ErrorType"`
}

type rawPhoneme struct {
	Phoneme string `json:"Phoneme"`
	pronScores
	PronunciationAssessment *pronScores `json:"PronunciationAssessment"`
}

type rawWord struct {
	Word     string `json:"Word"`
	Offset   int64  `json:"Offset"`
	Duration int64  `json:"Duration"`
	pronScores
	PronunciationAssessment *pronScores  `json:"PronunciationAssessment"`
	Phonemes                []rawPhoneme `json:"Phonemes"`
}

type rawHypothesis struct {
	Display string `json:"Display"`
	pronScores
	PronunciationAssessment *pronScores `json:"PronunciationAssessment"`
	Words                   []rawWord   `json:"Words"`
}

type rawResult struct {
	RecognitionStatus string          `json:"RecognitionStatus"`
	DisplayText       string          `json:"DisplayText"`
	NBest             []rawHypothesis `json:"NBest"`
}

// pick prefers the nested value and falls back to the flattened one.
func pick(nested *pronScores, flat pronScores) pronScores {
	if nested == nil {
		return flat
	}
	out := *nested
	if out.AccuracyScore == nil {
		out.AccuracyScore = flat.AccuracyScore
	}
	if out.FluencyScore == nil {
		out.FluencyScore = flat.FluencyScore
	}
	if out.CompletenessScore == nil {
		out.CompletenessScore = flat.CompletenessScore
	}
	if out.PronScore == nil {
		out.PronScore = flat.PronScore
	}
	if out.ErrorType == nil {
		out.ErrorType = flat.ErrorType
	}
	return out
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return round1(*p)
}

// ParseDetailed extracts the word, phoneme and document level view from a
// detailed recognition payload. It never fails: problems are reported through
// Debug.Error.
func ParseDetailed(raw []byte) *Debug {
	var res rawResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return &Debug{Error: fmt.Sprintf("Failed to parse Azure response: %s", err)}
	}
	if len(res.NBest) == 0 {
		return &Debug{Error: errNoDetailedResults}
	}
	best := res.NBest[0]

	words := make([]Word, 0, len(best.Words))
	for _, rw := range best.Words {
		ws := pick(rw.PronunciationAssessment, rw.pronScores)
		errType := "None"
		if ws.ErrorType != nil && *ws.ErrorType != "" {
			errType = *ws.ErrorType
		}

		phonemes := make([]Phoneme, 0, len(rw.Phonemes))
		for _, rp := range rw.Phonemes {
			ps := pick(rp.PronunciationAssessment, rp.pronScores)
			phonemes = append(phonemes, Phoneme{
				Phoneme:       rp.Phoneme,
				AccuracyScore: val(ps.AccuracyScore),
			})
		}

		words = append(words, Word{
			Word:          rw.Word,
			AccuracyScore: val(ws.AccuracyScore),
			ErrorType:     errType,
			Offset:        rw.Offset,
			Duration:      rw.Duration,
			Phonemes:      phonemes,
		})
	}

	doc := pick(best.PronunciationAssessment, best.pronScores)
	return &Debug{
		RecognizedText: best.Display,
		Words:          words,
		OverallMetrics: &OverallMetrics{
			Accuracy:      val(doc.AccuracyScore),
			Fluency:       val(doc.FluencyScore),
			Completeness:  val(doc.CompletenessScore),
			Pronunciation: val(doc.PronScore),
		},
	}
}
