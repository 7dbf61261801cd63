package extractor

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/entrhq/autoanswer/pkg/page"
)

// maxMiningDepth bounds the walk over nested JSON values.
const maxMiningDepth = 3

// answerFields are checked, case-insensitively, at the top level of a JSON
// response before the nested walk.
var answerFields = []string{"correct_answer", "answer", "correctanswer", "result", "solution"}

// answerKeywords select nested JSON keys whose string values are answers.
var answerKeywords = []string{"answer", "correct", "solution", "result"}

// explanationFields are read from JSON responses alongside the answer.
var explanationFields = []string{"explanation", "analysis"}

var (
	answerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)正确答案[:：]\s*([A-D])`),
		regexp.MustCompile(`(?im)答案[:：]\s*([A-D])`),
		regexp.MustCompile(`(?im)"correct"[:：]\s*"([A-D])"`),
		regexp.MustCompile(`(?im)"answer"[:：]\s*"([^"]+)"`),
		regexp.MustCompile(`(?im)正确答案[:：]\s*(.+?)(?:\n|$)`),
	}

	explanationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)解析[:：]\s*(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?im)解释[:：]\s*(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?im)"explanation"[:：]\s*"([^"]+)"`),
	}
)

// Finding is an answer mined from a response.
type Finding struct {
	Answer      string
	Explanation string

	// Source is the response URL, or "page" for DOM text.
	Source string
}

// Mine searches captured responses in order, then DOM text blocks, and
// returns the first answer found.
func Mine(responses []page.Response, blocks []string) (Finding, bool) {
	for _, r := range responses {
		if f, ok := mineResponse(r); ok {
			return f, true
		}
	}
	for _, text := range blocks {
		if answer, ok := matchFirst(answerPatterns, text); ok {
			explanation, _ := matchFirst(explanationPatterns, text)
			return Finding{Answer: answer, Explanation: explanation, Source: "page"}, true
		}
	}
	return Finding{}, false
}

func mineResponse(r page.Response) (Finding, bool) {
	body := string(r.Body)
	if strings.TrimSpace(body) == "" {
		return Finding{}, false
	}

	if r.IsJSON() || gjson.Valid(body) {
		doc := gjson.Parse(body)
		if answer, ok := MineJSON(doc); ok {
			explanation := jsonExplanation(doc)
			if explanation == "" {
				explanation, _ = matchFirst(explanationPatterns, body)
			}
			return Finding{Answer: answer, Explanation: explanation, Source: r.URL}, true
		}
	}

	texts := []string{body}
	if r.IsHTML() {
		texts = []string{htmlText(body), body}
	}
	for _, text := range texts {
		if answer, ok := matchFirst(answerPatterns, text); ok {
			explanation, _ := matchFirst(explanationPatterns, text)
			return Finding{Answer: answer, Explanation: explanation, Source: r.URL}, true
		}
	}
	return Finding{}, false
}

// MineJSON looks for an answer in a JSON document: the well-known fields at
// the top level first, then any answer-like key in nested objects and
// arrays down to a fixed depth.
func MineJSON(doc gjson.Result) (string, bool) {
	if !doc.IsObject() {
		return "", false
	}
	for _, field := range answerFields {
		if v, ok := fieldFold(doc, field); ok && v.Type == gjson.String {
			if s := strings.TrimSpace(v.Str); s != "" {
				return s, true
			}
		}
	}
	return walkJSON(doc, maxMiningDepth)
}

// walkJSON visits the members of obj and recurses into nested objects and
// arrays of objects, one level less each time.
func walkJSON(obj gjson.Result, depth int) (string, bool) {
	if depth <= 0 {
		return "", false
	}

	var (
		answer string
		found  bool
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String && isAnswerKey(key.String()) {
			if s := strings.TrimSpace(value.Str); s != "" {
				answer, found = s, true
				return false
			}
		}
		switch {
		case value.IsObject():
			answer, found = walkJSON(value, depth-1)
		case value.IsArray():
			value.ForEach(func(_, item gjson.Result) bool {
				if item.IsObject() {
					answer, found = walkJSON(item, depth-1)
				}
				return !found
			})
		}
		return !found
	})
	return answer, found
}

func isAnswerKey(key string) bool {
	key = strings.ToLower(key)
	for _, kw := range answerKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// fieldFold returns the top-level member whose name equals field ignoring case.
func fieldFold(obj gjson.Result, field string) (gjson.Result, bool) {
	var (
		out   gjson.Result
		found bool
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		if strings.EqualFold(key.String(), field) {
			out, found = value, true
			return false
		}
		return true
	})
	return out, found
}

func jsonExplanation(doc gjson.Result) string {
	for _, field := range explanationFields {
		if v, ok := fieldFold(doc, field); ok && v.Type == gjson.String {
			if s := strings.TrimSpace(v.Str); s != "" {
				return s
			}
		}
	}
	return ""
}

func matchFirst(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if s := strings.TrimSpace(m[1]); s != "" {
				return s, true
			}
		}
	}
	return "", false
}
