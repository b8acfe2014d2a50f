package data

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	objectRe = regexp.MustCompile(`(?s)\{[^{}]*\}`)
	fenceRe  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// SanitizeAnswer returns the first complete JSON object found in an LLM
// answer. Braces inside string values are allowed.
func SanitizeAnswer(ans string) (string, error) {
	s := StripFences(ans)
	for i := strings.Index(s, "{"); i >= 0; {
		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&obj); err == nil {
			return string(obj), nil
		}
		next := strings.Index(s[i+1:], "{")
		if next < 0 {
			break
		}
		i += next + 1
	}
	// last resort for replies that are not valid JSON as a whole
	match := objectRe.FindString(s)
	if match == "" {
		return "", errors.New("error sanitizing answer")
	}
	return match, nil
}

// StripFences removes a surrounding markdown code fence such as ```sql ... ```.
func StripFences(ans string) string {
	ans = strings.TrimSpace(ans)
	if m := fenceRe.FindStringSubmatch(ans); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ans
}

// FirstWord lowercases the answer and returns its first word with quotes,
// backticks and trailing punctuation removed.
func FirstWord(ans string) string {
	fields := strings.Fields(strings.ToLower(StripFences(ans)))
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "\"'`*.,:;!?()[]")
}
