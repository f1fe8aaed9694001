package classify

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	fencedJSON     = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	fencedAny      = regexp.MustCompile("(?s)```(.*?)```")
	trailingCommas = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON coerces a model response into a JSON object string. Bounded
// repair only: strict parse, then extraction from a fenced code block, then
// brace wrapping and trailing-comma stripping. Anything still unparsable is
// an error; callers map it to their stage's default classification.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	candidate := text
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	} else if m := fencedAny.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}") {
			candidate = inner
		}
	}

	// Missing outer braces: wrap and hope the body was the object interior.
	if !strings.HasPrefix(candidate, "{") || !strings.HasSuffix(candidate, "}") {
		candidate = "{" + strings.Trim(strings.TrimSpace(candidate), ",") + "}"
	}

	if normalized, err := normalizeObject(candidate); err == nil {
		return normalized, nil
	}

	repaired := trailingCommas.ReplaceAllString(candidate, "$1")
	normalized, err := normalizeObject(repaired)
	if err != nil {
		return "", eris.Wrapf(err, "classify: response is not coercible to a JSON object: %.120s", text)
	}
	return normalized, nil
}

// normalizeObject validates candidate as a JSON object and re-marshals it
// into a canonical string.
func normalizeObject(candidate string) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return "", err
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
