package script

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// ParseError is returned when an LLM reply can't be decoded even after recovery.
// Raw keeps the untouched payload for diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse joke JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Жадный поиск от первой "{" до последней "}" (ответ может быть обёрнут в markdown)
var embeddedObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseScript decodes an LLM reply into a JokeScript.
// Exactly one recovery attempt is made: the outermost {...} substring.
func ParseScript(raw string) (*JokeScript, error) {
	var js JokeScript
	err := json.Unmarshal([]byte(raw), &js)
	if err != nil {
		match := embeddedObject.FindString(raw)
		if match == "" {
			return nil, &ParseError{Raw: raw, Err: err}
		}
		js = JokeScript{}
		if err := json.Unmarshal([]byte(match), &js); err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
	}

	if err := js.Validate(); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &js, nil
}
