// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/domain"
)

var ErrMalformed = errors.New("malformed verdict")

// StripFences removes a markdown code fence around a model response.
func StripFences(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```JSON")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

type rawVerdict struct {
	Importance   *string `json:"importance"`
	Reason       *string `json:"reason"`
	ShouldNotify *bool   `json:"should_notify"`
}

// ParseVerdict validates a classification response. Missing fields take
// their defaults, anything else that does not fit the schema is malformed.
func ParseVerdict(emailID, text string) (domain.TriageResult, error) {
	clean := StripFences(text)
	if !strings.HasPrefix(clean, "{") {
		return domain.TriageResult{}, fmt.Errorf("%w: response is not a json object", ErrMalformed)
	}

	raw := rawVerdict{}
	err := json.Unmarshal([]byte(clean), &raw)
	if err != nil {
		return domain.TriageResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	result := domain.TriageResult{
		EmailID:    emailID,
		Importance: domain.Low,
	}
	if raw.Importance != nil {
		importance, err := domain.ParseImportance(*raw.Importance)
		if err != nil {
			return domain.TriageResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		result.Importance = importance
	}
	if raw.Reason != nil {
		result.Reason = strings.TrimSpace(*raw.Reason)
	}
	if raw.ShouldNotify != nil {
		result.ShouldNotify = *raw.ShouldNotify
	}

	return result, nil
}
