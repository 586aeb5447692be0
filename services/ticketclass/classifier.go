// Package ticketclass normalizes the free-text ticket descriptions that
// listing sites attach to prices ("Child 3D Reserved", "Senior Recliner")
// into a base patron type plus a set of amenity tags.
//
// Classification is pure and deterministic: rule tables in, tags out. A
// description that matches no base rule is reported as BaseUnknown, never
// guessed, the caller is responsible for queueing it for curation.
package ticketclass

import (
	"slices"
	"strings"
)

type BaseType string

const (
	BaseAdult    BaseType = "adult"
	BaseSenior   BaseType = "senior"
	BaseChild    BaseType = "child"
	BaseStudent  BaseType = "student"
	BaseMilitary BaseType = "military"
	BaseUnknown  BaseType = "unknown"
)

type Classification struct {
	Base BaseType
	// sorted, deduplicated
	Amenities []string
}

type Classifier struct {
	ignored map[string]struct{}
}

// NewClassifier builds a classifier that drops the given amenity tags from
// its output. Noise tokens vary by chain, so the ignore list is
// configuration rather than a rule-table change.
func NewClassifier(ignoredAmenities []string) Classifier {
	ignored := make(map[string]struct{}, len(ignoredAmenities))
	for _, a := range ignoredAmenities {
		ignored[strings.ToLower(a)] = struct{}{}
	}
	return Classifier{ignored: ignored}
}

func (c Classifier) Classify(raw string) Classification {
	base := BaseUnknown
	remainder := raw
	for _, rule := range baseRules {
		if loc := rule.pattern.FindStringIndex(raw); loc != nil {
			base = rule.base
			remainder = raw[:loc[0]] + raw[loc[1]:]
			break
		}
	}

	var amenities []string
	for _, rule := range amenityRules {
		if !rule.pattern.MatchString(remainder) {
			continue
		}
		if _, skip := c.ignored[rule.tag]; skip {
			continue
		}
		if !slices.Contains(amenities, rule.tag) {
			amenities = append(amenities, rule.tag)
		}
	}
	slices.Sort(amenities)

	return Classification{Base: base, Amenities: amenities}
}

// Classify runs with no ignored amenities.
func Classify(raw string) Classification {
	return Classifier{}.Classify(raw)
}
