package rules

import (
	"errors"
	"strings"

	"github.com/ivanchenka/lumo/internal/domain/enums"
)

var ErrUnknownDecision = errors.New("unknown swipe decision")

// ParseDecision normalizes client input ("like", "LIKE", " Dislike ") into
// a SwipeDecision.
func ParseDecision(input string) (enums.SwipeDecision, error) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case string(enums.DecisionLike):
		return enums.DecisionLike, nil
	case string(enums.DecisionDislike):
		return enums.DecisionDislike, nil
	default:
		return "", ErrUnknownDecision
	}
}

// PairCategory classifies the relation between two users from the first
// user's perspective. outbound is the caller's decision about the peer,
// inbound is the peer's decision about the caller; nil means no swipe
// recorded in that direction. Only LIKE upgrades the category: a DISLIKE
// behaves like an absent row here, it matters for feed eligibility only.
//
//	outbound | inbound | category
//	absent   | absent  | none
//	like     | ~like   | you
//	~like    | like    | they
//	like     | like    | both
func PairCategory(outbound, inbound *enums.SwipeDecision) enums.PairCategory {
	youLike := outbound != nil && *outbound == enums.DecisionLike
	peerLike := inbound != nil && *inbound == enums.DecisionLike

	switch {
	case youLike && peerLike:
		return enums.CategoryBoth
	case youLike:
		return enums.CategoryYou
	case peerLike:
		return enums.CategoryThey
	default:
		return enums.CategoryNone
	}
}

// ParseCategory validates a category value coming from transport.
func ParseCategory(input string) (enums.PairCategory, bool) {
	switch enums.PairCategory(strings.ToLower(strings.TrimSpace(input))) {
	case enums.CategoryNone:
		return enums.CategoryNone, true
	case enums.CategoryYou:
		return enums.CategoryYou, true
	case enums.CategoryThey:
		return enums.CategoryThey, true
	case enums.CategoryBoth:
		return enums.CategoryBoth, true
	default:
		return "", false
	}
}
