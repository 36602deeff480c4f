package enums

type SwipeDecision string

const (
	DecisionLike    SwipeDecision = "LIKE"
	DecisionDislike SwipeDecision = "DISLIKE"
)
