package enums

// PairCategory is the relation between two users as seen from one side.
type PairCategory string

const (
	CategoryNone PairCategory = "none"
	CategoryYou  PairCategory = "you"
	CategoryThey PairCategory = "they"
	CategoryBoth PairCategory = "both"
)
