package dto

type FeedItem struct {
	UserID          int64    `json:"user_id"`
	DisplayName     string   `json:"display_name"`
	AvatarURL       *string  `json:"avatar_url,omitempty"`
	Age             int      `json:"age"`
	SharedInterests int      `json:"shared_interests"`
	DistanceKM      *float64 `json:"distance_km,omitempty"`
}

type FeedResponse struct {
	Items  []FeedItem `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
