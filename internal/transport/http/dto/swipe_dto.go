package dto

type SwipeRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Decision   string `json:"decision"`
}

type SwipeResponse struct {
	OK       bool   `json:"ok"`
	Decision string `json:"decision"`
	Category string `json:"category"`
	Matched  bool   `json:"matched"`
}

type UnswipeResponse struct {
	OK      bool `json:"ok"`
	Removed bool `json:"removed"`
}
