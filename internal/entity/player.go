package entity

type Player struct {
	ID      string `json:"id"`
	MatchID string `json:"match_id,omitempty"`
}
