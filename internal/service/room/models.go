package room

type Member struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsLeader    bool   `json:"is_leader"`
	IsModerator bool   `json:"is_mod"`
	IsOwner     bool   `json:"is_owner"`
}

type Video struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	IsCurrent bool   `json:"is_current"`
}

type PlayerState struct {
	Position float64 `json:"position"`
	Paused   bool    `json:"paused"`
}
