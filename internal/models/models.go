package models

// Room - переговорная комната из configs/rooms.yaml
type Room struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Site     string `yaml:"site"`
	Capacity int    `yaml:"capacity"`
}

type UserState struct {
	UserID      int64
	CurrentStep string
	TempData    map[string]interface{}
}
