package models

// Prize represents a single segment on the wheel.
// The position of a prize in the registry slice decides its angular slot.
type Prize struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Image     string `json:"img" yaml:"img"`             // asset path or data: URL
	Color     string `json:"color" yaml:"color"`         // segment fill
	TextColor string `json:"textColor" yaml:"textColor"` // label color
}

// WinnerRecord stores the outcome of a single spin,
// linking a member to the prize they landed on.
type WinnerRecord struct {
	Name  string `json:"name"`
	ID    string `json:"id"` // membership id
	Prize string `json:"prize"`
	Time  string `json:"time"`
}

// SessionUser is the member who submitted the entry form for the running spin.
type SessionUser struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// SpinState is the in-memory state of the wheel. It is never persisted.
type SpinState struct {
	Rotation float64 `json:"rotation"` // radians, only ever grows
	Velocity float64 `json:"velocity"` // degrees per tick
	Spinning bool    `json:"spinning"`
	Pending  int     `json:"pending"` // winning index once settled, -1 otherwise
}

// PrizeEdit is one admin change to the prize in slot Slot.
// Image is nil when the admin did not upload a replacement.
type PrizeEdit struct {
	Slot  int
	Name  string
	Image []byte
}

// DefaultPrizes returns the built-in seed prizes used when nothing is stored.
func DefaultPrizes() []Prize {
	return []Prize{
		{ID: 1, Name: "Premium Gift Box", Image: "assets/prize_gift_box.png", Color: "#FFD700", TextColor: "#002366"},
		{ID: 2, Name: "Luxury Watch", Image: "assets/prize_luxury_watch.png", Color: "#002366", TextColor: "#FFD700"},
		{ID: 3, Name: "5000tk Voucher", Image: "assets/prize_voucher.png", Color: "#FFD700", TextColor: "#002366"},
		{ID: 4, Name: "Smartphone", Image: "assets/prize_smartphone.png", Color: "#002366", TextColor: "#FFD700"},
	}
}
