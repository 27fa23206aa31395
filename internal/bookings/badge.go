package bookings

// Badge is the display treatment of a booking status.
type Badge struct {
	Tone  string `json:"tone"`
	Label string `json:"label"`
}

var badges = map[string]Badge{
	"confirmed": {Tone: "success", Label: "Confirmed"},
	"pending":   {Tone: "warning", Label: "Pending"},
	"completed": {Tone: "primary", Label: "Completed"},
	"cancelled": {Tone: "danger", Label: "Cancelled"},
}

// BadgeFor maps a normalized status to its badge. Unknown statuses get a
// neutral badge.
func BadgeFor(status string) Badge {
	if b, ok := badges[status]; ok {
		return b
	}
	return Badge{Tone: "secondary", Label: "Unknown"}
}
