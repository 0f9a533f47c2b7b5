package model

// TimeSlots are the bookable half-hour slots: a morning window and an
// evening window.
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
	"17:00", "17:30", "18:00", "18:30", "19:00", "19:30",
}

func IsTimeSlot(s string) bool {
	for _, slot := range TimeSlots {
		if slot == s {
			return true
		}
	}
	return false
}
