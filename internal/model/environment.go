package model

// Environment categories.  The set is closed; anything else is rejected
// at the handler layer before it reaches the store.
const (
	CategoryClassroom  = "CLASSROOM"
	CategoryLab        = "LAB"
	CategoryWorkshop   = "WORKSHOP"
	CategoryAuditorium = "AUDITORIUM"
	CategoryLibrary    = "LIBRARY"
	CategoryMeeting    = "MEETING"
	CategoryFabLab     = "FABLAB"
)

// ValidCategory reports whether s is one of the known environment categories.
func ValidCategory(s string) bool {
	switch s {
	case CategoryClassroom, CategoryLab, CategoryWorkshop, CategoryAuditorium,
		CategoryLibrary, CategoryMeeting, CategoryFabLab:
		return true
	}
	return false
}

// Environment is a reservable room or lab as stored in the
// `environments` table.
//
// Fields:
//  ID           – primary key (auto increment).
//  Name         – display name of the room/lab.
//  Capacity     – number of people the environment holds (positive).
//  Description  – free text.
//  Category     – one of the Category* constants.
//  HasScreen    – display screen amenity flag.
//  HasProjector – projector amenity flag.
//  HasAirCon    – air conditioning amenity flag.
//  IsActive     – whether the environment can currently be booked.
type Environment struct {
	ID           uint64 // environments.id
	Name         string // environments.name
	Capacity     uint32 // environments.capacity
	Description  string // environments.description
	Category     string // environments.category
	HasScreen    bool   // environments.has_screen
	HasProjector bool   // environments.has_projector
	HasAirCon    bool   // environments.has_air_con
	IsActive     bool   // environments.is_active
}
