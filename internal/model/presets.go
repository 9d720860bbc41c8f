package model

// Built-in constraint presets, named for the load-out they model. All
// weights are in grams; all minimums are inclusive counts.
const (
	PresetCarryOnLuggage = "carry_on_luggage"
	PresetCheckedBag     = "checked_bag"
	PresetDroneDelivery  = "drone_delivery"
	PresetMedicalRelief  = "medical_relief"
	PresetHikingDayTrip  = "hiking_day_trip"
	PresetBugOutBag      = "bug_out_bag"
)

func intPtr(v int) *int { return &v }

// Preset returns the named built-in PackingConstraints, or false if the
// name is not one of the six known presets.
func Preset(name string) (PackingConstraints, bool) {
	switch name {
	case PresetCarryOnLuggage:
		return PackingConstraints{
			MaxWeightGrams:   7000,
			CategoryMinimums: map[string]int{CategoryClothing: 2},
		}, true
	case PresetCheckedBag:
		return PackingConstraints{
			MaxWeightGrams:   23000,
			CategoryMinimums: map[string]int{CategoryClothing: 3},
		}, true
	case PresetDroneDelivery:
		return PackingConstraints{
			MaxWeightGrams:   5000,
			CategoryMinimums: map[string]int{CategoryMedical: 2},
			TagMinimums:      map[string]int{"wound_care": 1, "warmth": 1},
			MaxPerItem:       intPtr(2),
		}, true
	case PresetMedicalRelief:
		return PackingConstraints{
			MaxWeightGrams: 30000,
			CategoryMinimums: map[string]int{
				CategoryMedical:  5,
				CategoryCamping:  2,
				CategoryClothing: 2,
			},
			TagMinimums: map[string]int{"wound_care": 2, "warmth": 2, "sterile": 1},
		}, true
	case PresetHikingDayTrip:
		return PackingConstraints{
			MaxWeightGrams:   10000,
			CategoryMinimums: map[string]int{CategoryMedical: 1},
			TagMinimums:      map[string]int{"first_aid": 1},
		}, true
	case PresetBugOutBag:
		return PackingConstraints{
			MaxWeightGrams: 15000,
			CategoryMinimums: map[string]int{
				CategoryMedical:  2,
				CategoryTech:     1,
				CategoryCamping:  2,
				CategoryClothing: 1,
			},
			TagMinimums: map[string]int{"warmth": 1, "wound_care": 1, "navigation": 1},
		}, true
	default:
		return PackingConstraints{}, false
	}
}
