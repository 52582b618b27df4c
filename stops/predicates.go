package stops

// Predicate selects stops from a Table.
type Predicate func(s *Stop) bool

// Thresholds of the transit-dependence rule.
const (
	TransitDependentRenterShare  = 0.4
	TransitDependentVehicleShare = 0.5
	TransitDependentPovertyShare = 0.2
)

// POI flag columns recognised by the default benchmark suite.
const (
	NearHospital  = "near_hospital"
	NearPark      = "near_park"
	NearGrocery   = "near_grocery"
	NearWorship   = "near_worship"
	NearBar       = "near_bar"
	NearStarbucks = "near_starbucks"
	NearMcDonalds = "near_mcdonalds"
)

// TransitDependent flags stops whose surroundings suggest riders without a
// car: many renters, few vehicles, high poverty.
func TransitDependent(s *Stop) bool {
	return s.RenterShare > TransitDependentRenterShare &&
		s.VehicleShare < TransitDependentVehicleShare &&
		s.PovertyShare > TransitDependentPovertyShare
}

// Near returns a predicate matching stops carrying flag.
func Near(flag string) Predicate {
	return func(s *Stop) bool { return s.Near[flag] }
}

// Any matches every stop.
func Any(*Stop) bool { return true }
