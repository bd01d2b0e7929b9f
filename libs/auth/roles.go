package auth

// Roles carried in the token's "role" claim.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// Capability names checked at the gateway before a request is proxied.
type Capability string

const (
	CapBookAppointments   Capability = "appointments.book"
	CapManageAvailability Capability = "availability.manage"
	CapReviewDoctors      Capability = "doctors.review"
	CapManageUsers        Capability = "users.manage"
)

var roleCapabilities = map[string]map[Capability]bool{
	RolePatient: {
		CapBookAppointments: true,
	},
	RoleDoctor: {
		CapManageAvailability: true,
	},
	RoleAdmin: {
		CapBookAppointments:   true,
		CapManageAvailability: true,
		CapReviewDoctors:      true,
		CapManageUsers:        true,
	},
}

// HasCapability reports whether a role grants the given capability.
// Unknown roles grant nothing.
func HasCapability(role string, cap Capability) bool {
	return roleCapabilities[role][cap]
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}
