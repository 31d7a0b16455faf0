package models

// WorkerID identifies a specialist worker. The set is closed: routing
// decisions naming anything outside it are rejected during parsing, which
// makes the "unregistered worker" case an explicit branch rather than an
// undefined map key.
type WorkerID string

const (
	// WorkerSales handles sales inquiries, offers, and valuations.
	WorkerSales WorkerID = "sales"
	// WorkerRentals handles rental inquiries and viewing scheduling.
	WorkerRentals WorkerID = "rentals"
	// WorkerMaintenance handles maintenance reports and contractor dispatch.
	WorkerMaintenance WorkerID = "maintenance"
	// WorkerMarketing handles listing copy and campaign tasks.
	WorkerMarketing WorkerID = "marketing"
	// WorkerLeadGen handles lead qualification and follow-up.
	WorkerLeadGen WorkerID = "leadgen"
	// WorkerAdmin is the office admin: the classifier fallback target and the
	// generic handler for tasks whose assignee is not registered.
	WorkerAdmin WorkerID = "admin"
)

// Valid returns true if the worker identity is a known value.
func (w WorkerID) Valid() bool {
	switch w {
	case WorkerSales, WorkerRentals, WorkerMaintenance, WorkerMarketing,
		WorkerLeadGen, WorkerAdmin:
		return true
	default:
		return false
	}
}

// WorkerIDs lists all known worker identities.
var WorkerIDs = []WorkerID{
	WorkerSales, WorkerRentals, WorkerMaintenance,
	WorkerMarketing, WorkerLeadGen, WorkerAdmin,
}
