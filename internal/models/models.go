// Package models holds the domain types shared by the bot, the lifecycle
// controller and the data access layer.
package models

import "time"

// Master employment statuses as stored in master.status_work.
const (
	MasterStatusActive = "работает"
	MasterStatusFired  = "уволен"
)

// Cash entry types as stored in cash.name.
const (
	CashIncome  = "приход"
	CashExpense = "расход"
)

// Card audiences for the persisted order card pointers.
const (
	AudienceDirector = "director"
	AudienceMaster   = "master"
)

// Order is a single repair job request (заявка).
type Order struct {
	ID            int64
	RK            string
	City          string
	AvitoName     string
	Phone         string
	TypeOrder     string
	ClientName    string
	Address       string
	DateMeeting   time.Time
	TypeEquipment string
	Problem       string
	Status        Status
	MasterID      *int64
	Result        *float64
	Expenditure   *float64
	Clean         *float64
	MasterChange  *float64
	CreatedAt     time.Time
	ClosedAt      *time.Time
}

// Master is a field technician scoped to one or more cities.
type Master struct {
	ID         int64
	Name       string
	Cities     []string
	StatusWork string
	ChatID     *int64
	TgID       *int64
	Note       string
	CreatedAt  time.Time
}

// Active reports whether the master is currently employed.
func (m *Master) Active() bool {
	return m.StatusWork == MasterStatusActive
}

// WorksIn reports whether city is in the master's city set.
func (m *Master) WorksIn(city string) bool {
	for _, c := range m.Cities {
		if c == city {
			return true
		}
	}
	return false
}

// Director is a manager scoped to one or more cities.
type Director struct {
	ID     int64
	Name   string
	Login  string
	Cities []string
	TgID   *int64
}

// Covers reports whether city is within the director's authority.
func (d *Director) Covers(city string) bool {
	for _, c := range d.Cities {
		if c == city {
			return true
		}
	}
	return false
}

// CashEntry is a single ledger line. Append-only, never mutated.
type CashEntry struct {
	ID             int64
	Type           string
	Amount         float64
	City           string
	PaymentPurpose string
	Note           string
	CreatedBy      string
	CreatedAt      time.Time
}

// CardRef points at the active order card message for one audience, so the
// previous card can be retracted when the order moves on.
type CardRef struct {
	OrderID   int64
	Audience  string
	ChatID    int64
	MessageID int
}

// CitiesOverlap reports whether the two city sets intersect.
func CitiesOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
