package models

// Status is an order lifecycle state. The values are the exact strings the
// CRM stores in orders.status_order, so they round-trip the database and the
// card headers unchanged.
type Status string

const (
	StatusWaiting    Status = "Ожидает"
	StatusAccepted   Status = "Принял"
	StatusEnRoute    Status = "В пути"
	StatusInProgress Status = "В работе"
	StatusDone       Status = "Готово"
	StatusRefused    Status = "Отказ"
	StatusModern     Status = "Модерн"
	StatusNotAnOrder Status = "Незаказ"
)

// transitions is the closed forward-transition table. Reject and re-assign
// reset an order to Waiting through dedicated operations, not through this
// table.
var transitions = map[Status][]Status{
	StatusWaiting:    {StatusAccepted},
	StatusAccepted:   {StatusEnRoute},
	StatusEnRoute:    {StatusInProgress},
	StatusInProgress: {StatusDone, StatusRefused, StatusModern, StatusNotAnOrder},
	StatusModern:     {StatusDone, StatusRefused},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusAccepted, StatusEnRoute, StatusInProgress,
		StatusDone, StatusRefused, StatusModern, StatusNotAnOrder:
		return true
	}
	return false
}

// Terminal reports whether s is final. A terminal order rejects every
// further transition.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusRefused || s == StatusNotAnOrder
}

// Closing reports whether entering s closes the order (stamps closing_data).
func (s Status) Closing() bool {
	return s.Terminal()
}

// CanTransition reports whether s -> to is in the transition table.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
