package bot

import (
	"sync"

	"callcentre-bot/internal/models"
)

type step string

const (
	stepNone step = "none"

	// Cash entry flow.
	stepCashCity    step = "cash_city"
	stepCashPurpose step = "cash_purpose"
	stepCashAmount  step = "cash_amount"
	stepCashNote    step = "cash_note"
	stepCashConfirm step = "cash_confirm"

	// Add-master flow.
	stepMasterName    step = "master_name"
	stepMasterCities  step = "master_cities"
	stepMasterChat    step = "master_chat"
	stepMasterTg      step = "master_tg"
	stepMasterConfirm step = "master_confirm"

	// Master edit, single-field steps.
	stepMasterEditTg   step = "master_edit_tg"
	stepMasterEditChat step = "master_edit_chat"

	// One-shot inputs.
	stepOrderSearch   step = "order_search"
	stepMasterSearch  step = "master_search"
	stepHistoryDate   step = "history_date"
	stepReportDate    step = "report_date"
	stepSettleAmounts step = "settle_amounts"
)

// cashDraft accumulates an income/expense entry across steps.
type cashDraft struct {
	Type    string
	City    string
	Purpose string
	Amount  float64
	Note    string
}

// masterDraft accumulates a new master record across steps.
type masterDraft struct {
	Name   string
	Cities []string
	ChatID *int64
	TgID   *int64
}

type userState struct {
	Step          step
	Cash          cashDraft
	Master        masterDraft
	EditMasterID  int64
	SettleOrderID int64
	// ReportKind is "city" or "masters" while a report date is pending.
	ReportKind string
	EmpPage    int
}

func (s *userState) hasCity(city string) bool {
	for _, c := range s.Master.Cities {
		if c == city {
			return true
		}
	}
	return false
}

func (s *userState) toggleCity(city string) {
	for i, c := range s.Master.Cities {
		if c == city {
			s.Master.Cities = append(s.Master.Cities[:i], s.Master.Cities[i+1:]...)
			return
		}
	}
	s.Master.Cities = append(s.Master.Cities, city)
}

func (s *userState) draftMaster() *models.Master {
	return &models.Master{
		Name:       s.Master.Name,
		Cities:     s.Master.Cities,
		StatusWork: models.MasterStatusActive,
		ChatID:     s.Master.ChatID,
		TgID:       s.Master.TgID,
	}
}

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*userState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*userState)}
}

func (s *stateStore) get(userID int64) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &userState{Step: stepNone}
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
