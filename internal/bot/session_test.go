package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateStoreGetCreates(t *testing.T) {
	s := newStateStore()
	st := s.get(42)
	assert.Equal(t, stepNone, st.Step)

	st.Step = stepCashAmount
	assert.Equal(t, stepCashAmount, s.get(42).Step)
}

func TestStateStoreResetDropsFlow(t *testing.T) {
	s := newStateStore()
	st := s.get(42)
	st.Step = stepMasterConfirm
	st.Master.Name = "Сергей"

	s.reset(42)

	fresh := s.get(42)
	assert.Equal(t, stepNone, fresh.Step)
	assert.Empty(t, fresh.Master.Name)
}

func TestToggleCity(t *testing.T) {
	st := &userState{}
	st.toggleCity("Москва")
	st.toggleCity("Казань")
	assert.Equal(t, []string{"Москва", "Казань"}, st.Master.Cities)
	assert.True(t, st.hasCity("Казань"))

	st.toggleCity("Москва")
	assert.Equal(t, []string{"Казань"}, st.Master.Cities)
	assert.False(t, st.hasCity("Москва"))
}
