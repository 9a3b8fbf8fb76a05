package sessionstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenvoice/turnengine/internal/prompt"
	"github.com/lumenvoice/turnengine/pkg/models"
)

func TestState_AppendAndWindowOrdersOldestFirst(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{CustomerID: "cust-1"})
	for i := int64(1); i <= 5; i++ {
		s.AppendCleanedTurn(&models.CleanedTurn{Sequence: i, CleanedText: "turn"})
	}

	window := s.CleanedWindow(3)
	require.Len(t, window, 3)
	assert.Equal(t, int64(3), window[0].Sequence)
	assert.Equal(t, int64(5), window[2].Sequence)
}

func TestState_CleanedWindowLargerThanHistoryReturnsAll(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	s.AppendCleanedTurn(&models.CleanedTurn{Sequence: 1})
	assert.Len(t, s.CleanedWindow(10), 1)
}

func TestState_CleanedWindowEmptyHistory(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	assert.Nil(t, s.CleanedWindow(10))
}

func TestState_AppendCleanedTurnTruncatesOldest(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	s.maxHistory = 3
	for i := int64(1); i <= 5; i++ {
		s.AppendCleanedTurn(&models.CleanedTurn{Sequence: i})
	}
	cleaned, _ := s.HistoryLen()
	require.Equal(t, 3, cleaned)
	window := s.CleanedWindow(10)
	assert.Equal(t, int64(3), window[0].Sequence)
	assert.Equal(t, int64(5), window[2].Sequence)
}

func TestState_AppendFunctionCallTruncatesOldest(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	s.maxHistory = 2
	for i := 0; i < 4; i++ {
		s.AppendFunctionCall(&models.CalledFunction{FunctionName: "log_metric"})
	}
	_, functions := s.HistoryLen()
	assert.Equal(t, 2, functions)
}

func TestState_CustomerIsLiveReference(t *testing.T) {
	customer := &models.MirroredCustomer{CustomerID: "cust-1"}
	s := New("eval-1", customer)
	s.Customer().CompanyName = "Acme"
	assert.Equal(t, "Acme", customer.CompanyName)
}

func TestState_SetCustomerReplacesReference(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{CustomerID: "old"})
	replacement := &models.MirroredCustomer{CustomerID: "new"}
	s.SetCustomer(replacement)
	assert.Equal(t, "new", s.Customer().CustomerID)
}

func TestState_TemplatesRoundTrip(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	cleanerTmpl := &prompt.Template{Ref: "cleaner-v1", Body: "clean {raw_text}"}
	fnTmpl := &prompt.Template{Ref: "fn-v1", Body: "profile {customer_profile}"}
	s.SetTemplates(cleanerTmpl, fnTmpl)

	cleaner, functionCaller := s.Templates()
	assert.Same(t, cleanerTmpl, cleaner)
	assert.Same(t, fnTmpl, functionCaller)
}

func TestState_FindCleanedTurnByTurnID(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	s.AppendCleanedTurn(&models.CleanedTurn{ID: "ct-1", TurnID: "turn-1"})
	s.AppendCleanedTurn(&models.CleanedTurn{ID: "ct-2", TurnID: "turn-2"})

	found := s.FindCleanedTurn("turn-2")
	require.NotNil(t, found)
	assert.Equal(t, "ct-2", found.ID)

	assert.Nil(t, s.FindCleanedTurn("missing"))
}

func TestState_FunctionCallsForFiltersByCleanedTurn(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	s.AppendFunctionCall(&models.CalledFunction{CleanedTurnID: "ct-1", FunctionName: "log_metric"})
	s.AppendFunctionCall(&models.CalledFunction{CleanedTurnID: "ct-2", FunctionName: "record_business_insight"})
	s.AppendFunctionCall(&models.CalledFunction{CleanedTurnID: "ct-1", FunctionName: "initiate_demo_creation"})

	calls := s.FunctionCallsFor("ct-1")
	require.Len(t, calls, 2)
	assert.Equal(t, "log_metric", calls[0].FunctionName)
	assert.Equal(t, "initiate_demo_creation", calls[1].FunctionName)
}

func TestState_TouchUpdatesLastAccessTime(t *testing.T) {
	s := New("eval-1", &models.MirroredCustomer{})
	first := s.LastAccessTime()
	s.Touch()
	assert.False(t, s.LastAccessTime().Before(first))
}
