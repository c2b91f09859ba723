package app

import (
	"context"
	"errors"
	"testing"

	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

type fakeCompleter struct {
	reply  string
	err    error
	apiKey string
	system string
	user   string
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error) {
	f.apiKey = apiKey
	f.system = systemPrompt
	f.user = userPrompt
	f.calls++
	return f.reply, f.err
}

type fakeGenerator struct {
	reply   string
	err     error
	context string
	message string
	calls   int
}

func (f *fakeGenerator) GenerateMessage(ctx context.Context, contextText, message string) (string, error) {
	f.context = contextText
	f.message = message
	f.calls++
	return f.reply, f.err
}

func newDispatcher(t *testing.T) (*ChatDispatcher, *store.MemoryStore, *fakeCompleter, *fakeGenerator) {
	t.Helper()
	memStore := store.NewMemoryStore()
	completer := &fakeCompleter{reply: "gpt reply"}
	generator := &fakeGenerator{reply: "bard reply"}
	return NewChatDispatcher(memStore, completer, generator), memStore, completer, generator
}

func TestDispatchBardCreatesHistoryAndTurns(t *testing.T) {
	dispatcher, memStore, _, generator := newDispatcher(t)

	result, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:  1,
		Message: "hi",
		AITool:  domain.ToolBard,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Reply != "bard reply" {
		t.Fatalf("reply = %q", result.Reply)
	}
	if generator.calls != 1 || generator.message != "hi" {
		t.Fatalf("generator not called as expected: %+v", generator)
	}
	if generator.context != "You are a helpful assistant." {
		t.Fatalf("unexpected context %q", generator.context)
	}
	if result.HistoryID == nil {
		t.Fatalf("expected a history id")
	}

	history, err := memStore.GetHistoryByID(*result.HistoryID)
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if history.Name != "hi" {
		t.Fatalf("history name = %q, want message text", history.Name)
	}
	if len(history.Chats) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history.Chats))
	}
	if history.Chats[0].IsBot || history.Chats[0].Message != "hi" {
		t.Fatalf("first turn should be the user message: %+v", history.Chats[0])
	}
	if !history.Chats[1].IsBot || history.Chats[1].Message != "bard reply" {
		t.Fatalf("second turn should be the bot reply: %+v", history.Chats[1])
	}
}

func TestDispatchDefaultsToChatCompletionWithUserKey(t *testing.T) {
	dispatcher, memStore, completer, generator := newDispatcher(t)
	if err := memStore.CreateSetting(&domain.Setting{
		ServiceName: domain.ServiceChatGPT,
		APIKey:      "user-key",
		UserID:      1,
	}); err != nil {
		t.Fatalf("create setting: %v", err)
	}

	result, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:  1,
		Message: "hello",
		AITool:  domain.ToolChatGPT,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Reply != "gpt reply" {
		t.Fatalf("reply = %q", result.Reply)
	}
	if completer.calls != 1 || completer.apiKey != "user-key" {
		t.Fatalf("expected per-user key, got %+v", completer)
	}
	if generator.calls != 0 {
		t.Fatalf("bard provider should not be called")
	}
}

func TestDispatchWithoutSettingPassesEmptyKey(t *testing.T) {
	dispatcher, _, completer, _ := newDispatcher(t)
	if _, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:  1,
		Message: "hello",
	}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	// the provider client falls back to its configured default key
	if completer.apiKey != "" {
		t.Fatalf("expected empty key, got %q", completer.apiKey)
	}
}

func TestDispatchReusesExistingHistory(t *testing.T) {
	dispatcher, memStore, _, _ := newDispatcher(t)
	history := domain.History{Name: "thread", UserID: 1}
	if err := memStore.CreateHistory(&history); err != nil {
		t.Fatalf("create history: %v", err)
	}

	result, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:    1,
		Message:   "follow-up",
		HistoryID: history.ID,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.HistoryID == nil || *result.HistoryID != history.ID {
		t.Fatalf("expected the existing history id, got %v", result.HistoryID)
	}

	loaded, _ := memStore.GetHistoryByID(history.ID)
	if len(loaded.Chats) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.Chats))
	}
	if !loaded.UpdatedAt.After(history.UpdatedAt) && !loaded.UpdatedAt.Equal(history.UpdatedAt) {
		t.Fatalf("expected update timestamp bumped")
	}
}

func TestDispatchMissingHistorySkipsPersistence(t *testing.T) {
	dispatcher, _, _, _ := newDispatcher(t)
	result, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:    1,
		Message:   "hi",
		HistoryID: 999,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.HistoryID != nil {
		t.Fatalf("expected no history id for a missing thread")
	}
}

func TestDispatchUpsertsExecutedPromptAcrossProviders(t *testing.T) {
	dispatcher, memStore, _, _ := newDispatcher(t)

	// first run through bard creates the company and the audit row
	if _, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:      1,
		Message:     "analyze acme",
		AITool:      domain.ToolBard,
		CompanyName: "Acme",
		PromptName:  "analysis",
	}); err != nil {
		t.Fatalf("bard dispatch: %v", err)
	}

	company, err := memStore.GetCompanyByName(1, "Acme")
	if err != nil {
		t.Fatalf("company should have been created: %v", err)
	}
	executed, err := memStore.GetExecutedPrompt(company.ID, "analysis")
	if err != nil {
		t.Fatalf("fetch executed prompt: %v", err)
	}
	if !executed.IsBard || executed.BardResponse != "bard reply" {
		t.Fatalf("bard fields not recorded: %+v", executed)
	}
	if executed.IsChatGPT || executed.ChatGPTResponse != "" {
		t.Fatalf("chat gpt fields should be empty: %+v", executed)
	}

	// second run through the default provider updates in place
	if _, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:      1,
		Message:     "analyze acme again",
		AITool:      domain.ToolChatGPT,
		CompanyName: "Acme",
		PromptName:  "analysis",
	}); err != nil {
		t.Fatalf("chat gpt dispatch: %v", err)
	}

	updated, err := memStore.GetExecutedPrompt(company.ID, "analysis")
	if err != nil {
		t.Fatalf("fetch executed prompt: %v", err)
	}
	if updated.ID != executed.ID {
		t.Fatalf("expected in-place update, got new row %d", updated.ID)
	}
	if !updated.IsBard || updated.BardResponse != "bard reply" {
		t.Fatalf("bard fields were erased: %+v", updated)
	}
	if !updated.IsChatGPT || updated.ChatGPTResponse != "gpt reply" {
		t.Fatalf("chat gpt fields not recorded: %+v", updated)
	}
	if updated.Prompt != "analyze acme again" {
		t.Fatalf("prompt text not refreshed: %q", updated.Prompt)
	}

	// only one company exists for the caller
	companies, _, err := memStore.ListCompanies(1, store.ListFilter{})
	if err != nil {
		t.Fatalf("list companies: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(companies))
	}
}

func TestDispatchRequiresMessage(t *testing.T) {
	dispatcher, _, _, _ := newDispatcher(t)
	if _, err := dispatcher.Dispatch(context.Background(), DispatchInput{UserID: 1}); !errors.Is(err, ErrMessageRequired) {
		t.Fatalf("expected ErrMessageRequired, got %v", err)
	}
}

func TestDispatchPropagatesProviderError(t *testing.T) {
	dispatcher, memStore, completer, _ := newDispatcher(t)
	completer.err = errors.New("provider down")
	completer.reply = ""

	if _, err := dispatcher.Dispatch(context.Background(), DispatchInput{
		UserID:  1,
		Message: "hi",
	}); err == nil {
		t.Fatalf("expected provider error")
	}

	// the freshly created thread carries no turns after the failure
	histories, _, err := memStore.ListHistories(1, store.ListFilter{})
	if err != nil {
		t.Fatalf("list histories: %v", err)
	}
	for _, h := range histories {
		if len(h.Chats) != 0 {
			t.Fatalf("expected no turns stored, got %d", len(h.Chats))
		}
	}
}
