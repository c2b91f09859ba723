package store

import (
	"testing"
	"time"

	"promptdesk/pkg/domain"
)

func seedStoreUser(t *testing.T, m *MemoryStore, email string) domain.User {
	t.Helper()
	u := domain.User{FirstName: "Seed", Email: email, Role: domain.RoleUser, PasswordHash: "x"}
	if err := m.CreateUser(&u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	m := NewMemoryStore()
	seedStoreUser(t, m, "dup@example.com")
	u := domain.User{Email: "dup@example.com", PasswordHash: "x"}
	if err := m.CreateUser(&u); err != ErrDuplicate {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestListPromptsVisibilityAndOrder(t *testing.T) {
	m := NewMemoryStore()
	owner := seedStoreUser(t, m, "owner@example.com")
	other := seedStoreUser(t, m, "other@example.com")

	mine := domain.Prompt{Name: "mine", UserID: owner.ID, Order: 1}
	shared := domain.Prompt{Name: "shared", UserID: other.ID, IsDefault: true, Order: 5}
	hidden := domain.Prompt{Name: "hidden", UserID: other.ID}
	for _, p := range []*domain.Prompt{&mine, &shared, &hidden} {
		if err := m.CreatePrompt(p); err != nil {
			t.Fatalf("create prompt: %v", err)
		}
	}

	prompts, pagination, err := m.ListPrompts(owner.ID, ListFilter{})
	if err != nil {
		t.Fatalf("list prompts: %v", err)
	}
	if pagination.Total != 2 {
		t.Fatalf("total = %d, want 2 (own plus default)", pagination.Total)
	}
	// defaults sort before owner prompts regardless of order value
	if prompts[0].Name != "shared" || prompts[1].Name != "mine" {
		t.Fatalf("order = %s, %s", prompts[0].Name, prompts[1].Name)
	}
}

func TestListPromptsDateRange(t *testing.T) {
	m := NewMemoryStore()
	owner := seedStoreUser(t, m, "dates@example.com")

	dayStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	inside := domain.Prompt{Name: "inside", UserID: owner.ID}
	lastMoment := domain.Prompt{Name: "last-moment", UserID: owner.ID}
	after := domain.Prompt{Name: "after", UserID: owner.ID}
	for _, p := range []*domain.Prompt{&inside, &lastMoment, &after} {
		if err := m.CreatePrompt(p); err != nil {
			t.Fatalf("create prompt: %v", err)
		}
	}
	// backdate through update; the stored record keeps the created-at we set
	inside.CreatedAt = dayStart.Add(2 * time.Hour)
	lastMoment.CreatedAt = dayStart.Add(24*time.Hour - time.Second)
	after.CreatedAt = dayStart.Add(24 * time.Hour)
	for _, p := range []*domain.Prompt{&inside, &lastMoment, &after} {
		if err := m.UpdatePrompt(p); err != nil {
			t.Fatalf("update prompt: %v", err)
		}
	}

	filter := ListFilter{StartDate: dayStart, EndDate: dayStart}
	prompts, pagination, err := m.ListPrompts(owner.ID, filter)
	if err != nil {
		t.Fatalf("list prompts: %v", err)
	}
	if pagination.Total != 2 {
		t.Fatalf("total = %d, want 2: the bound is start <= t < end+24h", pagination.Total)
	}
	for _, p := range prompts {
		if p.Name == "after" {
			t.Fatalf("row at end+24h must be excluded")
		}
	}
}

func TestListTagsSearchIsCaseInsensitive(t *testing.T) {
	m := NewMemoryStore()
	for _, name := range []string{"Finance", "marketing", "FINTECH"} {
		tag := domain.Tag{Name: name}
		if err := m.CreateTag(&tag); err != nil {
			t.Fatalf("create tag: %v", err)
		}
	}
	tags, _, err := m.ListTags(ListFilter{Search: "fin"})
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("matches = %d, want 2", len(tags))
	}
}

func TestDeleteHistoryCascadesChats(t *testing.T) {
	m := NewMemoryStore()
	owner := seedStoreUser(t, m, "cascade@example.com")
	h := domain.History{Name: "thread", UserID: owner.ID}
	if err := m.CreateHistory(&h); err != nil {
		t.Fatalf("create history: %v", err)
	}
	for i := 0; i < 2; i++ {
		c := domain.Chat{Message: "turn", HistoryID: h.ID}
		if err := m.CreateChat(&c); err != nil {
			t.Fatalf("create chat: %v", err)
		}
	}
	if err := m.DeleteHistory(h.ID); err != nil {
		t.Fatalf("delete history: %v", err)
	}
	if len(m.chats) != 0 {
		t.Fatalf("chats left after cascade: %d", len(m.chats))
	}
}

func TestCreateChatRequiresHistory(t *testing.T) {
	m := NewMemoryStore()
	c := domain.Chat{Message: "orphan", HistoryID: 42}
	if err := m.CreateChat(&c); err != ErrForeignKey {
		t.Fatalf("err = %v, want ErrForeignKey", err)
	}
}

func TestExecutedPromptUniquePerCompanyAndName(t *testing.T) {
	m := NewMemoryStore()
	owner := seedStoreUser(t, m, "exec@example.com")
	company := domain.Company{Name: "Acme", UserID: owner.ID}
	if err := m.CreateCompany(&company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	e := domain.ExecutedPrompt{Name: "pitch", CompanyID: company.ID, IsChatGPT: true}
	if err := m.CreateExecutedPrompt(&e); err != nil {
		t.Fatalf("create executed prompt: %v", err)
	}
	dup := domain.ExecutedPrompt{Name: "pitch", CompanyID: company.ID}
	if err := m.CreateExecutedPrompt(&dup); err != ErrDuplicate {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	e.IsBard = true
	e.BardResponse = "another take"
	if err := m.UpdateExecutedPrompt(&e); err != nil {
		t.Fatalf("update executed prompt: %v", err)
	}
	got, err := m.GetExecutedPrompt(company.ID, "pitch")
	if err != nil {
		t.Fatalf("get executed prompt: %v", err)
	}
	if !got.IsChatGPT || !got.IsBard {
		t.Fatalf("both provider flags should survive the upsert: %+v", got)
	}
}

func TestGetCompanyScopedToUser(t *testing.T) {
	m := NewMemoryStore()
	owner := seedStoreUser(t, m, "mine@example.com")
	stranger := seedStoreUser(t, m, "stranger@example.com")
	company := domain.Company{Name: "Private Co", UserID: owner.ID}
	if err := m.CreateCompany(&company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	if _, err := m.GetCompanyByID(company.ID, stranger.ID); err != ErrNotFound {
		t.Fatalf("cross-user access: err = %v, want ErrNotFound", err)
	}
	if _, err := m.GetCompanyByID(company.ID, owner.ID); err != nil {
		t.Fatalf("owner access: %v", err)
	}
}
