package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"promptdesk/pkg/domain"
)

// MemoryStore is an in-process Store used by tests. It mirrors the GormStore
// contract: same filtering, ordering, pagination, and error taxonomy.
type MemoryStore struct {
	mu sync.RWMutex

	nextID          uint
	users           map[uint]domain.User
	prompts         map[uint]domain.Prompt
	histories       map[uint]domain.History
	chats           map[uint]domain.Chat
	settings        map[uint]domain.Setting
	tags            map[uint]domain.Tag
	documents       map[uint]domain.Document
	companies       map[uint]domain.Company
	executedPrompts map[uint]domain.ExecutedPrompt
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:           make(map[uint]domain.User),
		prompts:         make(map[uint]domain.Prompt),
		histories:       make(map[uint]domain.History),
		chats:           make(map[uint]domain.Chat),
		settings:        make(map[uint]domain.Setting),
		tags:            make(map[uint]domain.Tag),
		documents:       make(map[uint]domain.Document),
		companies:       make(map[uint]domain.Company),
		executedPrompts: make(map[uint]domain.ExecutedPrompt),
	}
}

func (m *MemoryStore) allocateID() uint {
	m.nextID++
	return m.nextID
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func inDateRange(createdAt time.Time, f ListFilter) bool {
	if !f.HasDateRange() {
		return true
	}
	end := f.EndDate.Add(24 * time.Hour)
	return !createdAt.Before(f.StartDate) && createdAt.Before(end)
}

func pageSlice[T any](items []T, f ListFilter) ([]T, domain.Pagination) {
	page, limit, offset := f.Normalize()
	pagination := domain.Pagination{Page: page, PageSize: limit, Total: int64(len(items))}
	if offset >= len(items) {
		return []T{}, pagination
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], pagination
}

// users

func (m *MemoryStore) CreateUser(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.ID = m.allocateID()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUserByID(id uint) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	for _, p := range m.prompts {
		if p.UserID == id {
			user.Prompts = append(user.Prompts, p)
		}
	}
	for _, h := range m.histories {
		if h.UserID == id {
			user.Histories = append(user.Histories, h)
		}
	}
	return user, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (m *MemoryStore) GetUserByResetToken(token string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if strings.TrimSpace(token) == "" {
		return domain.User{}, ErrNotFound
	}
	for _, u := range m.users {
		if u.ResetToken == token {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	_, err := m.GetUserByEmail(email)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryStore) ListUsers(filter ListFilter) ([]domain.User, domain.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if filter.Search != "" && !containsFold(u.FirstName, filter.Search) && !containsFold(u.LastName, filter.Search) {
			continue
		}
		if !inDateRange(u.CreatedAt, filter) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	items, pagination := pageSlice(matched, filter)
	return items, pagination, nil
}

func (m *MemoryStore) UpdateUser(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.UpdatedAt = time.Now().UTC()
	u.Prompts = nil
	u.Histories = nil
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) DeleteUser(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// prompts

func (m *MemoryStore) CreatePrompt(p *domain.Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.prompts {
		if existing.Name == p.Name {
			return ErrDuplicate
		}
	}
	p.ID = m.allocateID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.prompts[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPromptByID(id uint) (domain.Prompt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prompt, ok := m.prompts[id]
	if !ok {
		return domain.Prompt{}, ErrNotFound
	}
	if owner, ok := m.users[prompt.UserID]; ok {
		prompt.User = &owner
	}
	return prompt, nil
}

func (m *MemoryStore) ListPrompts(userID uint, filter ListFilter) ([]domain.Prompt, domain.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Prompt, 0, len(m.prompts))
	for _, p := range m.prompts {
		if p.UserID != userID && !p.IsDefault {
			continue
		}
		if filter.Search != "" && !containsFold(p.Name, filter.Search) && !containsFold(p.Prompt, filter.Search) {
			continue
		}
		if !inDateRange(p.CreatedAt, filter) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	items, pagination := pageSlice(matched, filter)
	return items, pagination, nil
}

func (m *MemoryStore) UpdatePrompt(p *domain.Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prompts[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	p.User = nil
	m.prompts[p.ID] = *p
	return nil
}

func (m *MemoryStore) DeletePrompt(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prompts[id]; !ok {
		return ErrNotFound
	}
	delete(m.prompts, id)
	return nil
}

// histories

func (m *MemoryStore) CreateHistory(h *domain.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.allocateID()
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	m.histories[h.ID] = *h
	return nil
}

func (m *MemoryStore) GetHistoryByID(id uint) (domain.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history, ok := m.histories[id]
	if !ok {
		return domain.History{}, ErrNotFound
	}
	if owner, ok := m.users[history.UserID]; ok {
		history.User = &owner
	}
	history.Chats = m.chatsForHistory(id)
	return history, nil
}

func (m *MemoryStore) chatsForHistory(historyID uint) []domain.Chat {
	chats := make([]domain.Chat, 0)
	for _, c := range m.chats {
		if c.HistoryID == historyID {
			chats = append(chats, c)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].CreatedAt.Equal(chats[j].CreatedAt) {
			return chats[i].ID < chats[j].ID
		}
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
	return chats
}

func (m *MemoryStore) ListHistories(userID uint, filter ListFilter) ([]domain.History, domain.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.History, 0, len(m.histories))
	for _, h := range m.histories {
		if h.UserID != userID {
			continue
		}
		if filter.Search != "" && !containsFold(h.Name, filter.Search) {
			continue
		}
		if !inDateRange(h.CreatedAt, filter) {
			continue
		}
		h.Chats = m.chatsForHistory(h.ID)
		matched = append(matched, h)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	items, pagination := pageSlice(matched, filter)
	return items, pagination, nil
}

func (m *MemoryStore) UpdateHistory(h *domain.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histories[h.ID]; !ok {
		return ErrNotFound
	}
	h.UpdatedAt = time.Now().UTC()
	h.User = nil
	h.Chats = nil
	m.histories[h.ID] = *h
	return nil
}

func (m *MemoryStore) TouchHistory(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	history, ok := m.histories[id]
	if !ok {
		return ErrNotFound
	}
	history.UpdatedAt = time.Now().UTC()
	m.histories[id] = history
	return nil
}

func (m *MemoryStore) DeleteHistory(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histories[id]; !ok {
		return ErrNotFound
	}
	delete(m.histories, id)
	for chatID, c := range m.chats {
		if c.HistoryID == id {
			delete(m.chats, chatID)
		}
	}
	return nil
}

// chats

func (m *MemoryStore) CreateChat(c *domain.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histories[c.HistoryID]; !ok {
		return ErrForeignKey
	}
	c.ID = m.allocateID()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.chats[c.ID] = *c
	return nil
}

// settings

func (m *MemoryStore) CreateSetting(s *domain.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.settings {
		if existing.ServiceName == s.ServiceName {
			return ErrDuplicate
		}
	}
	s.ID = m.allocateID()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.settings[s.ID] = *s
	return nil
}

func (m *MemoryStore) GetSettingByID(id uint) (domain.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	setting, ok := m.settings[id]
	if !ok {
		return domain.Setting{}, ErrNotFound
	}
	return setting, nil
}

func (m *MemoryStore) GetSettingByService(userID uint, serviceName string) (domain.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.settings {
		if s.UserID == userID && s.ServiceName == serviceName {
			return s, nil
		}
	}
	return domain.Setting{}, ErrNotFound
}

func (m *MemoryStore) ListSettings(userID uint, filter ListFilter) ([]domain.Setting, domain.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Setting, 0, len(m.settings))
	for _, s := range m.settings {
		if s.UserID != userID {
			continue
		}
		if filter.Search != "" && !containsFold(s.ServiceName, filter.Search) && !containsFold(s.APIKey, filter.Search) {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	items, pagination := pageSlice(matched, filter)
	return items, pagination, nil
}

func (m *MemoryStore) UpdateSetting(s *domain.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settings[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	m.settings[s.ID] = *s
	return nil
}

func (m *MemoryStore) DeleteSetting(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settings[id]; !ok {
		return ErrNotFound
	}
	delete(m.settings, id)
	return nil
}

// tags

func (m *MemoryStore) CreateTag(t *domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.allocateID()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tags[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetTagByID(id uint) (domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tag, ok := m.tags[id]
	if !ok {
		return domain.Tag{}, ErrNotFound
	}
	return tag, nil
}

func (m *MemoryStore) GetTagsByIDs(ids []uint) ([]domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tags := make([]domain.Tag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := m.tags[id]; ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (m *MemoryStore) ListTags(filter ListFilter) ([]domain.Tag, domain.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		if filter.Search != "" && !containsFold(t.Name, filter.Search) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	items, pagination := pageSlice(matched, filter)
	return items, pagination, nil
}

func (m *MemoryStore) UpdateTag(t *domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	m.tags[t.ID] = *t
	return nil
}

func (m *MemoryStore) DeleteTag(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[id]; !ok {
		return ErrNotFound
	}
	delete(m.tags, id)
	return nil
}

// documents

func (m *MemoryStore) CreateDocument(d *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.documents {
		if existing.GUID == d.GUID {
			return ErrDuplicate
		}
	}
	d.ID = m.allocateID()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Tags == nil {
		d.Tags = []domain.Tag{}
	}
	m.documents[d.ID] = *d
	return nil
}

func (m *MemoryStore) GetDocumentByID(id uint) (domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	document, ok := m.documents[id]
	if !ok {
		return domain.Document{}, ErrNotFound
	}
	return document, nil
}

func (m *MemoryStore) ListDocuments(filter ListFilter, paged bool) ([]domain.Document, *domain.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Document, 0, len(m.documents))
	for _, d := range m.documents {
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	if !paged {
		return matched, nil, nil
	}
	items, pagination := pageSlice(matched, filter)
	return items, &pagination, nil
}

func (m *MemoryStore) UpdateDocument(d *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.documents[d.ID]
	if !ok {
		return ErrNotFound
	}
	d.UpdatedAt = time.Now().UTC()
	d.Tags = existing.Tags
	m.documents[d.ID] = *d
	return nil
}

func (m *MemoryStore) ReplaceDocumentTags(documentID uint, tags []domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	document, ok := m.documents[documentID]
	if !ok {
		return ErrNotFound
	}
	document.Tags = append([]domain.Tag{}, tags...)
	document.UpdatedAt = time.Now().UTC()
	m.documents[documentID] = document
	return nil
}

func (m *MemoryStore) DeleteDocument(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

// companies

func (m *MemoryStore) CreateCompany(c *domain.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.allocateID()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.companies[c.ID] = *c
	return nil
}

func (m *MemoryStore) GetCompanyByID(id, userID uint) (domain.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	company, ok := m.companies[id]
	if !ok || company.UserID != userID {
		return domain.Company{}, ErrNotFound
	}
	for _, e := range m.executedPrompts {
		if e.CompanyID == id {
			company.ExecutedPrompts = append(company.ExecutedPrompts, e)
		}
	}
	return company, nil
}

func (m *MemoryStore) GetCompanyByName(userID uint, name string) (domain.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.companies {
		if c.UserID == userID && c.Name == name {
			return c, nil
		}
	}
	return domain.Company{}, ErrNotFound
}

func (m *MemoryStore) ListCompanies(userID uint, filter ListFilter) ([]domain.Company, domain.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Company, 0, len(m.companies))
	for _, c := range m.companies {
		if c.UserID != userID {
			continue
		}
		if filter.Search != "" && !containsFold(c.Name, filter.Search) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	items, pagination := pageSlice(matched, filter)
	return items, pagination, nil
}

// executed prompts

func (m *MemoryStore) CreateExecutedPrompt(e *domain.ExecutedPrompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.executedPrompts {
		if existing.CompanyID == e.CompanyID && existing.Name == e.Name {
			return ErrDuplicate
		}
	}
	e.ID = m.allocateID()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	m.executedPrompts[e.ID] = *e
	return nil
}

func (m *MemoryStore) GetExecutedPrompt(companyID uint, name string) (domain.ExecutedPrompt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.executedPrompts {
		if e.CompanyID == companyID && e.Name == name {
			return e, nil
		}
	}
	return domain.ExecutedPrompt{}, ErrNotFound
}

func (m *MemoryStore) UpdateExecutedPrompt(e *domain.ExecutedPrompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.executedPrompts[e.ID]; !ok {
		return ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	m.executedPrompts[e.ID] = *e
	return nil
}
