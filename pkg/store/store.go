package store

import (
	"errors"
	"time"

	"promptdesk/pkg/domain"
)

// Storage-layer error taxonomy. The HTTP boundary maps these to statuses so
// raw database vocabulary never reaches clients.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	ErrForeignKey = errors.New("referenced record missing")
)

// ListFilter carries the common list-endpoint query parameters. Page is
// 1-based; a zero Limit falls back to the per-store default. StartDate and
// EndDate bound created-at inclusively: matching rows satisfy
// start <= created_at < end + 24h.
type ListFilter struct {
	Search    string
	StartDate time.Time
	EndDate   time.Time
	Page      int
	Limit     int
}

// DefaultPageSize is applied when a list request carries no limit.
const DefaultPageSize = 10

// Normalize fills page/limit defaults and returns the SQL offset.
func (f ListFilter) Normalize() (page, limit, offset int) {
	page = f.Page
	if page <= 0 {
		page = 1
	}
	limit = f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return page, limit, (page - 1) * limit
}

// HasDateRange reports whether both range bounds were supplied.
func (f ListFilter) HasDateRange() bool {
	return !f.StartDate.IsZero() && !f.EndDate.IsZero()
}

// Store defines persistence for every entity the API serves. List calls
// return the page slice plus pagination metadata; Get calls eagerly attach
// direct relations.
type Store interface {
	// users
	CreateUser(u *domain.User) error
	GetUserByID(id uint) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	GetUserByResetToken(token string) (domain.User, error)
	HasUserEmail(email string) (bool, error)
	ListUsers(filter ListFilter) ([]domain.User, domain.Pagination, error)
	UpdateUser(u *domain.User) error
	DeleteUser(id uint) error

	// prompts
	CreatePrompt(p *domain.Prompt) error
	GetPromptByID(id uint) (domain.Prompt, error)
	ListPrompts(userID uint, filter ListFilter) ([]domain.Prompt, domain.Pagination, error)
	UpdatePrompt(p *domain.Prompt) error
	DeletePrompt(id uint) error

	// histories
	CreateHistory(h *domain.History) error
	GetHistoryByID(id uint) (domain.History, error)
	ListHistories(userID uint, filter ListFilter) ([]domain.History, domain.Pagination, error)
	UpdateHistory(h *domain.History) error
	TouchHistory(id uint) error
	DeleteHistory(id uint) error

	// chats
	CreateChat(c *domain.Chat) error

	// settings
	CreateSetting(s *domain.Setting) error
	GetSettingByID(id uint) (domain.Setting, error)
	GetSettingByService(userID uint, serviceName string) (domain.Setting, error)
	ListSettings(userID uint, filter ListFilter) ([]domain.Setting, domain.Pagination, error)
	UpdateSetting(s *domain.Setting) error
	DeleteSetting(id uint) error

	// tags
	CreateTag(t *domain.Tag) error
	GetTagByID(id uint) (domain.Tag, error)
	GetTagsByIDs(ids []uint) ([]domain.Tag, error)
	ListTags(filter ListFilter) ([]domain.Tag, domain.Pagination, error)
	UpdateTag(t *domain.Tag) error
	DeleteTag(id uint) error

	// documents
	CreateDocument(d *domain.Document) error
	GetDocumentByID(id uint) (domain.Document, error)
	ListDocuments(filter ListFilter, paged bool) ([]domain.Document, *domain.Pagination, error)
	UpdateDocument(d *domain.Document) error
	ReplaceDocumentTags(documentID uint, tags []domain.Tag) error
	DeleteDocument(id uint) error

	// companies
	CreateCompany(c *domain.Company) error
	GetCompanyByID(id, userID uint) (domain.Company, error)
	GetCompanyByName(userID uint, name string) (domain.Company, error)
	ListCompanies(userID uint, filter ListFilter) ([]domain.Company, domain.Pagination, error)

	// executed prompts
	CreateExecutedPrompt(e *domain.ExecutedPrompt) error
	GetExecutedPrompt(companyID uint, name string) (domain.ExecutedPrompt, error)
	UpdateExecutedPrompt(e *domain.ExecutedPrompt) error
}
