package domain

import "time"

// AITool selects which external text-generation provider serves a request.
type AITool string

const (
	ToolChatGPT AITool = "chat_gpt"
	ToolBard    AITool = "bard"
)

// ServiceChatGPT is the setting service name holding a user's own OpenAI key.
const ServiceChatGPT = "Chat GPT"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User owns prompts, histories, settings, documents, and companies.
// PasswordHash serializes as "password" because existing clients read the
// signup response that way; the reset token is never serialized.
type User struct {
	ID                  uint       `json:"id"`
	Avatar              string     `json:"avatar,omitempty"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	Organization        string     `json:"organization,omitempty"`
	Profile             string     `json:"profile,omitempty"`
	OrganizationProfile string     `json:"organization_profile,omitempty"`
	Email               string     `json:"email"`
	Role                UserRole   `json:"role"`
	ModeInput           string     `json:"mode_input,omitempty"`
	ModeValue           string     `json:"mode_value,omitempty"`
	PasswordHash        string     `json:"password,omitempty"`
	ResetToken          string     `json:"-"`
	ResetSentAt         *time.Time `json:"-"`
	Prompts             []Prompt   `json:"prompts,omitempty"`
	Histories           []History  `json:"histories,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Prompt is a reusable prompt template. Default prompts are visible to every
// user; the rest are owner-scoped.
type Prompt struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	IsDefault bool      `json:"is_default"`
	Order     int       `json:"order"`
	IsActive  bool      `json:"is_active"`
	Icon      string    `json:"icon,omitempty"`
	AITool    AITool    `json:"ai_tool"`
	UserID    uint      `json:"user_id"`
	CompanyID *uint     `json:"company_id,omitempty"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// History is a named conversation thread owning ordered chat turns.
type History struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	UserID    uint      `json:"user_id"`
	User      *User     `json:"user,omitempty"`
	Chats     []Chat    `json:"chats,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Chat is one turn in a history thread, either user- or bot-authored.
type Chat struct {
	ID         uint      `json:"id"`
	Message    string    `json:"message"`
	PromptName string    `json:"prompt_name,omitempty"`
	IsBot      bool      `json:"is_bot"`
	HistoryID  uint      `json:"history_id"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Setting stores one credential set per named external service per user.
type Setting struct {
	ID          uint      `json:"id"`
	ServiceName string    `json:"service_name"`
	APIKey      string    `json:"api_key"`
	APISecret   string    `json:"api_secret,omitempty"`
	UserID      uint      `json:"user_id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Tag struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document is an uploaded file. The guid is assigned once at creation and is
// immutable afterwards.
type Document struct {
	ID        uint      `json:"id"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url"`
	GUID      string    `json:"guid"`
	UserID    uint      `json:"user_id"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Company struct {
	ID              uint             `json:"id"`
	Name            string           `json:"name"`
	Website         string           `json:"website,omitempty"`
	UserID          uint             `json:"user_id"`
	ExecutedPrompts []ExecutedPrompt `json:"executed_prompts,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ExecutedPrompt is the per-company audit record of the latest response for a
// named prompt. At most one row exists per (company, name); re-execution
// updates the executing provider's flag and response in place and leaves the
// other provider's columns untouched.
type ExecutedPrompt struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Prompt          string    `json:"prompt"`
	IsBard          bool      `json:"is_bard"`
	IsChatGPT       bool      `json:"is_chat_gpt"`
	BardResponse    string    `json:"bard_response,omitempty"`
	ChatGPTResponse string    `json:"chat_gpt_response,omitempty"`
	CompanyID       uint      `json:"company_id"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Pagination describes the page slice returned by list endpoints.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}
