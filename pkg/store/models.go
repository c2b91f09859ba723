package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID                  uint   `gorm:"primaryKey"`
	Avatar              string
	FirstName           string `gorm:"not null"`
	LastName            string `gorm:"not null"`
	Organization        string
	Profile             string `gorm:"type:text"`
	OrganizationProfile string `gorm:"type:text"`
	Email               string `gorm:"uniqueIndex;not null"`
	Role                string `gorm:"not null"`
	ModeInput           string
	ModeValue           string
	PasswordHash        string
	ResetToken          *string `gorm:"uniqueIndex"`
	ResetSentAt         *time.Time
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type PromptModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Prompt    string `gorm:"type:varchar(1000);not null"`
	IsDefault bool   `gorm:"not null;default:false"`
	Order     int    `gorm:"column:sort_order"`
	IsActive  bool   `gorm:"not null;default:true"`
	Icon      string `gorm:"type:text"`
	AITool    string `gorm:"not null"`
	UserID    uint   `gorm:"not null;index"`
	CompanyID *uint
	User      *UserModel `gorm:"foreignKey:UserID"`
	CreatedAt time.Time  `gorm:"not null;index"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (PromptModel) TableName() string { return "prompts" }

type HistoryModel struct {
	ID        uint        `gorm:"primaryKey"`
	Name      string      `gorm:"not null"`
	UserID    uint        `gorm:"not null;index"`
	User      *UserModel  `gorm:"foreignKey:UserID"`
	Chats     []ChatModel `gorm:"foreignKey:HistoryID"`
	CreatedAt time.Time   `gorm:"not null;index"`
	UpdatedAt time.Time   `gorm:"not null;index"`
}

func (HistoryModel) TableName() string { return "histories" }

type ChatModel struct {
	ID         uint   `gorm:"primaryKey"`
	Message    string `gorm:"type:text;not null"`
	PromptName string
	IsBot      bool      `gorm:"not null;default:false"`
	HistoryID  uint      `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (ChatModel) TableName() string { return "chats" }

type SettingModel struct {
	ID          uint   `gorm:"primaryKey"`
	ServiceName string `gorm:"uniqueIndex;not null"`
	APIKey      string `gorm:"not null"`
	APISecret   string
	UserID      uint      `gorm:"not null;index"`
	User        *UserModel `gorm:"foreignKey:UserID"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (SettingModel) TableName() string { return "settings" }

type TagModel struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

func (TagModel) TableName() string { return "tags" }

type DocumentModel struct {
	ID        uint       `gorm:"primaryKey"`
	FileName  string     `gorm:"not null"`
	FileURL   string     `gorm:"not null"`
	GUID      string     `gorm:"uniqueIndex;not null"`
	UserID    uint       `gorm:"index"`
	Tags      []TagModel `gorm:"many2many:document_tags"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null;index"`
}

func (DocumentModel) TableName() string { return "documents" }

type CompanyModel struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"not null;index"`
	Website         string
	UserID          uint                   `gorm:"not null;index"`
	ExecutedPrompts []ExecutedPromptModel  `gorm:"foreignKey:CompanyID"`
	CreatedAt       time.Time              `gorm:"not null"`
	UpdatedAt       time.Time              `gorm:"not null;index"`
}

func (CompanyModel) TableName() string { return "companies" }

type ExecutedPromptModel struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	Name            string `gorm:"not null;uniqueIndex:idx_executed_prompts_company_name"`
	Prompt          string `gorm:"type:varchar(1000);not null"`
	IsBard          bool   `gorm:"not null"`
	IsChatGPT       bool   `gorm:"not null"`
	BardResponse    string `gorm:"type:text"`
	ChatGPTResponse string `gorm:"type:text"`
	CompanyID       uint   `gorm:"not null;uniqueIndex:idx_executed_prompts_company_name"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (ExecutedPromptModel) TableName() string { return "executed_prompts" }
