package store

import (
	"strings"

	"promptdesk/pkg/domain"
)

func userToModel(u domain.User) UserModel {
	var resetToken *string
	if strings.TrimSpace(u.ResetToken) != "" {
		value := u.ResetToken
		resetToken = &value
	}
	return UserModel{
		ID:                  u.ID,
		Avatar:              u.Avatar,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Organization:        u.Organization,
		Profile:             u.Profile,
		OrganizationProfile: u.OrganizationProfile,
		Email:               u.Email,
		Role:                string(u.Role),
		ModeInput:           u.ModeInput,
		ModeValue:           u.ModeValue,
		PasswordHash:        u.PasswordHash,
		ResetToken:          resetToken,
		ResetSentAt:         u.ResetSentAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	resetToken := ""
	if m.ResetToken != nil {
		resetToken = *m.ResetToken
	}
	return domain.User{
		ID:                  m.ID,
		Avatar:              m.Avatar,
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		Organization:        m.Organization,
		Profile:             m.Profile,
		OrganizationProfile: m.OrganizationProfile,
		Email:               m.Email,
		Role:                domain.UserRole(m.Role),
		ModeInput:           m.ModeInput,
		ModeValue:           m.ModeValue,
		PasswordHash:        m.PasswordHash,
		ResetToken:          resetToken,
		ResetSentAt:         m.ResetSentAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func promptToModel(p domain.Prompt) PromptModel {
	return PromptModel{
		ID:        p.ID,
		Name:      p.Name,
		Prompt:    p.Prompt,
		IsDefault: p.IsDefault,
		Order:     p.Order,
		IsActive:  p.IsActive,
		Icon:      p.Icon,
		AITool:    string(p.AITool),
		UserID:    p.UserID,
		CompanyID: p.CompanyID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func promptFromModel(m PromptModel) domain.Prompt {
	prompt := domain.Prompt{
		ID:        m.ID,
		Name:      m.Name,
		Prompt:    m.Prompt,
		IsDefault: m.IsDefault,
		Order:     m.Order,
		IsActive:  m.IsActive,
		Icon:      m.Icon,
		AITool:    domain.AITool(m.AITool),
		UserID:    m.UserID,
		CompanyID: m.CompanyID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.User != nil {
		user := userFromModel(*m.User)
		prompt.User = &user
	}
	return prompt
}

func historyToModel(h domain.History) HistoryModel {
	return HistoryModel{
		ID:        h.ID,
		Name:      h.Name,
		UserID:    h.UserID,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}

func historyFromModel(m HistoryModel) domain.History {
	history := domain.History{
		ID:        m.ID,
		Name:      m.Name,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.User != nil {
		user := userFromModel(*m.User)
		history.User = &user
	}
	for _, c := range m.Chats {
		history.Chats = append(history.Chats, chatFromModel(c))
	}
	return history
}

func chatToModel(c domain.Chat) ChatModel {
	return ChatModel{
		ID:         c.ID,
		Message:    c.Message,
		PromptName: c.PromptName,
		IsBot:      c.IsBot,
		HistoryID:  c.HistoryID,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func chatFromModel(m ChatModel) domain.Chat {
	return domain.Chat{
		ID:         m.ID,
		Message:    m.Message,
		PromptName: m.PromptName,
		IsBot:      m.IsBot,
		HistoryID:  m.HistoryID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func settingToModel(s domain.Setting) SettingModel {
	return SettingModel{
		ID:          s.ID,
		ServiceName: s.ServiceName,
		APIKey:      s.APIKey,
		APISecret:   s.APISecret,
		UserID:      s.UserID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func settingFromModel(m SettingModel) domain.Setting {
	return domain.Setting{
		ID:          m.ID,
		ServiceName: m.ServiceName,
		APIKey:      m.APIKey,
		APISecret:   m.APISecret,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func tagToModel(t domain.Tag) TagModel {
	return TagModel{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func tagFromModel(m TagModel) domain.Tag {
	return domain.Tag{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func documentToModel(d domain.Document) DocumentModel {
	model := DocumentModel{
		ID:        d.ID,
		FileName:  d.FileName,
		FileURL:   d.FileURL,
		GUID:      d.GUID,
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, t := range d.Tags {
		model.Tags = append(model.Tags, tagToModel(t))
	}
	return model
}

func documentFromModel(m DocumentModel) domain.Document {
	document := domain.Document{
		ID:        m.ID,
		FileName:  m.FileName,
		FileURL:   m.FileURL,
		GUID:      m.GUID,
		UserID:    m.UserID,
		Tags:      []domain.Tag{},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, t := range m.Tags {
		document.Tags = append(document.Tags, tagFromModel(t))
	}
	return document
}

func companyToModel(c domain.Company) CompanyModel {
	return CompanyModel{
		ID:        c.ID,
		Name:      c.Name,
		Website:   c.Website,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func companyFromModel(m CompanyModel) domain.Company {
	company := domain.Company{
		ID:        m.ID,
		Name:      m.Name,
		Website:   m.Website,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, e := range m.ExecutedPrompts {
		company.ExecutedPrompts = append(company.ExecutedPrompts, executedPromptFromModel(e))
	}
	return company
}

func executedPromptToModel(e domain.ExecutedPrompt) ExecutedPromptModel {
	return ExecutedPromptModel{
		ID:              e.ID,
		Name:            e.Name,
		Prompt:          e.Prompt,
		IsBard:          e.IsBard,
		IsChatGPT:       e.IsChatGPT,
		BardResponse:    e.BardResponse,
		ChatGPTResponse: e.ChatGPTResponse,
		CompanyID:       e.CompanyID,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func executedPromptFromModel(m ExecutedPromptModel) domain.ExecutedPrompt {
	return domain.ExecutedPrompt{
		ID:              m.ID,
		Name:            m.Name,
		Prompt:          m.Prompt,
		IsBard:          m.IsBard,
		IsChatGPT:       m.IsChatGPT,
		BardResponse:    m.BardResponse,
		ChatGPTResponse: m.ChatGPTResponse,
		CompanyID:       m.CompanyID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
