package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"promptdesk/pkg/ai"
	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

// ChatCompleter is the chat-completion provider surface. The api key comes
// from the caller's stored setting and may be empty.
type ChatCompleter interface {
	Complete(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error)
}

// DialogueGenerator is the dialogue-generation provider surface.
type DialogueGenerator interface {
	GenerateMessage(ctx context.Context, contextText, message string) (string, error)
}

// ChatDispatcher forwards one user message to the selected provider and
// persists the exchange.
type ChatDispatcher struct {
	store  store.Store
	openai ChatCompleter
	palm   DialogueGenerator
}

// NewChatDispatcher wires the dispatcher.
func NewChatDispatcher(s store.Store, openai ChatCompleter, palm DialogueGenerator) *ChatDispatcher {
	return &ChatDispatcher{store: s, openai: openai, palm: palm}
}

// DispatchInput is one chat turn request.
type DispatchInput struct {
	UserID         uint
	Message        string
	HistoryID      uint
	AITool         domain.AITool
	CompanyName    string
	CompanyWebsite string
	PromptName     string
}

// DispatchResult carries the provider reply and the thread it was stored
// under. HistoryID is nil when the requested thread does not exist.
type DispatchResult struct {
	Reply     string
	HistoryID *uint
}

// Dispatch runs one chat turn: resolve the thread and company context, call
// the provider, record the execution, and append the user and bot turns.
func (d *ChatDispatcher) Dispatch(ctx context.Context, in DispatchInput) (DispatchResult, error) {
	if strings.TrimSpace(in.Message) == "" {
		return DispatchResult{}, ErrMessageRequired
	}

	history, err := d.resolveHistory(in)
	if err != nil {
		return DispatchResult{}, err
	}

	company, err := d.resolveCompany(in)
	if err != nil {
		return DispatchResult{}, err
	}

	var reply string
	switch in.AITool {
	case domain.ToolBard:
		reply, err = d.palm.GenerateMessage(ctx, ai.SystemPreamble, in.Message)
	default:
		apiKey := ""
		setting, settingErr := d.store.GetSettingByService(in.UserID, domain.ServiceChatGPT)
		if settingErr == nil {
			apiKey = setting.APIKey
		} else if !errors.Is(settingErr, store.ErrNotFound) {
			return DispatchResult{}, fmt.Errorf("fetch setting: %w", settingErr)
		}
		reply, err = d.openai.Complete(ctx, apiKey, ai.SystemPreamble, in.Message)
	}
	if err != nil {
		return DispatchResult{}, fmt.Errorf("provider call: %w", err)
	}

	if company != nil {
		if err := d.recordExecution(*company, in, reply); err != nil {
			return DispatchResult{}, err
		}
	}

	result := DispatchResult{Reply: reply}
	if history != nil {
		if err := d.appendTurns(*history, in, reply); err != nil {
			return DispatchResult{}, err
		}
		result.HistoryID = &history.ID
	}
	return result, nil
}

// resolveHistory loads the requested thread or creates a fresh one. A
// requested id that no longer exists yields no thread rather than an error;
// the turn is then served without being persisted.
func (d *ChatDispatcher) resolveHistory(in DispatchInput) (*domain.History, error) {
	if in.HistoryID != 0 {
		history, err := d.store.GetHistoryByID(in.HistoryID)
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("chat requested missing history", "history_id", in.HistoryID, "user_id", in.UserID)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fetch history: %w", err)
		}
		return &history, nil
	}
	name := in.PromptName
	if name == "" {
		name = in.Message
	}
	history := domain.History{Name: name, UserID: in.UserID}
	if err := d.store.CreateHistory(&history); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return &history, nil
}

func (d *ChatDispatcher) resolveCompany(in DispatchInput) (*domain.Company, error) {
	if in.CompanyName == "" {
		return nil, nil
	}
	company, err := d.store.GetCompanyByName(in.UserID, in.CompanyName)
	if err == nil {
		return &company, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("fetch company: %w", err)
	}
	company = domain.Company{
		Name:    in.CompanyName,
		Website: in.CompanyWebsite,
		UserID:  in.UserID,
	}
	if err := d.store.CreateCompany(&company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return &company, nil
}

// recordExecution upserts the per-company audit row for this prompt name.
// The other provider's flag and stored response survive the update.
func (d *ChatDispatcher) recordExecution(company domain.Company, in DispatchInput, reply string) error {
	existing, err := d.store.GetExecutedPrompt(company.ID, in.PromptName)
	if errors.Is(err, store.ErrNotFound) {
		executed := domain.ExecutedPrompt{
			Name:      in.PromptName,
			Prompt:    in.Message,
			CompanyID: company.ID,
		}
		if in.AITool == domain.ToolBard {
			executed.IsBard = true
			executed.BardResponse = reply
		} else {
			executed.IsChatGPT = true
			executed.ChatGPTResponse = reply
		}
		if err := d.store.CreateExecutedPrompt(&executed); err != nil {
			return fmt.Errorf("create executed prompt: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch executed prompt: %w", err)
	}

	existing.Prompt = in.Message
	if in.AITool == domain.ToolBard {
		existing.IsBard = true
		existing.BardResponse = reply
	} else {
		existing.IsChatGPT = true
		existing.ChatGPTResponse = reply
	}
	if err := d.store.UpdateExecutedPrompt(&existing); err != nil {
		return fmt.Errorf("update executed prompt: %w", err)
	}
	return nil
}

// appendTurns stores the user turn then the bot turn and bumps the thread's
// update timestamp so it sorts first in listings.
func (d *ChatDispatcher) appendTurns(history domain.History, in DispatchInput, reply string) error {
	userTurn := domain.Chat{
		Message:    in.Message,
		HistoryID:  history.ID,
		PromptName: in.PromptName,
	}
	if err := d.store.CreateChat(&userTurn); err != nil {
		return fmt.Errorf("store user turn: %w", err)
	}
	botTurn := domain.Chat{
		Message:   reply,
		IsBot:     true,
		HistoryID: history.ID,
	}
	if err := d.store.CreateChat(&botTurn); err != nil {
		return fmt.Errorf("store bot turn: %w", err)
	}
	if err := d.store.TouchHistory(history.ID); err != nil {
		return fmt.Errorf("touch history: %w", err)
	}
	return nil
}
