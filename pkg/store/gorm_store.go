package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"promptdesk/pkg/domain"
)

const migrateLockID int64 = 52015201

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// GormStore implements Store on GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&PromptModel{},
			&HistoryModel{},
			&ChatModel{},
			&SettingModel{},
			&TagModel{},
			&DocumentModel{},
			&CompanyModel{},
			&ExecutedPromptModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// mapErr folds driver errors into the store error taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		}
	}
	return err
}

func applyDateRange(tx *gorm.DB, column string, f ListFilter) *gorm.DB {
	if !f.HasDateRange() {
		return tx
	}
	// End date is inclusive: half-open window ending one day after it.
	end := f.EndDate.Add(24 * time.Hour)
	return tx.Where(column+" >= ? AND "+column+" < ?", f.StartDate, end)
}

func paginate(tx *gorm.DB, f ListFilter) (*gorm.DB, int, int) {
	page, limit, offset := f.Normalize()
	return tx.Offset(offset).Limit(limit), page, limit
}

// users

func (s *GormStore) CreateUser(u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*u = userFromModel(model)
	return nil
}

func (s *GormStore) GetUserByID(id uint) (domain.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.User{}, mapErr(err)
	}
	user := userFromModel(model)
	var prompts []PromptModel
	if err := s.db.Where("user_id = ?", id).Find(&prompts).Error; err != nil {
		return domain.User{}, mapErr(err)
	}
	for _, p := range prompts {
		user.Prompts = append(user.Prompts, promptFromModel(p))
	}
	var histories []HistoryModel
	if err := s.db.Where("user_id = ?", id).Find(&histories).Error; err != nil {
		return domain.User{}, mapErr(err)
	}
	for _, h := range histories {
		user.Histories = append(user.Histories, historyFromModel(h))
	}
	return user, nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		return domain.User{}, mapErr(err)
	}
	return userFromModel(model), nil
}

func (s *GormStore) GetUserByResetToken(token string) (domain.User, error) {
	var model UserModel
	if err := s.db.First(&model, "reset_token = ?", token).Error; err != nil {
		return domain.User{}, mapErr(err)
	}
	return userFromModel(model), nil
}

func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, mapErr(err)
	}
	return count > 0, nil
}

func (s *GormStore) ListUsers(filter ListFilter) ([]domain.User, domain.Pagination, error) {
	tx := s.db.Model(&UserModel{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		tx = tx.Where("first_name ILIKE ? OR last_name ILIKE ?", pattern, pattern)
	}
	tx = applyDateRange(tx, "created_at", filter)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	tx, page, limit := paginate(tx, filter)
	var models []UserModel
	if err := tx.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, userFromModel(m))
	}
	return users, domain.Pagination{Page: page, PageSize: limit, Total: total}, nil
}

func (s *GormStore) UpdateUser(u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.Save(&model).Error; err != nil {
		return mapErr(err)
	}
	*u = userFromModel(model)
	return nil
}

func (s *GormStore) DeleteUser(id uint) error {
	return s.deleteByID(&UserModel{}, id)
}

// prompts

func (s *GormStore) CreatePrompt(p *domain.Prompt) error {
	model := promptToModel(*p)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*p = promptFromModel(model)
	return nil
}

func (s *GormStore) GetPromptByID(id uint) (domain.Prompt, error) {
	var model PromptModel
	if err := s.db.Preload("User").First(&model, "id = ?", id).Error; err != nil {
		return domain.Prompt{}, mapErr(err)
	}
	return promptFromModel(model), nil
}

func (s *GormStore) ListPrompts(userID uint, filter ListFilter) ([]domain.Prompt, domain.Pagination, error) {
	// Default prompts are shared: every caller sees them alongside their own.
	tx := s.db.Model(&PromptModel{}).Where("user_id = ? OR is_default = ?", userID, true)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		tx = tx.Where("name ILIKE ? OR prompt ILIKE ?", pattern, pattern)
	}
	tx = applyDateRange(tx, "created_at", filter)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	tx, page, limit := paginate(tx, filter)
	var models []PromptModel
	if err := tx.Preload("User").
		Order("is_default DESC").
		Order("sort_order ASC").
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	prompts := make([]domain.Prompt, 0, len(models))
	for _, m := range models {
		prompts = append(prompts, promptFromModel(m))
	}
	return prompts, domain.Pagination{Page: page, PageSize: limit, Total: total}, nil
}

func (s *GormStore) UpdatePrompt(p *domain.Prompt) error {
	model := promptToModel(*p)
	model.User = nil
	if err := s.db.Save(&model).Error; err != nil {
		return mapErr(err)
	}
	*p = promptFromModel(model)
	return nil
}

func (s *GormStore) DeletePrompt(id uint) error {
	return s.deleteByID(&PromptModel{}, id)
}

// histories

func (s *GormStore) CreateHistory(h *domain.History) error {
	model := historyToModel(*h)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*h = historyFromModel(model)
	return nil
}

func (s *GormStore) GetHistoryByID(id uint) (domain.History, error) {
	var model HistoryModel
	if err := s.db.Preload("User").
		Preload("Chats", func(db *gorm.DB) *gorm.DB { return db.Order("chats.created_at ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		return domain.History{}, mapErr(err)
	}
	return historyFromModel(model), nil
}

func (s *GormStore) ListHistories(userID uint, filter ListFilter) ([]domain.History, domain.Pagination, error) {
	tx := s.db.Model(&HistoryModel{}).Where("user_id = ?", userID)
	if filter.Search != "" {
		tx = tx.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	tx = applyDateRange(tx, "created_at", filter)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	tx, page, limit := paginate(tx, filter)
	var models []HistoryModel
	if err := tx.Preload("Chats", func(db *gorm.DB) *gorm.DB { return db.Order("chats.created_at ASC") }).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	histories := make([]domain.History, 0, len(models))
	for _, m := range models {
		histories = append(histories, historyFromModel(m))
	}
	return histories, domain.Pagination{Page: page, PageSize: limit, Total: total}, nil
}

func (s *GormStore) UpdateHistory(h *domain.History) error {
	model := historyToModel(*h)
	model.User = nil
	model.Chats = nil
	if err := s.db.Save(&model).Error; err != nil {
		return mapErr(err)
	}
	*h = historyFromModel(model)
	return nil
}

// TouchHistory bumps the thread's update timestamp after a turn is appended.
func (s *GormStore) TouchHistory(id uint) error {
	res := s.db.Model(&HistoryModel{}).Where("id = ?", id).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteHistory(id uint) error {
	return s.deleteByID(&HistoryModel{}, id)
}

// chats

func (s *GormStore) CreateChat(c *domain.Chat) error {
	model := chatToModel(*c)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*c = chatFromModel(model)
	return nil
}

// settings

func (s *GormStore) CreateSetting(st *domain.Setting) error {
	model := settingToModel(*st)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*st = settingFromModel(model)
	return nil
}

func (s *GormStore) GetSettingByID(id uint) (domain.Setting, error) {
	var model SettingModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.Setting{}, mapErr(err)
	}
	return settingFromModel(model), nil
}

func (s *GormStore) GetSettingByService(userID uint, serviceName string) (domain.Setting, error) {
	var model SettingModel
	if err := s.db.First(&model, "user_id = ? AND service_name = ?", userID, serviceName).Error; err != nil {
		return domain.Setting{}, mapErr(err)
	}
	return settingFromModel(model), nil
}

func (s *GormStore) ListSettings(userID uint, filter ListFilter) ([]domain.Setting, domain.Pagination, error) {
	tx := s.db.Model(&SettingModel{}).Where("user_id = ?", userID)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		tx = tx.Where("service_name ILIKE ? OR api_key ILIKE ?", pattern, pattern)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	tx, page, limit := paginate(tx, filter)
	var models []SettingModel
	if err := tx.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	settings := make([]domain.Setting, 0, len(models))
	for _, m := range models {
		settings = append(settings, settingFromModel(m))
	}
	return settings, domain.Pagination{Page: page, PageSize: limit, Total: total}, nil
}

func (s *GormStore) UpdateSetting(st *domain.Setting) error {
	model := settingToModel(*st)
	model.User = nil
	if err := s.db.Save(&model).Error; err != nil {
		return mapErr(err)
	}
	*st = settingFromModel(model)
	return nil
}

func (s *GormStore) DeleteSetting(id uint) error {
	return s.deleteByID(&SettingModel{}, id)
}

// tags

func (s *GormStore) CreateTag(t *domain.Tag) error {
	model := tagToModel(*t)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*t = tagFromModel(model)
	return nil
}

func (s *GormStore) GetTagByID(id uint) (domain.Tag, error) {
	var model TagModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.Tag{}, mapErr(err)
	}
	return tagFromModel(model), nil
}

func (s *GormStore) GetTagsByIDs(ids []uint) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return []domain.Tag{}, nil
	}
	var models []TagModel
	if err := s.db.Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, mapErr(err)
	}
	tags := make([]domain.Tag, 0, len(models))
	for _, m := range models {
		tags = append(tags, tagFromModel(m))
	}
	return tags, nil
}

func (s *GormStore) ListTags(filter ListFilter) ([]domain.Tag, domain.Pagination, error) {
	tx := s.db.Model(&TagModel{})
	if filter.Search != "" {
		tx = tx.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	tx, page, limit := paginate(tx, filter)
	var models []TagModel
	if err := tx.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	tags := make([]domain.Tag, 0, len(models))
	for _, m := range models {
		tags = append(tags, tagFromModel(m))
	}
	return tags, domain.Pagination{Page: page, PageSize: limit, Total: total}, nil
}

func (s *GormStore) UpdateTag(t *domain.Tag) error {
	model := tagToModel(*t)
	if err := s.db.Save(&model).Error; err != nil {
		return mapErr(err)
	}
	*t = tagFromModel(model)
	return nil
}

func (s *GormStore) DeleteTag(id uint) error {
	return s.deleteByID(&TagModel{}, id)
}

// documents

func (s *GormStore) CreateDocument(d *domain.Document) error {
	model := documentToModel(*d)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*d = documentFromModel(model)
	return nil
}

func (s *GormStore) GetDocumentByID(id uint) (domain.Document, error) {
	var model DocumentModel
	if err := s.db.Preload("Tags").First(&model, "id = ?", id).Error; err != nil {
		return domain.Document{}, mapErr(err)
	}
	return documentFromModel(model), nil
}

// ListDocuments paginates only when the caller supplied both page and limit.
func (s *GormStore) ListDocuments(filter ListFilter, paged bool) ([]domain.Document, *domain.Pagination, error) {
	tx := s.db.Model(&DocumentModel{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, nil, mapErr(err)
	}
	var pagination *domain.Pagination
	if paged {
		var page, limit int
		tx, page, limit = paginate(tx, filter)
		pagination = &domain.Pagination{Page: page, PageSize: limit, Total: total}
	}
	var models []DocumentModel
	if err := tx.Preload("Tags").Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, nil, mapErr(err)
	}
	documents := make([]domain.Document, 0, len(models))
	for _, m := range models {
		documents = append(documents, documentFromModel(m))
	}
	return documents, pagination, nil
}

func (s *GormStore) UpdateDocument(d *domain.Document) error {
	model := documentToModel(*d)
	model.Tags = nil
	if err := s.db.Save(&model).Error; err != nil {
		return mapErr(err)
	}
	updated, err := s.GetDocumentByID(model.ID)
	if err != nil {
		return err
	}
	*d = updated
	return nil
}

// ReplaceDocumentTags overwrites the document's tag associations wholesale.
func (s *GormStore) ReplaceDocumentTags(documentID uint, tags []domain.Tag) error {
	models := make([]TagModel, 0, len(tags))
	for _, t := range tags {
		models = append(models, tagToModel(t))
	}
	doc := DocumentModel{ID: documentID}
	if err := s.db.Model(&doc).Association("Tags").Replace(&models); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *GormStore) DeleteDocument(id uint) error {
	return s.deleteByID(&DocumentModel{}, id)
}

// companies

func (s *GormStore) CreateCompany(c *domain.Company) error {
	model := companyToModel(*c)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*c = companyFromModel(model)
	return nil
}

func (s *GormStore) GetCompanyByID(id, userID uint) (domain.Company, error) {
	var model CompanyModel
	if err := s.db.Preload("ExecutedPrompts").
		First(&model, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return domain.Company{}, mapErr(err)
	}
	return companyFromModel(model), nil
}

func (s *GormStore) GetCompanyByName(userID uint, name string) (domain.Company, error) {
	var model CompanyModel
	if err := s.db.First(&model, "user_id = ? AND name = ?", userID, name).Error; err != nil {
		return domain.Company{}, mapErr(err)
	}
	return companyFromModel(model), nil
}

func (s *GormStore) ListCompanies(userID uint, filter ListFilter) ([]domain.Company, domain.Pagination, error) {
	tx := s.db.Model(&CompanyModel{}).Where("user_id = ?", userID)
	if filter.Search != "" {
		tx = tx.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	tx, page, limit := paginate(tx, filter)
	var models []CompanyModel
	if err := tx.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, domain.Pagination{}, mapErr(err)
	}
	companies := make([]domain.Company, 0, len(models))
	for _, m := range models {
		companies = append(companies, companyFromModel(m))
	}
	return companies, domain.Pagination{Page: page, PageSize: limit, Total: total}, nil
}

// executed prompts

func (s *GormStore) CreateExecutedPrompt(e *domain.ExecutedPrompt) error {
	model := executedPromptToModel(*e)
	if err := s.db.Create(&model).Error; err != nil {
		return mapErr(err)
	}
	*e = executedPromptFromModel(model)
	return nil
}

func (s *GormStore) GetExecutedPrompt(companyID uint, name string) (domain.ExecutedPrompt, error) {
	var model ExecutedPromptModel
	if err := s.db.First(&model, "company_id = ? AND name = ?", companyID, name).Error; err != nil {
		return domain.ExecutedPrompt{}, mapErr(err)
	}
	return executedPromptFromModel(model), nil
}

func (s *GormStore) UpdateExecutedPrompt(e *domain.ExecutedPrompt) error {
	model := executedPromptToModel(*e)
	if err := s.db.Save(&model).Error; err != nil {
		return mapErr(err)
	}
	*e = executedPromptFromModel(model)
	return nil
}

func (s *GormStore) deleteByID(model any, id uint) error {
	res := s.db.Delete(model, "id = ?", id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
