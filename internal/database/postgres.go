package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/demandboard/backend/internal/config"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
	"github.com/emilythestrangee/demandboard/backend/internal/scoring"
)

// uniqueViolation is the postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type PostgresStore struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewPostgres opens the connection pool and, when configured, applies the
// embedded migrations.
func NewPostgres(cfg config.DatabaseConfig, log logrus.FieldLogger) (*PostgresStore, error) {
	s, err := openPostgres(postgres.Open(cfg.DSN()), cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	log.WithField("database", cfg.Name).Info("database connected")
	return s, nil
}

func openPostgres(dialector gorm.Dialector, cfg config.DatabaseConfig, log logrus.FieldLogger) (*PostgresStore, error) {
	gormLogger := logger.New(
		gormWriter{log: log},
		logger.Config{
			SlowThreshold:             time.Duration(cfg.SlowThreshold),
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// every write here is a single statement; multi-statement units go
		// through WithinTx
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))
	}

	return &PostgresStore{db: db, log: log}, nil
}

// Migrate applies all pending goose migrations.
func (s *PostgresStore) Migrate() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("error getting database instance: %w", err)
	}
	return RunMigrations(sqlDB)
}

// gormWriter routes gorm's slow-query and error lines into logrus.
type gormWriter struct {
	log logrus.FieldLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.WithField("component", "gorm").Warnf(format, args...)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresStore{db: tx, log: s.log})
	})
}

func (s *PostgresStore) UpsertUser(ctx context.Context, identityRef, email, displayName string) (*models.User, error) {
	now := time.Now().UTC()
	user := models.User{
		ID:          uuid.New(),
		IdentityRef: identityRef,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "identity_ref"}},
				DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "updated_at"}),
			},
			clause.Returning{},
		).
		Create(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *PostgresStore) UserByIdentity(ctx context.Context, identityRef string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("identity_ref = ?", identityRef).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *PostgresStore) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *PostgresStore) CreateProblem(ctx context.Context, p *models.Problem) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *PostgresStore) ProblemByID(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	var p models.Problem
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *PostgresStore) ListProblems(ctx context.Context, q ProblemQuery) ([]models.Problem, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.Problem{})
	if q.Category != "" {
		base = base.Where("category = ?", q.Category)
	}
	if q.HasSolutions {
		base = base.Where("solution_count > 0")
	}
	if q.Unsolved {
		base = base.Where("has_solved_solution = ?", false)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	find := base.Session(&gorm.Session{})
	for _, f := range scoring.Order(q.Sort) {
		find = find.Order(clause.OrderByColumn{Column: clause.Column{Name: f.Column}, Desc: f.Desc})
	}

	items := []models.Problem{}
	if err := find.Offset(q.Offset).Limit(q.Limit).Find(&items).Error; err != nil {
		return nil, 0, translate(err)
	}
	return items, total, nil
}

func (s *PostgresStore) ProblemsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Problem, error) {
	items := []models.Problem{}
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at desc").
		Find(&items).Error
	return items, translate(err)
}

func (s *PostgresStore) ProblemIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Problem{}).Order("created_at").Pluck("id", &ids).Error
	return ids, translate(err)
}

func (s *PostgresStore) AdjustProblem(ctx context.Context, id uuid.UUID, d ProblemDelta) (*models.Problem, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	inc := func(column string, n int) {
		if n != 0 {
			updates[column] = gorm.Expr(column+" + ?", n)
		}
	}
	inc("upvote_count", d.Upvotes)
	inc("pay_signal_count", d.PaySignals)
	inc("alternatives_count", d.Alternatives)
	inc("solution_count", d.Solutions)
	inc("composite_score", d.Score)

	var p models.Problem
	res := s.db.WithContext(ctx).
		Model(&p).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *PostgresStore) SetProblemSolved(ctx context.Context, id uuid.UUID, solved bool) error {
	res := s.db.WithContext(ctx).
		Model(&models.Problem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"has_solved_solution": solved,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ReplaceProblemAggregates(ctx context.Context, id uuid.UUID, a ProblemAggregates) error {
	res := s.db.WithContext(ctx).
		Model(&models.Problem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"upvote_count":        a.UpvoteCount,
			"pay_signal_count":    a.PaySignalCount,
			"alternatives_count":  a.AlternativesCount,
			"solution_count":      a.SolutionCount,
			"composite_score":     a.CompositeScore,
			"has_solved_solution": a.HasSolvedSolution,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSolution(ctx context.Context, sol *models.Solution) error {
	return translate(s.db.WithContext(ctx).Create(sol).Error)
}

func (s *PostgresStore) SolutionByID(ctx context.Context, id uuid.UUID) (*models.Solution, error) {
	var sol models.Solution
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sol).Error; err != nil {
		return nil, translate(err)
	}
	return &sol, nil
}

func (s *PostgresStore) SolutionsForProblem(ctx context.Context, problemID uuid.UUID) ([]models.Solution, error) {
	items := []models.Solution{}
	err := s.db.WithContext(ctx).
		Where("problem_id = ?", problemID).
		Order("upvote_count desc").
		Order("created_at desc").
		Find(&items).Error
	return items, translate(err)
}

func (s *PostgresStore) SolutionsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Solution, error) {
	items := []models.Solution{}
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at desc").
		Find(&items).Error
	return items, translate(err)
}

func (s *PostgresStore) AdjustSolutionUpvotes(ctx context.Context, id uuid.UUID, n int) (*models.Solution, error) {
	var sol models.Solution
	res := s.db.WithContext(ctx).
		Model(&sol).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("upvote_count", gorm.Expr("upvote_count + ?", n))
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &sol, nil
}

func (s *PostgresStore) SetSolutionSolved(ctx context.Context, id uuid.UUID, solved bool, by *uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.Solution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_marked_solved":  solved,
			"solved_by_user_id": by,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AnyOtherSolved(ctx context.Context, problemID, excludeID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Solution{}).
		Where("problem_id = ? AND is_marked_solved = ? AND id <> ?", problemID, true, excludeID).
		Count(&n).Error
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (s *PostgresStore) ReplaceSolutionUpvotes(ctx context.Context, id uuid.UUID, n int) error {
	res := s.db.WithContext(ctx).
		Model(&models.Solution{}).
		Where("id = ?", id).
		Update("upvote_count", n)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateAlternative(ctx context.Context, a *models.Alternative) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *PostgresStore) AlternativesForProblem(ctx context.Context, problemID uuid.UUID) ([]models.Alternative, error) {
	items := []models.Alternative{}
	err := s.db.WithContext(ctx).
		Where("problem_id = ?", problemID).
		Order("created_at desc").
		Find(&items).Error
	return items, translate(err)
}

// signalModel returns an empty row of the table backing a signal kind and
// that table's target column.
func signalModel(kind models.SignalKind) (interface{}, string, error) {
	switch kind {
	case models.KindProblemUpvote:
		return &models.ProblemUpvote{}, "problem_id", nil
	case models.KindPaySignal:
		return &models.ProblemPaySignal{}, "problem_id", nil
	case models.KindSolutionUpvote:
		return &models.SolutionUpvote{}, "solution_id", nil
	}
	return nil, "", fmt.Errorf("unknown signal kind %q", kind)
}

func (s *PostgresStore) FindSignal(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (*models.Signal, error) {
	_, column, err := signalModel(kind)
	if err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where(column+" = ? AND user_id = ?", targetID, userID)

	sig := models.Signal{Kind: kind, TargetID: targetID, UserID: userID}
	switch kind {
	case models.KindProblemUpvote:
		var row models.ProblemUpvote
		if err := q.First(&row).Error; err != nil {
			return nil, translate(err)
		}
		sig.CreatedAt = row.CreatedAt
	case models.KindPaySignal:
		var row models.ProblemPaySignal
		if err := q.First(&row).Error; err != nil {
			return nil, translate(err)
		}
		sig.PriceRange = row.PriceRange
		sig.CreatedAt = row.CreatedAt
	case models.KindSolutionUpvote:
		var row models.SolutionUpvote
		if err := q.First(&row).Error; err != nil {
			return nil, translate(err)
		}
		sig.CreatedAt = row.CreatedAt
	}
	return &sig, nil
}

func (s *PostgresStore) InsertSignal(ctx context.Context, sig *models.Signal) error {
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}

	var row interface{}
	switch sig.Kind {
	case models.KindProblemUpvote:
		row = &models.ProblemUpvote{ID: uuid.New(), ProblemID: sig.TargetID, UserID: sig.UserID, CreatedAt: sig.CreatedAt}
	case models.KindPaySignal:
		row = &models.ProblemPaySignal{ID: uuid.New(), ProblemID: sig.TargetID, UserID: sig.UserID, PriceRange: sig.PriceRange, CreatedAt: sig.CreatedAt}
	case models.KindSolutionUpvote:
		row = &models.SolutionUpvote{ID: uuid.New(), SolutionID: sig.TargetID, UserID: sig.UserID, CreatedAt: sig.CreatedAt}
	default:
		return fmt.Errorf("unknown signal kind %q", sig.Kind)
	}
	return translate(s.db.WithContext(ctx).Create(row).Error)
}

func (s *PostgresStore) DeleteSignal(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (bool, error) {
	model, column, err := signalModel(kind)
	if err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).
		Where(column+" = ? AND user_id = ?", targetID, userID).
		Delete(model)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *PostgresStore) CountSignals(ctx context.Context, kind models.SignalKind, targetID uuid.UUID) (int64, error) {
	model, column, err := signalModel(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.WithContext(ctx).Model(model).Where(column+" = ?", targetID).Count(&n).Error
	return n, translate(err)
}

// Health checks the health of the database connection by pinging the database.
func (s *PostgresStore) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := make(map[string]string)

	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Info("disconnected from database")
	return sqlDB.Close()
}
