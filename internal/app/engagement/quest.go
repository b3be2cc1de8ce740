package engagement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharedtable/fare/internal/app/ledger"
	"github.com/sharedtable/fare/internal/domain"
	"github.com/sharedtable/fare/internal/infra/metrics"
	"github.com/sharedtable/fare/internal/infra/sqlite"
)

// QuestService issues time-boxed quests from the template catalog and tracks
// per-task completion. Issuing is an explicit ensure-then-fetch: ensure
// creates any missing instances, then a single fetch returns them, never
// unbounded retry on a silent create failure.
type QuestService struct {
	db     *sqlite.DB
	ledger *ledger.Service
}

// NewQuestService creates a quest service.
func NewQuestService(db *sqlite.DB, lg *ledger.Service) *QuestService {
	return &QuestService{db: db, ledger: lg}
}

// ActiveQuests returns the user's live quests for the requested cadences
// (all cadences when types is empty), issuing fresh instances from active
// templates for any cadence the user has none of.
func (q *QuestService) ActiveQuests(userID string, types []domain.QuestType) ([]domain.Quest, error) {
	if len(types) == 0 {
		types = domain.AllQuestTypes()
	}
	now := time.Now().UTC()

	existing, err := q.db.ActiveQuests(userID, types, now)
	if err != nil {
		return nil, err
	}

	held := make(map[domain.QuestType]bool)
	for _, quest := range existing {
		held[quest.Type] = true
	}

	ensured := false
	for _, qt := range types {
		if held[qt] {
			continue
		}
		ok, err := q.ensureQuests(userID, qt, now)
		if err != nil {
			return nil, err
		}
		ensured = ensured || ok
	}

	if !ensured {
		return q.attachTasks(existing)
	}

	// One re-fetch after creation; a second miss is a hard failure, not a
	// retry loop.
	quests, err := q.db.ActiveQuests(userID, types, now)
	if err != nil {
		return nil, err
	}
	if len(quests) == 0 {
		return nil, domain.ErrQuestCreateFailed
	}
	return q.attachTasks(quests)
}

// ensureQuests issues one instance per active template of the cadence that
// the user does not already hold live. Returns true when live instances exist
// after the call, whether this request inserted them or a concurrent one won
// the insert; the caller must re-fetch in either case.
func (q *QuestService) ensureQuests(userID string, qt domain.QuestType, now time.Time) (bool, error) {
	templates, err := q.db.ActiveTemplates(qt)
	if err != nil {
		return false, err
	}
	if len(templates) == 0 {
		return false, nil // nothing in the catalog for this cadence
	}

	ensured := false
	for _, tmpl := range templates {
		tasks, err := q.db.TemplateTasks(tmpl.ID)
		if err != nil {
			return false, err
		}

		quest := domain.Quest{
			ID:         uuid.NewString(),
			UserID:     userID,
			TemplateID: tmpl.ID,
			CreatedAt:  now,
			ExpiresAt:  ExpiryFor(qt, now),
		}

		err = q.db.WithTx(func(tx *sqlite.Tx) error {
			inserted, err := tx.InsertQuestIfNone(quest, now)
			if err != nil {
				return fmt.Errorf("insert quest: %w", err)
			}
			if !inserted {
				ensured = true // a concurrent request issued it first
				return nil
			}
			taskIDs := make([]string, len(tasks))
			for i, task := range tasks {
				taskIDs[i] = task.ID
			}
			if err := tx.InsertQuestProgress(quest.ID, taskIDs); err != nil {
				return err
			}
			ensured = true
			metrics.QuestsIssued.WithLabelValues(string(qt)).Inc()
			return nil
		})
		if err != nil {
			return false, err
		}
	}
	return ensured, nil
}

// CompleteTask marks one task done for a quest owned by the user. When the
// last task completes, the quest's completed_at is set and the template's
// bonus is awarded; the completed_at guard and the award share the task
// transaction, so two racing "complete last task" calls award exactly once.
func (q *QuestService) CompleteTask(userID, questID, taskID string) (*domain.Quest, error) {
	now := time.Now().UTC()
	var completed *domain.Quest

	err := q.db.WithTx(func(tx *sqlite.Tx) error {
		quest, err := tx.QuestForUser(questID, userID)
		if err != nil {
			return err
		}
		if quest == nil {
			return domain.ErrQuestNotFound
		}
		if quest.IsExpired(now) {
			return domain.ErrQuestExpired
		}

		ok, err := tx.HasTask(questID, taskID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrTaskNotFound
		}

		if _, err := tx.MarkTaskComplete(questID, taskID, now); err != nil {
			return fmt.Errorf("mark task: %w", err)
		}

		total, done, err := tx.TaskCounts(questID)
		if err != nil {
			return err
		}
		if total == 0 || done < total {
			completed = quest
			return nil
		}

		isNew, err := tx.CompleteQuest(questID, now)
		if err != nil {
			return err
		}
		if isNew {
			_, err = q.ledger.AwardTx(tx, userID, quest.TotalPoints,
				domain.TxQuestCompleted, quest.Title, questID, "quest")
			if err != nil {
				return fmt.Errorf("award quest bonus: %w", err)
			}
			metrics.QuestsCompleted.WithLabelValues(string(quest.Type)).Inc()
		}

		quest.CompletedAt = now
		completed = quest
		return nil
	})
	if err != nil {
		return nil, err
	}

	quests, err := q.attachTasks([]domain.Quest{*completed})
	if err != nil {
		return nil, err
	}
	return &quests[0], nil
}

// attachTasks loads each quest's task states.
func (q *QuestService) attachTasks(quests []domain.Quest) ([]domain.Quest, error) {
	for i := range quests {
		tasks, err := q.db.QuestTaskStates(quests[i].ID)
		if err != nil {
			return nil, err
		}
		quests[i].Tasks = tasks
	}
	return quests, nil
}

// ExpiryFor computes a new instance's deadline. Daily, weekly, and biweekly
// quests use rolling windows; monthly quests expire on the first of the next
// calendar month.
func ExpiryFor(qt domain.QuestType, now time.Time) time.Time {
	switch qt {
	case domain.QuestDaily:
		return now.Add(24 * time.Hour)
	case domain.QuestWeekly:
		return now.AddDate(0, 0, 7)
	case domain.QuestBiweekly:
		return now.AddDate(0, 0, 14)
	case domain.QuestMonthly:
		return domain.StartOfNextMonth(now)
	default:
		return now.AddDate(0, 0, 7)
	}
}

// ─── Default Catalog ────────────────────────────────────────────────────────

// DefaultTemplates returns the seed quest catalog. EnsureCatalog upserts it
// at startup; operators can add more rows directly.
func DefaultTemplates() ([]domain.QuestTemplate, []domain.QuestTask) {
	templates := []domain.QuestTemplate{
		{ID: "daily-explorer", Type: domain.QuestDaily, Title: "Daily Explorer", TotalPoints: 30, Active: true},
		{ID: "weekly-regular", Type: domain.QuestWeekly, Title: "Weekly Regular", TotalPoints: 120, Active: true},
		{ID: "biweekly-social", Type: domain.QuestBiweekly, Title: "Social Butterfly", TotalPoints: 200, Active: true},
		{ID: "monthly-gourmand", Type: domain.QuestMonthly, Title: "Monthly Gourmand", TotalPoints: 400, Active: true},
	}
	tasks := []domain.QuestTask{
		{ID: "daily-explorer-1", TemplateID: "daily-explorer", Text: "Browse tonight's dinners", Points: 10, OrderIndex: 0},
		{ID: "daily-explorer-2", TemplateID: "daily-explorer", Text: "Save a dinner you like", Points: 20, OrderIndex: 1},

		{ID: "weekly-regular-1", TemplateID: "weekly-regular", Text: "Book a dinner", Points: 40, OrderIndex: 0},
		{ID: "weekly-regular-2", TemplateID: "weekly-regular", Text: "Attend your booking", Points: 50, OrderIndex: 1},
		{ID: "weekly-regular-3", TemplateID: "weekly-regular", Text: "Leave a review", Points: 30, OrderIndex: 2},

		{ID: "biweekly-social-1", TemplateID: "biweekly-social", Text: "Dine with someone new", Points: 80, OrderIndex: 0},
		{ID: "biweekly-social-2", TemplateID: "biweekly-social", Text: "Invite a friend to Fare", Points: 120, OrderIndex: 1},

		{ID: "monthly-gourmand-1", TemplateID: "monthly-gourmand", Text: "Attend three dinners", Points: 150, OrderIndex: 0},
		{ID: "monthly-gourmand-2", TemplateID: "monthly-gourmand", Text: "Try a new cuisine", Points: 100, OrderIndex: 1},
		{ID: "monthly-gourmand-3", TemplateID: "monthly-gourmand", Text: "Post two reviews", Points: 150, OrderIndex: 2},
	}
	return templates, tasks
}

// EnsureCatalog upserts the default quest templates and tasks.
func (q *QuestService) EnsureCatalog() error {
	templates, tasks := DefaultTemplates()
	for _, tmpl := range templates {
		if err := q.db.UpsertQuestTemplate(tmpl); err != nil {
			return fmt.Errorf("seed template %s: %w", tmpl.ID, err)
		}
	}
	for _, task := range tasks {
		if err := q.db.UpsertQuestTask(task); err != nil {
			return fmt.Errorf("seed task %s: %w", task.ID, err)
		}
	}
	return nil
}
