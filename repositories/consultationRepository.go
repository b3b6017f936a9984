package repositories

import (
	"Meduroam/cache"
	"Meduroam/database"
	"Meduroam/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConsultCacheExpiry = 24 * time.Hour
)

// ErrConsultationNotFound is returned when a consult id matches nothing.
var ErrConsultationNotFound = errors.New("consultation not found")

// ConsultationRepository persists consultations and their attached
// clinical records. It satisfies services.ConsultationStore. Transitions
// are serialized per consult through a redis lock so concurrent actors
// cannot interleave read-validate-append cycles.
type ConsultationRepository struct {
	cache *cache.Cache
}

func NewConsultationRepository(cache *cache.Cache) *ConsultationRepository {
	return &ConsultationRepository{cache: cache}
}

func (r *ConsultationRepository) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create consultation: %w", err)
		}
		return r.cache.Delete(ctx, r.getConsultCacheKey(c.ID))
	})
}

func (r *ConsultationRepository) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getConsultCacheKey(id)
	cachedConsult, err := r.cache.Get(ctx, cacheKey)
	if err == nil {
		var consult models.Consultation
		if err := json.Unmarshal([]byte(cachedConsult), &consult); err == nil {
			return &consult, nil
		}
	} else if err != redis.Nil {
		log.Printf("Failed to get consultation from cache: %v", err)
	}

	var consult models.Consultation
	err = database.DB.WithContext(ctx).
		Preload("StateHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&consult, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConsultationNotFound, id)
		}
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}

	consultJSON, err := json.Marshal(consult)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal consultation: %w", err)
	}
	if err := r.cache.Set(ctx, cacheKey, consultJSON, ConsultCacheExpiry); err != nil {
		log.Printf("Failed to set consultation in cache: %v", err)
	}

	return &consult, nil
}

// SaveConsultation writes the consult row and any history entries added
// since the last save. History rows are append-only: existing entries
// are never updated or removed.
func (r *ConsultationRepository) SaveConsultation(ctx context.Context, c *models.Consultation) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("StateHistory").Save(c).Error; err != nil {
			return fmt.Errorf("failed to save consultation: %w", err)
		}
		for i := range c.StateHistory {
			if c.StateHistory[i].ID != 0 {
				continue
			}
			if err := tx.Create(&c.StateHistory[i]).Error; err != nil {
				return fmt.Errorf("failed to append state transition: %w", err)
			}
		}
		return r.cache.Delete(ctx, r.getConsultCacheKey(c.ID))
	})
}

// WithConsultLock serializes fn against all other holders of the same
// consult's lock. Lock acquisition retries a few times before giving up.
func (r *ConsultationRepository) WithConsultLock(ctx context.Context, consultID string, fn func(ctx context.Context) error) error {
	lockKey := fmt.Sprintf("consult_lock:%s", consultID)
	lockValue := uuid.New().String()

	maxRetries := 3
	retryDelay := 2 * time.Second
	var locked bool
	var err error
	for i := 0; i < maxRetries; i++ {
		locked, err = database.NewLock(ctx, lockKey, lockValue, 10*time.Second)
		if err == nil && locked {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if !locked {
		return fmt.Errorf("failed to acquire consult lock after retries: %w", err)
	}
	defer func() {
		if err := database.ReleaseLock(ctx, lockKey, lockValue); err != nil {
			log.Printf("Failed to release consult lock: %v", err)
		}
	}()

	return fn(ctx)
}

func (r *ConsultationRepository) SavePatient(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	if err := database.DB.WithContext(ctx).Save(patient).Error; err != nil {
		return fmt.Errorf("failed to save patient: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	var patient models.Patient
	err := database.DB.WithContext(ctx).First(&patient, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("patient not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *ConsultationRepository) SaveTranscript(ctx context.Context, transcript *models.Transcript) error {
	if err := database.DB.WithContext(ctx).Save(transcript).Error; err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) SaveAIOutput(ctx context.Context, output *models.AIConsultOutput) error {
	if err := database.DB.WithContext(ctx).Save(output).Error; err != nil {
		return fmt.Errorf("failed to save AI output: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) GetAIOutput(ctx context.Context, id string) (*models.AIConsultOutput, error) {
	var output models.AIConsultOutput
	err := database.DB.WithContext(ctx).First(&output, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("AI output not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get AI output: %w", err)
	}
	return &output, nil
}

func (r *ConsultationRepository) SaveStudentReview(ctx context.Context, review *models.StudentReview) error {
	if err := database.DB.WithContext(ctx).Save(review).Error; err != nil {
		return fmt.Errorf("failed to save student review: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) GetStudentReview(ctx context.Context, id string) (*models.StudentReview, error) {
	var review models.StudentReview
	err := database.DB.WithContext(ctx).First(&review, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("student review not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get student review: %w", err)
	}
	return &review, nil
}

func (r *ConsultationRepository) SaveResidentReview(ctx context.Context, review *models.ResidentReview) error {
	if err := database.DB.WithContext(ctx).Save(review).Error; err != nil {
		return fmt.Errorf("failed to save resident review: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) SavePatientResponse(ctx context.Context, response *models.PatientResponse) error {
	if err := database.DB.WithContext(ctx).Save(response).Error; err != nil {
		return fmt.Errorf("failed to save patient response: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) SaveFinalRecord(ctx context.Context, record *models.FinalRecord) error {
	if err := database.DB.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to save final record: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) GetFinalRecord(ctx context.Context, id string) (*models.FinalRecord, error) {
	var record models.FinalRecord
	err := database.DB.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("final record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get final record: %w", err)
	}
	return &record, nil
}

func (r *ConsultationRepository) SaveRoutingPlan(ctx context.Context, plan *models.CareRoutingPlan) error {
	if err := database.DB.WithContext(ctx).Save(plan).Error; err != nil {
		return fmt.Errorf("failed to save routing plan: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) GetRoutingPlan(ctx context.Context, id string) (*models.CareRoutingPlan, error) {
	var plan models.CareRoutingPlan
	err := database.DB.WithContext(ctx).First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("routing plan not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get routing plan: %w", err)
	}
	return &plan, nil
}

// ListConsultationsByState returns consults waiting in a given state,
// oldest first. Review queues are built on this.
func (r *ConsultationRepository) ListConsultationsByState(ctx context.Context, state models.WorkflowState) ([]models.Consultation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var consults []models.Consultation
	err := database.DB.WithContext(ctx).
		Where("current_state = ?", state).
		Order("created_at ASC").
		Find(&consults).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consults, nil
}

// ListConsultationsByPatient returns a patient's consults, newest first.
func (r *ConsultationRepository) ListConsultationsByPatient(ctx context.Context, patientID string) ([]models.Consultation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var consults []models.Consultation
	err := database.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&consults).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consults, nil
}

func (r *ConsultationRepository) getConsultCacheKey(consultID string) string {
	return fmt.Sprintf("consult_cache:%s", consultID)
}
