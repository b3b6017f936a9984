package repositories

import (
	"Meduroam/database"
	"Meduroam/models"
	"context"
	"fmt"
	"log"
	"time"
)

// AuditRepository appends immutable compliance entries. It satisfies
// services.AuditSink: write failures are logged, never propagated, so a
// down audit store cannot block patient care.
type AuditRepository struct{}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Record(ctx context.Context, entry models.AuditEntry) {
	if err := database.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("Failed to record audit entry %s for consult %s: %v", entry.EventType, entry.ConsultID, err)
	}
}

// ListByConsult returns the full audit trail for one consultation in
// chronological order.
func (r *AuditRepository) ListByConsult(ctx context.Context, consultID string) ([]models.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var entries []models.AuditEntry
	err := database.DB.WithContext(ctx).
		Where("consult_id = ?", consultID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// ListByEventType returns recent entries of one event type, newest
// first, capped at limit.
func (r *AuditRepository) ListByEventType(ctx context.Context, eventType models.AuditEventType, limit int) ([]models.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var entries []models.AuditEntry
	err := database.DB.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
