package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/schema"
)

const ormLogPrefix = "orm"

func ormUnavailable(err error) error {
	return fault.Wrap(fault.Unavailable, err, "postgres unavailable")
}

// validRequestID filters out ids that can never match the uuid primary key
func validRequestID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CreateRequest persists a new request. A missing id is generated.
func (s *NearhelpStore) CreateRequest(ctx context.Context, r *schema.Request) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.NotifiedVolunteers == nil {
		r.NotifiedVolunteers = pq.StringArray{}
	}

	if err := schema.ValidateRequest(r); err != nil {
		return err
	}

	if err := s.ormDB.Create(r).Error; err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrRequestExists
		}
		log.WithField("prefix", ormLogPrefix).Errorf("create request with error: %s", err)
		return ormUnavailable(err)
	}
	return nil
}

func (s *NearhelpStore) GetRequest(ctx context.Context, id string) (*schema.Request, error) {
	if !validRequestID(id) {
		return nil, ErrRequestNotFound
	}

	var r schema.Request
	if err := s.ormDB.Where("id = ?", id).First(&r).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrRequestNotFound
		}
		return nil, ormUnavailable(err)
	}

	return &r, nil
}

func (s *NearhelpStore) GetRequests(ctx context.Context, ids []string) ([]schema.Request, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validRequestID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []schema.Request{}, nil
	}

	var found []schema.Request
	if err := s.ormDB.Where("id IN (?)", valid).Find(&found).Error; err != nil {
		return nil, ormUnavailable(err)
	}

	byID := make(map[string]schema.Request, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	requests := make([]schema.Request, 0, len(found))
	for _, id := range valid {
		if r, ok := byID[id]; ok {
			requests = append(requests, r)
			delete(byID, id)
		}
	}
	return requests, nil
}

// patchColumns turns a patch into the column updates of a transition
func patchColumns(to schema.Status, patch Patch) map[string]interface{} {
	columns := map[string]interface{}{
		"status": to,
	}

	if patch.ClearAssignee {
		columns["assigned_volunteer"] = nil
	} else if patch.AssignedVolunteer != nil {
		columns["assigned_volunteer"] = *patch.AssignedVolunteer
	}

	if patch.ClearOutcome {
		columns["rating"] = nil
		columns["feedback"] = nil
	} else {
		if patch.Rating != nil {
			columns["rating"] = *patch.Rating
		}
		if patch.Feedback != nil {
			columns["feedback"] = *patch.Feedback
		}
	}

	return columns
}

// Transition updates a request only when it is still in the `from` status.
// The status check and the write happen in the same UPDATE statement.
func (s *NearhelpStore) Transition(ctx context.Context, id string, from, to schema.Status, patch Patch) (*schema.Request, error) {
	if !validRequestID(id) {
		return nil, ErrRequestNotFound
	}

	result := s.ormDB.Model(&schema.Request{}).
		Where("id = ? AND status = ?", id, from).
		Updates(patchColumns(to, patch))
	if result.Error != nil {
		log.WithFields(log.Fields{
			"prefix":     ormLogPrefix,
			"request_id": id,
			"from":       from,
			"to":         to,
			"error":      result.Error,
		}).Error("transition request")
		return nil, ormUnavailable(result.Error)
	}

	if result.RowsAffected == 0 {
		if _, err := s.GetRequest(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStatusMismatch
	}

	return s.GetRequest(ctx, id)
}

// AddNotifiedVolunteers merges volunteer ids into the notified set. The set
// only grows and never holds duplicates.
func (s *NearhelpStore) AddNotifiedVolunteers(ctx context.Context, id string, volunteerIDs []string) error {
	if !validRequestID(id) {
		return ErrRequestNotFound
	}
	if len(volunteerIDs) == 0 {
		return nil
	}

	result := s.ormDB.Exec(
		`UPDATE requests SET notified_volunteers = ARRAY(
			SELECT DISTINCT v FROM unnest(array_cat(COALESCE(notified_volunteers, '{}'), ?::text[])) AS v ORDER BY v
		) WHERE id = ?`,
		pq.Array(volunteerIDs),
		id,
	)
	if result.Error != nil {
		return ormUnavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func applyRequestFilter(db *gorm.DB, f RequestFilter) *gorm.DB {
	if f.Owner != "" {
		db = db.Where("owner = ?", f.Owner)
	}
	if f.Assignee != "" {
		db = db.Where("assigned_volunteer = ?", f.Assignee)
	}
	if f.NotifiedVolunteer != "" {
		db = db.Where("? = ANY(notified_volunteers)", f.NotifiedVolunteer)
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN (?)", f.Statuses)
	}
	return db
}

// ListRequests returns a page of requests, newest first, and the total
// number of requests matching the filter
func (s *NearhelpStore) ListRequests(ctx context.Context, filter RequestFilter, page, limit int) ([]schema.Request, int, error) {
	page, limit = NormalizePage(page, limit)

	var total int
	if err := applyRequestFilter(s.ormDB.Model(&schema.Request{}), filter).Count(&total).Error; err != nil {
		return nil, 0, ormUnavailable(err)
	}

	requests := make([]schema.Request, 0)
	if err := applyRequestFilter(s.ormDB, filter).
		Order("created_at DESC").
		Order("id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, ormUnavailable(err)
	}

	return requests, total, nil
}

// CountByStatus returns the number of requests in every status
func (s *NearhelpStore) CountByStatus(ctx context.Context) (map[schema.Status]int64, error) {
	var rows []struct {
		Status schema.Status
		Count  int64
	}

	if err := s.ormDB.Model(&schema.Request{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, ormUnavailable(err)
	}

	counts := make(map[schema.Status]int64, len(schema.AllStatuses))
	for _, st := range schema.AllStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
