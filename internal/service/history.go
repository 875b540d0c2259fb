package service

import (
	"math"
	"time"

	"tg-warden/internal/models"
	"tg-warden/internal/storage"
)

// HistoryPage is one page of a chat's sanction history, newest first
type HistoryPage struct {
	Records    []*models.SanctionRecord
	Page       int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// HistoryService serves ordered, paginated sanction history
type HistoryService struct {
	sanctions *storage.SanctionRepository
	perPage   int
	now       func() time.Time
}

// NewHistoryService creates a HistoryService with the given page size
func NewHistoryService(sanctions *storage.SanctionRepository, perPage int) *HistoryService {
	if perPage < 1 {
		perPage = 10
	}
	return &HistoryService{sanctions: sanctions, perPage: perPage, now: time.Now}
}

// Page returns one page of a chat's history for the given sanction
// kind, ordered by timestamp descending. activeOnly keeps only records
// whose restriction is still in force. Returns ErrNoRecords when the
// filter matches nothing.
func (s *HistoryService) Page(chatID int64, kind models.SanctionKind, page int, activeOnly bool) (*HistoryPage, error) {
	now := s.now()

	count, err := s.sanctions.Count(chatID, kind, activeOnly, now)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoRecords
	}

	totalPages := int(math.Ceil(float64(count) / float64(s.perPage)))
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	records, err := s.sanctions.List(chatID, kind, activeOnly, now, (page-1)*s.perPage, s.perPage)
	if err != nil {
		return nil, err
	}

	return &HistoryPage{
		Records:    records,
		Page:       page,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}
