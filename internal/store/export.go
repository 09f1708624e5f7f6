// internal/store/export.go
package store

import (
	"context"
	"time"

	"github.com/talentflow/intake-pipeline/internal/models"
)

// ExportDocument is the compliance export: every candidate plus its
// notification audit trail in a single structured document.
type ExportDocument struct {
	GeneratedAt    time.Time        `json:"generated_at"`
	CandidateCount int              `json:"candidate_count"`
	AttemptCount   int              `json:"attempt_count"`
	Candidates     []ExportedRecord `json:"candidates"`
}

// ExportedRecord pairs one candidate with its audit trail.
type ExportedRecord struct {
	Candidate *models.Candidate            `json:"candidate"`
	Attempts  []models.NotificationAttempt `json:"notification_attempts"`
}

// Export assembles the compliance document. Attempts are grouped per
// candidate; candidates without attempts appear with an empty trail.
func (s *CandidateStore) Export(ctx context.Context) (*ExportDocument, error) {
	candidates, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	attempts, err := s.ListAllAttempts(ctx)
	if err != nil {
		return nil, err
	}

	byCandidate := make(map[string][]models.NotificationAttempt, len(candidates))
	for _, a := range attempts {
		byCandidate[a.CandidateID] = append(byCandidate[a.CandidateID], a)
	}

	doc := &ExportDocument{
		GeneratedAt:    time.Now().UTC(),
		CandidateCount: len(candidates),
		AttemptCount:   len(attempts),
		Candidates:     make([]ExportedRecord, 0, len(candidates)),
	}
	for _, c := range candidates {
		trail := byCandidate[c.ID]
		if trail == nil {
			trail = []models.NotificationAttempt{}
		}
		doc.Candidates = append(doc.Candidates, ExportedRecord{Candidate: c, Attempts: trail})
	}

	return doc, nil
}
