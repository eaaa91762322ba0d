package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/google/uuid"
)

const DEFAULT_FILENAME_PREFIX = "receipt"

var ErrEmptySelection = errors.New("no user with a total energy sensor is selected")

type GenerateOptions struct {
	Filename       string
	FilenamePrefix string
}

type RequestBuilder struct {
	FilenamePrefix string
	// Location dates the single-user filename, same zone as the date range
	Location *time.Location
}

// Build resolves the selection against the canonical list. Each selected user contributes its
// total energy entity once, in selection order. Unknown names are skipped.
func (b RequestBuilder) Build(selected []string, users []domain.UserRecord, dateRange domain.DateRange,
	now time.Time, opts GenerateOptions) (domain.GenerationRequest, error) {

	byName := make(map[string]domain.UserRecord, len(users))
	for _, u := range users {
		byName[u.BaseName] = u
	}

	seen := map[string]bool{}
	entityIds := make([]string, 0, len(selected))
	var resolved []domain.UserRecord
	for _, name := range selected {
		u, ok := byName[name]
		if !ok || seen[name] {
			continue
		}
		id := u.TotalEnergyEntity()
		if id == "" {
			continue
		}
		seen[name] = true
		entityIds = append(entityIds, id)
		resolved = append(resolved, u)
	}
	if len(entityIds) == 0 {
		return domain.GenerationRequest{}, ErrEmptySelection
	}

	req := domain.GenerationRequest{
		Id:        uuid.NewString(),
		EntityIds: entityIds,
		StartDate: dateRange.StartDate(),
		EndDate:   dateRange.EndDate(),
		CreatedAt: now,
	}
	switch {
	case strings.TrimSpace(opts.Filename) != "":
		req.Filename = ensurePDF(strings.TrimSpace(opts.Filename))
	case len(resolved) == 1:
		req.Filename = fmt.Sprintf("%s_%s.pdf", resolved[0].BaseName, b.today(now))
	default:
		req.FilenamePrefix = b.prefix(opts.FilenamePrefix)
	}
	return req, nil
}

func (b RequestBuilder) today(now time.Time) string {
	if b.Location != nil {
		now = now.In(b.Location)
	}
	return now.Format(domain.DATE_LAYOUT)
}

func (b RequestBuilder) prefix(override string) string {
	if p := strings.TrimSpace(override); p != "" {
		return p
	}
	if b.FilenamePrefix != "" {
		return b.FilenamePrefix
	}
	return DEFAULT_FILENAME_PREFIX
}

func ensurePDF(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return name + ".pdf"
}
