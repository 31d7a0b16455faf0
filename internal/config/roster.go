package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jbplatform/relay/internal/worker"
	"github.com/jbplatform/relay/pkg/models"
)

// rosterFile is the on-disk shape of a worker roster.
type rosterFile struct {
	Workers []worker.Profile `yaml:"workers"`
}

// LoadRoster reads worker profiles from a YAML file. Profiles with an
// unknown id or a non-positive concurrency are rejected outright rather
// than silently patched; the roster is operator input and should fail loud.
func LoadRoster(path string) ([]worker.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	if len(rf.Workers) == 0 {
		return nil, fmt.Errorf("roster %s defines no workers", path)
	}

	seen := make(map[models.WorkerID]bool, len(rf.Workers))
	for i, p := range rf.Workers {
		if !p.ID.Valid() {
			return nil, fmt.Errorf("roster %s: worker %d has unknown id %q", path, i, p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("roster %s: duplicate worker %s", path, p.ID)
		}
		seen[p.ID] = true
		if p.MaxConcurrentTasks <= 0 {
			return nil, fmt.Errorf("roster %s: worker %s needs max_concurrent_tasks > 0", path, p.ID)
		}
		for _, k := range p.Kinds {
			if !k.Valid() {
				return nil, fmt.Errorf("roster %s: worker %s handles unknown kind %q", path, p.ID, k)
			}
		}
	}
	return rf.Workers, nil
}

// DefaultRoster returns the built-in agency roster: all six specialists,
// always on, with modest concurrency. Operating hours are left empty so
// the workers never go inactive; a real deployment overrides this with a
// roster file.
func DefaultRoster() []worker.Profile {
	profile := func(id models.WorkerID, kinds []models.TaskKind, concurrent int) worker.Profile {
		return worker.Profile{
			ID:                 id,
			Kinds:              kinds,
			MaxConcurrentTasks: concurrent,
			Enabled:            true,
		}
	}

	return []worker.Profile{
		profile(models.WorkerSales, []models.TaskKind{
			models.TaskKindProcessOffer, models.TaskKindGenerateValuation, models.TaskKindRespondToInquiry,
		}, 3),
		profile(models.WorkerRentals, []models.TaskKind{
			models.TaskKindRespondToInquiry, models.TaskKindScheduleViewing,
		}, 3),
		profile(models.WorkerMaintenance, []models.TaskKind{
			models.TaskKindCreateMaintenanceTicket, models.TaskKindDispatchContractor,
		}, 5),
		profile(models.WorkerMarketing, []models.TaskKind{
			models.TaskKindDraftListing,
		}, 2),
		profile(models.WorkerLeadGen, []models.TaskKind{
			models.TaskKindQualifyLead, models.TaskKindFollowUpLead,
		}, 4),
		// The office admin is the routing fallback, so it accepts every
		// kind, not just its own specialty.
		profile(models.WorkerAdmin, []models.TaskKind{
			models.TaskKindRespondToInquiry, models.TaskKindScheduleViewing,
			models.TaskKindProcessOffer, models.TaskKindCreateMaintenanceTicket,
			models.TaskKindDispatchContractor, models.TaskKindFollowUpLead,
			models.TaskKindGenerateValuation, models.TaskKindDraftListing,
			models.TaskKindQualifyLead, models.TaskKindEscalateToHuman,
		}, 5),
	}
}
