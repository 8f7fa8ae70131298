package pipeline

import (
	"fmt"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
)

// Stage names shared between plans and executors.
const (
	StageText  = "text"
	StageImage = "image"
	StageAudio = "audio"
	StageIndex = "index"
)

// Step pairs an executor with the cumulative progress percent the job
// reaches once the step completes, and the step label shown to clients.
type Step struct {
	Executor Executor
	Percent  int
	Label    string
}

// Plan is the fixed ordered stage sequence for one job type. The final
// step's percent is always 100.
type Plan []Step

type stageWeight struct {
	name    string
	percent int
	label   string
}

// planTable fixes the canonical monotonic progress allocation per job type.
var planTable = map[domain.JobType][]stageWeight{
	domain.JobTypeCompleteStory: {
		{StageText, 30, "Generating story text"},
		{StageImage, 60, "Illustrating pages"},
		{StageAudio, 90, "Narrating audio"},
		{StageIndex, 100, "Packaging story"},
	},
	domain.JobTypeStoryGenerate: {
		{StageText, 90, "Generating story text"},
		{StageIndex, 100, "Packaging story"},
	},
	domain.JobTypeImageGenerate: {
		{StageImage, 90, "Illustrating pages"},
		{StageIndex, 100, "Packaging story"},
	},
	domain.JobTypeTTSGenerate: {
		{StageAudio, 90, "Narrating audio"},
		{StageIndex, 100, "Packaging story"},
	},
}

// BuildPlans resolves the plan table against the registered executors.
// Every job type must have a plan and every plan step an executor.
func BuildPlans(executors map[string]Executor) (map[domain.JobType]Plan, error) {
	plans := make(map[domain.JobType]Plan, len(planTable))
	for jobType, weights := range planTable {
		plan := make(Plan, 0, len(weights))
		last := 0
		for _, w := range weights {
			exec, ok := executors[w.name]
			if !ok {
				return nil, fmt.Errorf("plan %s: no executor registered for stage %q", jobType, w.name)
			}
			if w.percent <= last {
				return nil, fmt.Errorf("plan %s: stage %q percent %d not increasing", jobType, w.name, w.percent)
			}
			last = w.percent
			plan = append(plan, Step{Executor: exec, Percent: w.percent, Label: w.label})
		}
		if last != 100 {
			return nil, fmt.Errorf("plan %s: final percent %d, want 100", jobType, last)
		}
		plans[jobType] = plan
	}
	return plans, nil
}
