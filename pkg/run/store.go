package run

import (
	"github.com/skillbench/skillbench/pkg/asset"
)

// Store is the persistence surface the execution core needs. Documents are
// whole-document read/replace; the scheduler serializes writes per project.
// The concrete file-backed implementation lives in pkg/store and is wired in
// at composition time.
type Store interface {
	LoadProject(id string) (*asset.Project, error)
	SaveProject(p *asset.Project) error

	LoadSkill(projectID, skillID string) (*asset.Skill, error)
	LoadBaseline(projectID, baselineID string) (*asset.Baseline, error)

	HasResult(projectID, skillID, caseID string) (bool, error)
	LoadResult(projectID, skillID, caseID string) (*ResultRecord, error)
	SaveResult(projectID string, rec *ResultRecord) error
	ListResults(projectID string) ([]*ResultRecord, error)

	SaveSummary(projectID string, s *Summary) error
}

// BuildTasks expands a project's configured skills and baselines into the
// full task matrix. Tasks are grouped by skill in skill declaration order;
// case order within a skill follows baseline declaration order.
func BuildTasks(project *asset.Project, skills []*asset.Skill, baselines []*asset.Baseline) []*Task {
	var tasks []*Task
	for _, skill := range skills {
		for _, baseline := range baselines {
			for _, c := range baseline.Cases {
				tasks = append(tasks, &Task{
					SkillID:      skill.ID,
					SkillVersion: skill.Version,
					SkillName:    skill.Name,
					SkillContent: skill.Content,
					WorkDir:      skill.WorkDir,
					BaselineID:   baseline.ID,
					CaseID:       c.ID,
					Input:        c.Input,
					Expected:     c.Expected,
				})
			}
		}
	}
	return tasks
}
