// Package store persists every document the harness reads and writes:
// authored assets as kind-validated YAML, machine-written run artifacts as
// JSON. All operations are whole-document read/replace with atomic writes;
// callers serialize writes per project.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/skillbench/skillbench/pkg/asset"
	"github.com/skillbench/skillbench/pkg/optimize"
	"github.com/skillbench/skillbench/pkg/run"
)

// FileStore is the file-backed document store. One directory per project:
//
//	projects/<id>/project.yaml
//	projects/<id>/skills/<skillID>.yaml
//	projects/<id>/baselines/<baselineID>.yaml
//	projects/<id>/results/<skillID>__<caseID>.json
//	projects/<id>/summary.json
//	projects/<id>/rounds/<iterationID>-round-<n>.json
//	projects/<id>/report.json
//	projects/<id>/exploration-log.json
type FileStore struct {
	basePath string
}

var (
	_ run.Store      = &FileStore{}
	_ optimize.Store = &FileStore{}
)

// NewFileStore creates a store rooted at basePath, creating it if needed.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) projectDir(projectID string) string {
	return filepath.Join(s.basePath, "projects", projectID)
}

// writeAtomic writes data to a temporary file and renames it into place so
// a reader never observes a half-written document.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create document directory")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write temporary document")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to rename temporary document")
	}
	return nil
}

func writeYAML(path string, doc any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}
	return writeAtomic(path, data)
}

func readYAML(path string, doc any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, doc)
}

func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}
	return writeAtomic(path, data)
}

func readJSON(path string, doc any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, doc)
}

// LoadProject reads a project document.
func (s *FileStore) LoadProject(id string) (*asset.Project, error) {
	project := &asset.Project{}
	if err := readYAML(filepath.Join(s.projectDir(id), "project.yaml"), project); err != nil {
		return nil, errors.Wrapf(err, "failed to load project %s", id)
	}
	return project, nil
}

// SaveProject replaces a project document.
func (s *FileStore) SaveProject(p *asset.Project) error {
	p.Kind = asset.KindProject
	return writeYAML(filepath.Join(s.projectDir(p.ID), "project.yaml"), p)
}

// LoadSkill reads one skill asset.
func (s *FileStore) LoadSkill(projectID, skillID string) (*asset.Skill, error) {
	skill := &asset.Skill{}
	path := filepath.Join(s.projectDir(projectID), "skills", skillID+".yaml")
	if err := readYAML(path, skill); err != nil {
		return nil, errors.Wrapf(err, "failed to load skill %s", skillID)
	}
	return skill, nil
}

// SaveSkill writes one skill asset.
func (s *FileStore) SaveSkill(projectID string, skill *asset.Skill) error {
	skill.Kind = asset.KindSkill
	path := filepath.Join(s.projectDir(projectID), "skills", skill.ID+".yaml")
	return writeYAML(path, skill)
}

// LoadBaseline reads one baseline asset.
func (s *FileStore) LoadBaseline(projectID, baselineID string) (*asset.Baseline, error) {
	baseline := &asset.Baseline{}
	path := filepath.Join(s.projectDir(projectID), "baselines", baselineID+".yaml")
	if err := readYAML(path, baseline); err != nil {
		return nil, errors.Wrapf(err, "failed to load baseline %s", baselineID)
	}
	return baseline, nil
}

// SaveBaseline writes one baseline asset.
func (s *FileStore) SaveBaseline(projectID string, baseline *asset.Baseline) error {
	baseline.Kind = asset.KindBaseline
	path := filepath.Join(s.projectDir(projectID), "baselines", baseline.ID+".yaml")
	return writeYAML(path, baseline)
}

func (s *FileStore) resultPath(projectID, skillID, caseID string) string {
	return filepath.Join(s.projectDir(projectID), "results", skillID+"__"+caseID+".json")
}

// HasResult reports whether a result record exists for the task identity.
func (s *FileStore) HasResult(projectID, skillID, caseID string) (bool, error) {
	_, err := os.Stat(s.resultPath(projectID, skillID, caseID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// LoadResult reads the result record for the task identity.
func (s *FileStore) LoadResult(projectID, skillID, caseID string) (*run.ResultRecord, error) {
	record := &run.ResultRecord{}
	if err := readJSON(s.resultPath(projectID, skillID, caseID), record); err != nil {
		return nil, err
	}
	return record, nil
}

// SaveResult writes one result record, replacing any prior record for the
// same identity.
func (s *FileStore) SaveResult(projectID string, rec *run.ResultRecord) error {
	return writeJSON(s.resultPath(projectID, rec.SkillID, rec.CaseID), rec)
}

// ListResults reads every result record for a project.
func (s *FileStore) ListResults(projectID string) ([]*run.ResultRecord, error) {
	dir := filepath.Join(s.projectDir(projectID), "results")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list result records")
	}

	records := make([]*run.ResultRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		record := &run.ResultRecord{}
		if err := readJSON(filepath.Join(dir, entry.Name()), record); err != nil {
			return nil, errors.Wrapf(err, "failed to read result record %s", entry.Name())
		}
		records = append(records, record)
	}
	return records, nil
}

// DeleteResults removes every result record for a project.
func (s *FileStore) DeleteResults(projectID string) error {
	dir := filepath.Join(s.projectDir(projectID), "results")
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, "failed to delete result records")
	}
	return nil
}

// SaveSummary writes the run summary document.
func (s *FileStore) SaveSummary(projectID string, summary *run.Summary) error {
	return writeJSON(filepath.Join(s.projectDir(projectID), "summary.json"), summary)
}

// LoadSummary reads the run summary document.
func (s *FileStore) LoadSummary(projectID string) (*run.Summary, error) {
	summary := &run.Summary{}
	if err := readJSON(filepath.Join(s.projectDir(projectID), "summary.json"), summary); err != nil {
		return nil, errors.Wrapf(err, "failed to load summary for project %s", projectID)
	}
	return summary, nil
}

// SaveRound writes one round snapshot.
func (s *FileStore) SaveRound(projectID, iterationID string, round *optimize.Round) error {
	name := fmt.Sprintf("%s-round-%d.json", iterationID, round.Number)
	return writeJSON(filepath.Join(s.projectDir(projectID), "rounds", name), round)
}

// SaveReport writes the final iteration report.
func (s *FileStore) SaveReport(projectID string, report *optimize.Report) error {
	return writeJSON(filepath.Join(s.projectDir(projectID), "report.json"), report)
}

// LoadReport reads the last iteration report.
func (s *FileStore) LoadReport(projectID string) (*optimize.Report, error) {
	report := &optimize.Report{}
	if err := readJSON(filepath.Join(s.projectDir(projectID), "report.json"), report); err != nil {
		return nil, errors.Wrapf(err, "failed to load report for project %s", projectID)
	}
	return report, nil
}

// SaveExplorationLog writes the full exploration log.
func (s *FileStore) SaveExplorationLog(projectID string, log *optimize.ExplorationLog) error {
	return writeJSON(filepath.Join(s.projectDir(projectID), "exploration-log.json"), log)
}

// LoadExplorationLog reads the exploration log.
func (s *FileStore) LoadExplorationLog(projectID string) (*optimize.ExplorationLog, error) {
	log := &optimize.ExplorationLog{}
	if err := readJSON(filepath.Join(s.projectDir(projectID), "exploration-log.json"), log); err != nil {
		return nil, errors.Wrapf(err, "failed to load exploration log for project %s", projectID)
	}
	return log, nil
}
