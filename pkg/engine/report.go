package engine

import (
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/catengine/pkg/model"
)

// SlotReport summarizes one slot's step-result history for a bench
// report, additive tooling around the facade (not a new core behavior)
// mirroring the teacher's RunManifest/StepsSummary pattern.
type SlotReport struct {
	SlotID  uint32 `yaml:"slot_id"`
	SN      string `yaml:"sn,omitempty"`
	Status  string `yaml:"status"`
	Total   int    `yaml:"total"`
	Passed  int    `yaml:"passed"`
	Failed  int    `yaml:"failed"`
	Errored int    `yaml:"errored"`
	Skipped int    `yaml:"skipped"`
}

// BenchReport aggregates every slot's report after a run.
type BenchReport struct {
	Slots []SlotReport `yaml:"slots"`
}

// BuildReport summarizes the current state of every slot.
func (e *Engine) BuildReport() BenchReport {
	e.slotsMu.RLock()
	defer e.slotsMu.RUnlock()

	report := BenchReport{}
	for _, sc := range e.slots {
		results := sc.StepResults()
		sr := SlotReport{SlotID: sc.SlotID, SN: sc.SN(), Status: sc.Status().String(), Total: len(results)}
		for _, r := range results {
			switch r.Status {
			case model.StepPassed, model.StepSkipped:
				if r.Status == model.StepSkipped {
					sr.Skipped++
				} else {
					sr.Passed++
				}
			case model.StepFailed, model.StepTimeout:
				sr.Failed++
			case model.StepError:
				sr.Errored++
			}
		}
		report.Slots = append(report.Slots, sr)
	}
	return report
}

// WriteReportYAML marshals a report to YAML, grounded on the teacher's
// RunManifest/WriteManifest use of gopkg.in/yaml.v3.
func WriteReportYAML(report BenchReport) ([]byte, error) {
	return yaml.Marshal(report)
}
