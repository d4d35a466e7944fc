package models

import (
	"bytes"
	"encoding/json"
)

// SpecSchemaVersion is the version stamped into every document's metadata.
const SpecSchemaVersion = "0.1.0"

// SpecGenerator identifies this tool in document metadata.
const SpecGenerator = "c4pm"

// ProposedSolution is the solution section of a specification document.
type ProposedSolution struct {
	Summary          string `json:"summary" yaml:"summary"`
	UIChanges        Items  `json:"ui_changes" yaml:"ui_changes"`
	DataModelChanges Items  `json:"data_model_changes" yaml:"data_model_changes"`
	APIChanges       Items  `json:"api_changes" yaml:"api_changes"`
	WorkflowChanges  Items  `json:"workflow_changes" yaml:"workflow_changes"`
}

// UnmarshalJSON accepts a bare string as the solution summary.
func (s *ProposedSolution) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var summary flexString
		if err := json.Unmarshal(data, &summary); err != nil {
			return err
		}
		*s = emptySolution()
		s.Summary = string(summary)
		return nil
	}
	var aux struct {
		Summary          flexString `json:"summary"`
		UIChanges        Items      `json:"ui_changes"`
		DataModelChanges Items      `json:"data_model_changes"`
		APIChanges       Items      `json:"api_changes"`
		WorkflowChanges  Items      `json:"workflow_changes"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = ProposedSolution{
		Summary:          string(aux.Summary),
		UIChanges:        orEmpty(aux.UIChanges),
		DataModelChanges: orEmpty(aux.DataModelChanges),
		APIChanges:       orEmpty(aux.APIChanges),
		WorkflowChanges:  orEmpty(aux.WorkflowChanges),
	}
	return nil
}

func emptySolution() ProposedSolution {
	return ProposedSolution{
		UIChanges:        Items{},
		DataModelChanges: Items{},
		APIChanges:       Items{},
		WorkflowChanges:  Items{},
	}
}

// SpecMetadata is appended locally to every specification document.
type SpecMetadata struct {
	SourceProblem string          `json:"source_problem" yaml:"source_problem"`
	ImpactScore   int             `json:"impact_score" yaml:"impact_score"`
	Confidence    ConfidenceLabel `json:"confidence" yaml:"confidence"`
	UserSegment   string          `json:"user_segment" yaml:"user_segment"`
	Severity      string          `json:"severity" yaml:"severity"`
	GeneratedBy   string          `json:"generated_by" yaml:"generated_by"`
	Version       string          `json:"version" yaml:"version"`
}

// SpecificationDocument is the build specification for one ranked problem.
type SpecificationDocument struct {
	ProblemStatement    string           `json:"problem_statement" yaml:"problem_statement"`
	UserStories         Items            `json:"user_stories" yaml:"user_stories"`
	ProposedSolution    ProposedSolution `json:"proposed_solution" yaml:"proposed_solution"`
	AcceptanceCriteria  Items            `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	OutOfScope          Items            `json:"out_of_scope" yaml:"out_of_scope"`
	SuccessMetrics      Items            `json:"success_metrics" yaml:"success_metrics"`
	Risks               Items            `json:"risks" yaml:"risks"`
	ImplementationHints Items            `json:"implementation_hints" yaml:"implementation_hints"`
	EvidenceSummary     Items            `json:"evidence_summary" yaml:"evidence_summary"`
	Metadata            *SpecMetadata    `json:"_metadata,omitempty" yaml:"_metadata,omitempty"`

	// hasEvidenceSummary records whether the decoded source carried the key.
	hasEvidenceSummary bool
}

// UnmarshalJSON decodes a document tolerating loosely typed sections.
// A _metadata block in the input is ignored; metadata is always attached
// locally.
func (d *SpecificationDocument) UnmarshalJSON(data []byte) error {
	var aux struct {
		ProblemStatement    flexString        `json:"problem_statement"`
		UserStories         Items             `json:"user_stories"`
		ProposedSolution    *ProposedSolution `json:"proposed_solution"`
		AcceptanceCriteria  Items             `json:"acceptance_criteria"`
		OutOfScope          Items             `json:"out_of_scope"`
		SuccessMetrics      Items             `json:"success_metrics"`
		Risks               Items             `json:"risks"`
		ImplementationHints Items             `json:"implementation_hints"`
		EvidenceSummary     *Items            `json:"evidence_summary"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	solution := emptySolution()
	if aux.ProposedSolution != nil {
		solution = *aux.ProposedSolution
	}
	*d = SpecificationDocument{
		ProblemStatement:    string(aux.ProblemStatement),
		UserStories:         orEmpty(aux.UserStories),
		ProposedSolution:    solution,
		AcceptanceCriteria:  orEmpty(aux.AcceptanceCriteria),
		OutOfScope:          orEmpty(aux.OutOfScope),
		SuccessMetrics:      orEmpty(aux.SuccessMetrics),
		Risks:               orEmpty(aux.Risks),
		ImplementationHints: orEmpty(aux.ImplementationHints),
		EvidenceSummary:     Items{},
	}
	// An explicit null still counts as present and stays empty.
	_, d.hasEvidenceSummary = keys["evidence_summary"]
	if aux.EvidenceSummary != nil {
		d.EvidenceSummary = orEmpty(*aux.EvidenceSummary)
	}
	return nil
}

// HasEvidenceSummary reports whether the decoded source carried an
// evidence_summary key, null or not.
func (d *SpecificationDocument) HasEvidenceSummary() bool {
	return d.hasEvidenceSummary
}

// EmptySpecification returns a document with every section present and empty.
func EmptySpecification() *SpecificationDocument {
	return &SpecificationDocument{
		UserStories:         Items{},
		ProposedSolution:    emptySolution(),
		AcceptanceCriteria:  Items{},
		OutOfScope:          Items{},
		SuccessMetrics:      Items{},
		Risks:               Items{},
		ImplementationHints: Items{},
		EvidenceSummary:     Items{},
	}
}

func orEmpty(it Items) Items {
	if it == nil {
		return Items{}
	}
	return it
}
