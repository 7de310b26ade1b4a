package pipeline

// Phase names, in execution order.
const (
	PhaseExtraction        = "extraction"
	PhaseStructureEntities = "structure_entities"
	PhaseContentAnalysis   = "content_analysis"
	PhaseHistoricalContext = "historical_context"
)

// Tool names served by agent workers.
const (
	ToolExtractMetadata   = "extract_metadata"
	ToolDetectStructure   = "detect_structure"
	ToolExtractEntities   = "extract_entities"
	ToolSummarizeContent  = "summarize_content"
	ToolClassifyTopics    = "classify_topics"
	ToolHistoricalContext = "historical_context"
)

// ToolSpec declares one tool invocation within a phase: the fields its
// payload contributes and the estimated cost recorded when the agent
// does not report one.
type ToolSpec struct {
	Name         string
	Fields       []string
	CostEstimate float64
}

// PhaseSpec groups the independent tool invocations of one phase.
// Tools within a phase target disjoint fields and may run concurrently;
// phases execute strictly in order. Expensive phases are gated by the
// budget governor.
type PhaseSpec struct {
	Name      string
	Tools     []ToolSpec
	Expensive bool
}

// DefaultPhases returns the enrichment phase sequence: metadata
// extraction, structure and entity detection, content analysis, and the
// budget-gated historical context synthesis.
func DefaultPhases() []PhaseSpec {
	return []PhaseSpec{
		{
			Name: PhaseExtraction,
			Tools: []ToolSpec{
				{
					Name: ToolExtractMetadata,
					Fields: []string{
						"sender_identity",
						"recipient_identity",
						"document_date",
						"document_type",
					},
					CostEstimate: 0.02,
				},
			},
		},
		{
			Name: PhaseStructureEntities,
			Tools: []ToolSpec{
				{
					Name:         ToolDetectStructure,
					Fields:       []string{"sections"},
					CostEstimate: 0.02,
				},
				{
					Name:         ToolExtractEntities,
					Fields:       []string{"entities"},
					CostEstimate: 0.03,
				},
			},
		},
		{
			Name: PhaseContentAnalysis,
			Tools: []ToolSpec{
				{
					Name:         ToolSummarizeContent,
					Fields:       []string{"summary"},
					CostEstimate: 0.05,
				},
				{
					Name:         ToolClassifyTopics,
					Fields:       []string{"topics"},
					CostEstimate: 0.01,
				},
			},
		},
		{
			Name:      PhaseHistoricalContext,
			Expensive: true,
			Tools: []ToolSpec{
				{
					Name:         ToolHistoricalContext,
					Fields:       []string{"historical_context"},
					CostEstimate: 0.25,
				},
			},
		},
	}
}

// DefaultRequiredFields returns the fields counted toward the
// completeness score.
func DefaultRequiredFields() []string {
	return []string{
		"sender_identity",
		"recipient_identity",
		"document_date",
		"summary",
		"entities",
		"topics",
	}
}

// DefaultCriticalFields returns the fields whose absence always routes
// a document to review regardless of score.
func DefaultCriticalFields() []string {
	return []string{"sender_identity"}
}

// ApplyCosts overrides tool cost estimates from configuration.
func ApplyCosts(phases []PhaseSpec, costs map[string]float64) []PhaseSpec {
	if len(costs) == 0 {
		return phases
	}
	for i := range phases {
		for j := range phases[i].Tools {
			if cost, ok := costs[phases[i].Tools[j].Name]; ok && cost > 0 {
				phases[i].Tools[j].CostEstimate = cost
			}
		}
	}
	return phases
}
