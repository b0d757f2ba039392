package worker

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jeffkershner/subconscious-demo/internal/job"
)

// StepSource opens the stream of work steps for one prompt. The worker
// publishes each step as a node event; a Next error other than io.EOF
// fails the job.
type StepSource interface {
	Steps(prompt string) Steps
}

// Steps yields work nodes in parent-before-child order. Next returns
// io.EOF once the work is exhausted.
type Steps interface {
	Next() (job.Node, error)
}

// PlanStep is one step template of a work plan. Children nest arbitrarily;
// "{prompt}" in Content is replaced with the job's (truncated) prompt.
type PlanStep struct {
	Title    string     `yaml:"title"`
	Content  string     `yaml:"content"`
	Tool     string     `yaml:"tool,omitempty"`
	Children []PlanStep `yaml:"children,omitempty"`
}

// Plan is a tree of step templates expanded per job into concrete nodes.
type Plan struct {
	Steps []PlanStep `yaml:"steps"`
}

// LoadPlan reads a plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("plan %s has no steps", path)
	}
	return &p, nil
}

// DefaultPlan is the built-in stand-in for real inference work: a small
// analyze/search/synthesize tree.
func DefaultPlan() *Plan {
	return &Plan{Steps: []PlanStep{{
		Title:   "Analyzing request",
		Content: "Processing the task: {prompt}",
		Children: []PlanStep{
			{
				Title:   "Define approach",
				Content: "Breaking down the problem into manageable components and identifying the best strategy.",
				Children: []PlanStep{
					{
						Title:   "Analyze requirements",
						Content: "Identified key requirements: accuracy, relevance, and comprehensive coverage of the topic.",
					},
					{
						Title:   "Plan execution",
						Content: "Will proceed with parallel search followed by synthesis and summarization.",
					},
				},
			},
			{
				Title:   "Execute search",
				Content: "Launching parallel search across multiple knowledge sources.",
				Tool:    "ParallelSearch",
				Children: []PlanStep{
					{
						Title:   "Query primary sources",
						Content: "Retrieved relevant information from primary knowledge base with high confidence scores.",
					},
					{
						Title:   "Query secondary sources",
						Content: "Found supplementary information to provide additional context and verification.",
					},
				},
			},
			{
				Title:   "Synthesize results",
				Content: "Combining and cross-referencing information from all sources.",
				Children: []PlanStep{
					{
						Title:   "Cross-reference findings",
						Content: "Validated consistency across sources. No conflicting information detected.",
					},
				},
			},
			{
				Title:   "Generate response",
				Content: "Compiled final response with synthesized information and supporting details.",
			},
		},
	}}}
}

// Expand instantiates the plan for a prompt: fresh node ids, depth-first
// order so every parent precedes its children.
func (p *Plan) Expand(prompt string) []job.Node {
	short := prompt
	if len(short) > 100 {
		short = short[:100] + "..."
	}

	var nodes []job.Node
	var walk func(steps []PlanStep, parentID *string, depth int)
	walk = func(steps []PlanStep, parentID *string, depth int) {
		for _, s := range steps {
			n := job.Node{
				ID:       uuid.NewString(),
				ParentID: parentID,
				Title:    s.Title,
				Content:  strings.ReplaceAll(s.Content, "{prompt}", short),
				Status:   job.StatusComplete,
				Depth:    depth,
			}
			if s.Tool != "" {
				tool := s.Tool
				n.ToolUsed = &tool
			}
			nodes = append(nodes, n)
			walk(s.Children, &n.ID, depth+1)
		}
	}
	walk(p.Steps, nil, 0)
	return nodes
}

// PlanSource is the StepSource over a fixed plan.
type PlanSource struct {
	plan *Plan
}

func NewPlanSource(p *Plan) *PlanSource {
	return &PlanSource{plan: p}
}

func (s *PlanSource) Steps(prompt string) Steps {
	return &planSteps{nodes: s.plan.Expand(prompt)}
}

type planSteps struct {
	nodes []job.Node
	next  int
}

func (s *planSteps) Next() (job.Node, error) {
	if s.next >= len(s.nodes) {
		return job.Node{}, io.EOF
	}
	n := s.nodes[s.next]
	s.next++
	return n, nil
}
