package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/allocmesh/agent"
	"github.com/hupe1980/allocmesh/logging"
)

// Expert ratings, ordered worst to best.
const (
	RatingPoor       = "poor"
	RatingAcceptable = "acceptable"
	RatingGood       = "good"
	RatingOptimal    = "optimal"
)

// ExpertFeedback is one expert's structured assessment of an allocation.
type ExpertFeedback struct {
	Expert          string   `json:"expert"`
	Rating          string   `json:"rating"`
	Recommendations []string `json:"recommendations,omitempty"`
	Concerns        []string `json:"concerns,omitempty"`
	Degraded        bool     `json:"degraded,omitempty"` // true when this entry substitutes for a failed evaluation
}

// Approved reports whether this feedback counts toward expert consensus.
func (f ExpertFeedback) Approved() bool {
	switch strings.ToLower(f.Rating) {
	case RatingGood, RatingOptimal:
		return true
	}
	return false
}

// expertReply is the schema each panel member must answer with.
type expertReply struct {
	Rating          string   `json:"rating" enum:"poor,acceptable,good,optimal" description:"Overall assessment of the allocation"`
	Recommendations []string `json:"recommendations" description:"Concrete changes that would improve the allocation"`
	Concerns        []string `json:"concerns,omitempty" description:"Risks or weaknesses worth flagging"`
}

// Panel evaluates an allocation with several experts at once. Evaluations are
// independent, so they fan out to one goroutine per expert; the approval count
// does not depend on completion order.
type Panel struct {
	experts []*agent.Agent
	logger  logging.Logger
}

// NewPanel builds a panel from already-configured expert agents.
func NewPanel(experts []*agent.Agent, logger logging.Logger) *Panel {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Panel{experts: experts, logger: logger}
}

// Size returns the number of experts on the panel.
func (p *Panel) Size() int { return len(p.experts) }

// Evaluate asks every expert for feedback on the allocation described by
// data. A failing expert never aborts the evaluation: its slot degrades to a
// neutral "acceptable" entry that does not count as an approval, and the
// failure is logged. Results are returned in panel order.
func (p *Panel) Evaluate(ctx context.Context, data map[string]any) ([]ExpertFeedback, int) {
	feedback := make([]ExpertFeedback, len(p.experts))

	var wg sync.WaitGroup
	for i, expert := range p.experts {
		wg.Add(1)
		go func(i int, expert *agent.Agent) {
			defer wg.Done()
			feedback[i] = p.evaluateOne(ctx, expert, data)
		}(i, expert)
	}
	wg.Wait()

	approvals := 0
	for _, f := range feedback {
		if f.Approved() {
			approvals++
		}
	}
	return feedback, approvals
}

func (p *Panel) evaluateOne(ctx context.Context, expert *agent.Agent, data map[string]any) ExpertFeedback {
	res, err := expert.Execute(ctx, data)
	if err != nil {
		p.logger.Warn("expert evaluation degraded", "expert", expert.Name(), "error", err.Error())
		return ExpertFeedback{
			Expert:   expert.Name(),
			Rating:   RatingAcceptable,
			Concerns: []string{"expert evaluation unavailable; neutral rating substituted"},
			Degraded: true,
		}
	}

	var reply expertReply
	if err := res.Decode(&reply); err != nil {
		p.logger.Warn("expert evaluation degraded", "expert", expert.Name(), "error", err.Error())
		return ExpertFeedback{
			Expert:   expert.Name(),
			Rating:   RatingAcceptable,
			Concerns: []string{"expert evaluation unavailable; neutral rating substituted"},
			Degraded: true,
		}
	}
	return ExpertFeedback{
		Expert:          expert.Name(),
		Rating:          strings.ToLower(reply.Rating),
		Recommendations: reply.Recommendations,
		Concerns:        reply.Concerns,
	}
}
