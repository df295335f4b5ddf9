package formatting

import (
	"stevedore/internal/dependency"
)

// PlanLevel is the serialized form of one plan level.
type PlanLevel struct {
	Level    int         `json:"level"`
	Services []PlanEntry `json:"services"`
}

// PlanEntry is one service of a PlanLevel.
type PlanEntry struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// PlanView is the serialized form of a plan.
type PlanView struct {
	Levels []PlanLevel `json:"levels"`
}

// NewPlanView converts p for JSON or YAML output.
func NewPlanView(p *dependency.Plan) PlanView {
	view := PlanView{Levels: make([]PlanLevel, 0, len(p.Levels))}
	for i, names := range p.Levels {
		lvl := PlanLevel{Level: i}
		for _, name := range names {
			entry := PlanEntry{Name: name}
			if g := p.Graph(); g != nil {
				entry.DependsOn = g.Dependencies(name)
			}
			lvl.Services = append(lvl.Services, entry)
		}
		view.Levels = append(view.Levels, lvl)
	}
	return view
}
