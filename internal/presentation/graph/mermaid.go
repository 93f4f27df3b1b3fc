package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/wizard"
)

// GenerateMermaid renders the step flow of def as a Mermaid flowchart.
//
// Steps are rectangles listing their fields, the entry point is a circle and
// the record write is a subroutine. Forward edges are validated moves; the
// dotted edges are the unvalidated Back moves. When indicators are given,
// completed steps and the current step get their own classes.
func GenerateMermaid(def *wizard.Definition, indicators []domain.StepIndicator) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("    start((\"" + escape(def.DisplayName) + "\"))\n")

	prev := "start"
	for i, step := range def.Steps {
		id := nodeID(step.ID)
		label := escape(step.DisplayName)
		if len(step.Fields) > 0 {
			label += "<br/><small>" + escape(strings.Join(step.Fields, ", ")) + "</small>"
		}
		fmt.Fprintf(&sb, "    %s[\"%d. %s\"]\n", id, i, label)
		if prev == "start" {
			fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		} else {
			fmt.Fprintf(&sb, "    %s -- next --> %s\n", prev, id)
			fmt.Fprintf(&sb, "    %s -. back .-> %s\n", id, prev)
		}
		prev = id
	}

	fmt.Fprintf(&sb, "    submit[[\"save %s\"]]\n", escape(def.Resource))
	if prev != "start" {
		fmt.Fprintf(&sb, "    %s -- submit --> submit\n", prev)
	}

	if len(indicators) > 0 {
		sb.WriteString("\n    %% Progress\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, ind := range indicators {
			switch ind.Status {
			case domain.StepCompleted:
				fmt.Fprintf(&sb, "    class %s visited;\n", nodeID(ind.ID))
			case domain.StepCurrent:
				fmt.Fprintf(&sb, "    class %s current;\n", nodeID(ind.ID))
			}
		}
	}
	return sb.String()
}

func nodeID(id domain.StepID) string {
	s := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(string(id))
	// Mermaid reserves "end" and the names used for the fixed nodes.
	switch s {
	case "end", "start", "submit":
		return "step_" + s
	}
	return s
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
