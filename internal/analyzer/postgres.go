package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type postgresExplainRoot struct {
	Plan          postgresPlanNode `json:"Plan"`
	ExecutionTime float64          `json:"Execution Time"` // milliseconds, ANALYZE only
}

type postgresPlanNode struct {
	NodeType    string             `json:"Node Type"`
	IndexName   string             `json:"Index Name"`
	TotalCost   float64            `json:"Total Cost"`
	PlanRows    int64              `json:"Plan Rows"`
	ActualRows  int64              `json:"Actual Rows"`
	ActualLoops int64              `json:"Actual Loops"`
	Plans       []postgresPlanNode `json:"Plans"`
}

// parsePostgresPlan parses EXPLAIN (FORMAT JSON) output, a one-element array.
func parsePostgresPlan(raw string, analyzed bool) (*Plan, error) {
	var roots []postgresExplainRoot
	if err := json.Unmarshal([]byte(raw), &roots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if len(roots) == 0 {
		return nil, errors.New("empty EXPLAIN output")
	}

	root := roots[0]
	plan := &Plan{
		Cost:          root.Plan.TotalCost,
		EstimatedRows: root.Plan.PlanRows,
	}
	walkPostgresPlan(&root.Plan, plan, analyzed)

	if analyzed && root.ExecutionTime > 0 {
		plan.ActualTime = time.Duration(root.ExecutionTime * float64(time.Millisecond))
	}
	return plan, nil
}

func walkPostgresPlan(node *postgresPlanNode, plan *Plan, analyzed bool) {
	switch {
	case strings.Contains(node.NodeType, "Index Scan"), strings.Contains(node.NodeType, "Index Only Scan"):
		markIndex(plan, node.IndexName)
	case node.NodeType == "Seq Scan":
		plan.FullScan = true
	}

	if analyzed && node.ActualRows > 0 {
		loops := node.ActualLoops
		if loops == 0 {
			loops = 1
		}
		plan.ActualRows += node.ActualRows * loops
	}

	for i := range node.Plans {
		walkPostgresPlan(&node.Plans[i], plan, analyzed)
	}
}
