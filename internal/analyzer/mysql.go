package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type mysqlExplainRoot struct {
	QueryBlock mysqlQueryBlock `json:"query_block"`
}

type mysqlQueryBlock struct {
	CostInfo   mysqlCostInfo     `json:"cost_info"`
	Table      *mysqlTableAccess `json:"table"`
	NestedLoop []mysqlNestedItem `json:"nested_loop"`
	Grouping   *mysqlQueryBlock  `json:"grouping_operation"`
	Ordering   *mysqlQueryBlock  `json:"ordering_operation"`
}

type mysqlNestedItem struct {
	Table *mysqlTableAccess `json:"table"`
}

type mysqlTableAccess struct {
	TableName           string `json:"table_name"`
	AccessType          string `json:"access_type"` // ALL, index, range, ref, eq_ref, const, system, fulltext
	Key                 string `json:"key"`
	RowsExaminedPerScan int64  `json:"rows_examined_per_scan"`
}

type mysqlCostInfo struct {
	QueryCost string `json:"query_cost"`
}

// parseMySQLPlan parses EXPLAIN FORMAT=JSON output. MariaDB emits the same
// query_block layout without cost_info, which leaves Cost at zero.
func parseMySQLPlan(raw string) (*Plan, error) {
	var root mysqlExplainRoot
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	plan := &Plan{}
	if cost, err := strconv.ParseFloat(root.QueryBlock.CostInfo.QueryCost, 64); err == nil {
		plan.Cost = cost
	}
	walkMySQLBlock(&root.QueryBlock, plan)
	return plan, nil
}

func walkMySQLBlock(block *mysqlQueryBlock, plan *Plan) {
	if block == nil {
		return
	}
	addMySQLTable(block.Table, plan)
	for _, item := range block.NestedLoop {
		addMySQLTable(item.Table, plan)
	}
	walkMySQLBlock(block.Grouping, plan)
	walkMySQLBlock(block.Ordering, plan)
}

func addMySQLTable(table *mysqlTableAccess, plan *Plan) {
	if table == nil {
		return
	}
	if table.Key != "" {
		markIndex(plan, table.Key)
	}
	if table.AccessType == "ALL" {
		plan.FullScan = true
	}
	plan.EstimatedRows += table.RowsExaminedPerScan
}

var (
	// "-> Index lookup on p using idx_status (status='a')  (cost=0.35 rows=1) (actual time=0.021..0.023 rows=1 loops=1)"
	mysqlTreeIndex  = regexp.MustCompile(`(?i)(?:index lookup|index scan|index range scan|covering index lookup|single-row index lookup|full-text index search) on \S+ using (\S+)`)
	mysqlTreeActual = regexp.MustCompile(`actual time=[\d.]+\.\.([\d.]+) rows=([\d.]+) loops=(\d+)`)
	mysqlTreeCost   = regexp.MustCompile(`\(cost=([\d.]+) rows=([\d.]+)\)`)
)

// parseMySQLTree parses the tree text returned by EXPLAIN ANALYZE.
// The first node carries the totals for the whole statement.
func parseMySQLTree(lines []string) *Plan {
	plan := &Plan{}
	text := strings.Join(lines, "\n")

	for _, line := range strings.Split(text, "\n") {
		if m := mysqlTreeIndex.FindStringSubmatch(line); m != nil {
			markIndex(plan, strings.Trim(m[1], "`"))
		}
		if strings.Contains(strings.ToLower(line), "table scan on ") {
			plan.FullScan = true
		}
	}

	if m := mysqlTreeCost.FindStringSubmatch(text); m != nil {
		plan.Cost, _ = strconv.ParseFloat(m[1], 64)
		rows, _ := strconv.ParseFloat(m[2], 64)
		plan.EstimatedRows = int64(rows)
	}
	if m := mysqlTreeActual.FindStringSubmatch(text); m != nil {
		ms, _ := strconv.ParseFloat(m[1], 64)
		plan.ActualTime = time.Duration(ms * float64(time.Millisecond))
		rows, _ := strconv.ParseFloat(m[2], 64)
		loops, _ := strconv.ParseInt(m[3], 10, 64)
		plan.ActualRows = int64(rows) * loops
	}
	return plan
}
