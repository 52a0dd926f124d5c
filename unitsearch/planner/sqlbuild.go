package planner

import (
	"fmt"
	"strings"
)

// CTE represents a Common Table Expression
type CTE struct {
	Name string
	SQL  string
}

// SQLPlan is a predicate rendered as a chain of CTEs, each selecting a
// record_id column. ResultCTE names the final one.
type SQLPlan struct {
	CTEs         []CTE
	ResultCTE    string
	ExplainSteps []string
}

type sqlCompiler struct {
	tables     Tables
	dialect    Dialect
	builder    Builder
	ctes       []CTE
	steps      []string
	cteCounter int
}

// BuildPlan renders p into CTEs. Placeholders are allocated from b in
// order of appearance.
func BuildPlan(tables Tables, dialect Dialect, b Builder, p Predicate) *SQLPlan {
	c := &sqlCompiler{tables: tables, dialect: dialect, builder: b}
	result := c.compile(p)
	return &SQLPlan{CTEs: c.ctes, ResultCTE: result, ExplainSteps: c.steps}
}

func (c *sqlCompiler) nextCTEName() string {
	name := fmt.Sprintf("cte_%d", c.cteCounter)
	c.cteCounter++
	return name
}

func (c *sqlCompiler) add(sql, step string) string {
	name := c.nextCTEName()
	c.ctes = append(c.ctes, CTE{Name: name, SQL: sql})
	c.steps = append(c.steps, fmt.Sprintf("%s: %s", name, step))
	return name
}

func (c *sqlCompiler) compile(p Predicate) string {
	switch q := p.(type) {
	case And:
		left, right := c.compile(q.Left), c.compile(q.Right)
		return c.add(fmt.Sprintf("SELECT record_id FROM %s INTERSECT SELECT record_id FROM %s", left, right),
			fmt.Sprintf("INTERSECT %s AND %s", left, right))

	case Or:
		left, right := c.compile(q.Left), c.compile(q.Right)
		return c.add(fmt.Sprintf("SELECT record_id FROM %s UNION SELECT record_id FROM %s", left, right),
			fmt.Sprintf("UNION %s OR %s", left, right))

	case Not:
		inner := c.compile(q.Inner)
		return c.add(fmt.Sprintf("SELECT id AS record_id FROM %s EXCEPT SELECT record_id FROM %s", c.tables.Records, inner),
			fmt.Sprintf("EXCEPT NOT %s", inner))

	case MatchAll:
		return c.add(fmt.Sprintf("SELECT id AS record_id FROM %s", c.tables.Records), "ALL")

	case TextMatch:
		return c.fieldRows(q.Field, fmt.Sprintf("TEXT %s %s %q", q.Field.Field, q.Mode, q.Value), func(col string) string {
			if q.Mode == TextRegex {
				return c.dialect.Regex(col, c.builder.Arg(q.Value))
			}
			return c.dialect.Contains(col, c.builder.Arg(q.Value))
		})

	case In:
		fold := identity
		if q.Fold {
			fold = c.dialect.Fold
		}
		return c.fieldRows(q.Field, fmt.Sprintf("IN %s %v negate=%t", q.Field.Field, q.Values, q.Negate), func(col string) string {
			switch {
			case len(q.Values) > 0 && q.Negate:
				return fmt.Sprintf("%s NOT IN (%s)", fold(col), argList(c.builder, q.Values, fold))
			case len(q.Values) > 0:
				return fmt.Sprintf("%s IN (%s)", fold(col), argList(c.builder, q.Values, fold))
			case q.Negate:
				return "1=1"
			}
			return "1=0"
		})

	case Has:
		fold := identity
		if q.Fold {
			fold = c.dialect.Fold
		}
		return c.fieldRows(q.Field, fmt.Sprintf("HAS %s %v", q.Field.Field, q.Values), func(col string) string {
			return fmt.Sprintf("%s IN (%s)", fold(col), argList(c.builder, q.Values, fold))
		})

	case IntCmp:
		return c.fieldRows(q.Field, fmt.Sprintf("INT %s %s %d", q.Field.Field, q.Op, q.Value), func(col string) string {
			return fmt.Sprintf("%s %s %s", col, q.Op, c.builder.Arg(q.Value))
		})

	case IntRange:
		return c.fieldRows(q.Field, fmt.Sprintf("INT %s %d..%d", q.Field.Field, q.Lo, q.Hi), func(col string) string {
			lo := c.builder.Arg(q.Lo)
			hi := c.builder.Arg(q.Hi)
			return fmt.Sprintf("%s >= %s AND %s <= %s", col, lo, col, hi)
		})

	case TimeCmp:
		ms := EpochMS(q.Value)
		return c.fieldRows(q.Field, fmt.Sprintf("TIME %s %s %d", q.Field.Field, q.Op, ms), func(col string) string {
			return fmt.Sprintf("%s %s %s", col, q.Op, c.builder.Arg(ms))
		})

	case TimeRange:
		start, end := EpochMS(q.Start), EpochMS(q.End)
		return c.fieldRows(q.Field, fmt.Sprintf("TIME %s [%d, %d)", q.Field.Field, start, end), func(col string) string {
			lo := c.builder.Arg(start)
			hi := c.builder.Arg(end)
			return fmt.Sprintf("%s >= %s AND %s < %s", col, lo, col, hi)
		})

	case BoolEq:
		v := int64(0)
		if q.Value {
			v = 1
		}
		return c.fieldRows(q.Field, fmt.Sprintf("BOOL %s %t", q.Field.Field, q.Value), func(col string) string {
			return fmt.Sprintf("%s = %s", col, c.builder.Arg(v))
		})

	case AllWords:
		names := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			names[i] = f.Field
		}
		var parts []string
		for _, w := range q.Words {
			fieldList := argList(c.builder, names, identity)
			parts = append(parts, fmt.Sprintf("SELECT DISTINCT record_id FROM %s WHERE field IN (%s) AND %s",
				c.tables.Text, fieldList, c.dialect.Contains("value", c.builder.Arg(w))))
		}
		return c.add(strings.Join(parts, " INTERSECT "), fmt.Sprintf("WORDS %q IN %s", q.Words, strings.Join(names, ",")))
	}
	panic(fmt.Sprintf("planner: unknown predicate %T", p))
}

// fieldRows selects the records whose value satisfies cond. The field
// placeholder is allocated before cond runs so positional placeholders
// stay in textual order.
func (c *sqlCompiler) fieldRows(field Accessor, step string, cond func(col string) string) string {
	if field.Column == ColID {
		return c.add(fmt.Sprintf("SELECT id AS record_id FROM %s WHERE %s", c.tables.Records, cond("id")), step)
	}
	table := c.tables.valueTable(field.Column)
	ph := c.builder.Arg(field.Field)
	sql := fmt.Sprintf("SELECT DISTINCT record_id FROM %s WHERE field = %s AND %s", table, ph, cond("value"))
	return c.add(sql, step)
}

// BuildSearchSQL builds the page query: matching ids in order with
// absent sort values last.
func BuildSearchSQL(tables Tables, dialect Dialect, b Builder, compiled Compiled, limit, offset int) (string, []string) {
	plan := BuildPlan(tables, dialect, b, compiled.Predicate)

	var joins, order []string
	for i, key := range compiled.Order {
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		if key.Field.Column == ColID {
			order = append(order, "r.id "+dir)
			continue
		}
		alias := fmt.Sprintf("s%d", i)
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.record_id = r.id AND %s.field = %s",
			tables.valueTable(key.Field.Column), alias, alias, alias, b.Arg(key.Field.Field)))
		order = append(order, fmt.Sprintf("(CASE WHEN %s.value IS NULL THEN 1 ELSE 0 END) ASC, %s %s", alias, sortExpr(alias, key), dir))
	}

	sql := fmt.Sprintf(`%s
SELECT r.id
FROM %s r
JOIN %s q ON q.record_id = r.id
%s
ORDER BY %s
LIMIT %d OFFSET %d`,
		withClause(plan),
		tables.Records,
		plan.ResultCTE,
		strings.Join(joins, "\n"),
		strings.Join(order, ", "),
		limit,
		offset,
	)
	return sql, plan.ExplainSteps
}

// sortExpr is the value column of a sort join, mapped to its ordinal
// for ranked keys. Ranks come from the registry, so they are inlined as
// literals and leave placeholder numbering alone.
func sortExpr(alias string, key SortKey) string {
	if len(key.Rank) == 0 {
		return alias + ".value"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "CASE %s.value", alias)
	for i, v := range key.Rank {
		fmt.Fprintf(&sb, " WHEN '%s' THEN %d", strings.ReplaceAll(v, "'", "''"), i)
	}
	fmt.Fprintf(&sb, " ELSE %d END", len(key.Rank))
	return sb.String()
}

// BuildCountSQL builds the total match count query.
func BuildCountSQL(tables Tables, dialect Dialect, b Builder, p Predicate) string {
	plan := BuildPlan(tables, dialect, b, p)
	return fmt.Sprintf("%s\nSELECT COUNT(*) FROM (SELECT DISTINCT record_id FROM %s) c", withClause(plan), plan.ResultCTE)
}

// BuildFacetSQL counts matching records per value of a string field.
func BuildFacetSQL(tables Tables, dialect Dialect, b Builder, p Predicate, field Accessor, limit int) string {
	plan := BuildPlan(tables, dialect, b, p)
	return fmt.Sprintf(`%s
SELECT t.value, COUNT(DISTINCT t.record_id) AS cnt
FROM (SELECT DISTINCT record_id FROM %s) q
JOIN %s t ON t.record_id = q.record_id AND t.field = %s
GROUP BY t.value
ORDER BY cnt DESC, t.value ASC
LIMIT %d`,
		withClause(plan), plan.ResultCTE, tables.Text, b.Arg(field.Field), limit)
}

func withClause(plan *SQLPlan) string {
	parts := make([]string, len(plan.CTEs))
	for i, cte := range plan.CTEs {
		parts[i] = fmt.Sprintf("%s AS (%s)", cte.Name, cte.SQL)
	}
	return "WITH " + strings.Join(parts, ", ")
}
