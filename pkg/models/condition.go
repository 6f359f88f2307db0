package models

// Operator compares a resolved field path against a literal.
type Operator string

const (
	OperatorEquals         Operator = "equals"
	OperatorNotEquals      Operator = "not_equals"
	OperatorGreaterThan    Operator = "greater_than"
	OperatorLessThan       Operator = "less_than"
	OperatorGreaterOrEqual Operator = "greater_or_equal"
	OperatorLessOrEqual    Operator = "less_or_equal"
	OperatorContains       Operator = "contains"
	OperatorIn             Operator = "in"
	OperatorNotIn          Operator = "not_in"
	OperatorIsEmpty        Operator = "is_empty"
	OperatorIsNotEmpty     Operator = "is_not_empty"
)

// LogicOperator combines the children of a condition group.
type LogicOperator string

const (
	LogicAnd LogicOperator = "and"
	LogicOr  LogicOperator = "or"
)

// Condition is one leaf comparison, e.g. field "deal.amount", operator
// greater_than, value 50000. Field uses dot notation resolved against the
// event context.
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value,omitempty"`
}

// ConditionGroup is a boolean expression tree. Leaves and nested groups are
// combined with the group's logic operator.
//
// An empty "and" group is vacuously true, an empty "or" group vacuously
// false, matching ordinary boolean-algebra identities. A workflow whose root
// group has no leaves at all matches unconditionally.
type ConditionGroup struct {
	Logic      LogicOperator     `json:"logic"`
	Conditions []Condition       `json:"conditions,omitempty"`
	Groups     []*ConditionGroup `json:"groups,omitempty"`
}

// Empty reports whether the group (including nested groups) has no leaves.
func (g *ConditionGroup) Empty() bool {
	if g == nil {
		return true
	}

	if len(g.Conditions) > 0 {
		return false
	}

	for _, child := range g.Groups {
		if !child.Empty() {
			return false
		}
	}

	return true
}
