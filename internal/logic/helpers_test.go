package logic

import "github.com/shaiso/Formflow/internal/domain"

// step создаёт шаг flow_step с вопросами.
func step(id string, questions ...domain.Question) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeFlowStep,
		Data: domain.NodeData{Label: id, Questions: questions},
	}
}

func field(id string, typ domain.QuestionType) domain.Question {
	return domain.Question{ID: id, Type: typ, Label: id}
}

func cond(fieldID string, op domain.Operator, value any) domain.Condition {
	return domain.Condition{FieldID: fieldID, Operator: op, Value: value}
}

func withRules(n domain.Node, rules ...domain.LogicRule) domain.Node {
	n.Data.Logic = append(n.Data.Logic, rules...)
	return n
}

func flowOf(nodes ...domain.Node) *domain.Flow {
	return &domain.Flow{Title: "test", Nodes: nodes, Status: domain.FlowStatusDraft}
}

func ids(nodes []domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intPtr(v int) *int { return &v }
