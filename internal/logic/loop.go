package logic

import (
	"strconv"
	"strings"

	"github.com/shaiso/Formflow/internal/domain"
)

// DefaultLoopMax — maxCount, если он не задан.
const DefaultLoopMax = 10

const (
	loopSuffix       = "_loop_"
	indexPlaceholder = "{index}"
)

// LoopFieldID возвращает ID поля (или шага) для итерации index.
func LoopFieldID(id string, index int) string {
	return id + loopSuffix + strconv.Itoa(index)
}

// BaseID отбрасывает суффикс итерации: "guest_name_loop_2" → "guest_name".
// ID без суффикса возвращается как есть.
func BaseID(id string) string {
	i := strings.LastIndex(id, loopSuffix)
	if i <= 0 {
		return id
	}
	digits := id[i+len(loopSuffix):]
	if digits == "" {
		return id
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return id
		}
	}
	return id[:i]
}

// LoopBounds возвращает нормализованные границы цикла.
// maxCount 0 означает DefaultLoopMax; отрицательный minCount — 0;
// maxCount меньше minCount поднимается до minCount.
func LoopBounds(loop *domain.LoopConfig) (minCount, maxCount int) {
	minCount = loop.MinCount
	if minCount < 0 {
		minCount = 0
	}
	maxCount = loop.MaxCount
	if maxCount == 0 {
		maxCount = DefaultLoopMax
	}
	if maxCount < minCount {
		maxCount = minCount
	}
	return minCount, maxCount
}

// IsLooped возвращает true, если шаг размножается циклом.
func IsLooped(node domain.Node) bool {
	loop := node.Data.Loop
	return loop != nil && loop.Enabled && loop.SourceFieldID != ""
}

// LoopCount — число итераций шага: clamp(toInt(values[source]), min, max).
// Для шага без цикла возвращает 1.
func LoopCount(node domain.Node, values domain.FormValues) int {
	if !IsLooped(node) {
		return 1
	}

	minCount, maxCount := LoopBounds(node.Data.Loop)
	n := ToInt(values[node.Data.Loop.SourceFieldID])
	if n < minCount {
		return minCount
	}
	if n > maxCount {
		return maxCount
	}
	return n
}

// GenerateLoopedSteps размножает шаг по значению поля-источника.
//
// Шаг без цикла возвращается как есть (один элемент). Иначе каждая
// итерация получает ID {id}_loop_{i}, заголовок из LabelTemplate
// (первый {index} заменяется на i+1) и ID вопросов {qid}_loop_{i}.
// Входной узел не изменяется.
func GenerateLoopedSteps(node domain.Node, values domain.FormValues) []domain.Node {
	if !IsLooped(node) {
		return []domain.Node{node}
	}

	count := LoopCount(node, values)
	template := node.Data.Loop.LabelTemplate
	if template == "" {
		template = node.Data.Label + " " + indexPlaceholder
	}

	steps := make([]domain.Node, 0, count)
	for i := 0; i < count; i++ {
		steps = append(steps, loopIteration(node, template, i))
	}
	return steps
}

func loopIteration(node domain.Node, template string, i int) domain.Node {
	index := i
	clone := node
	clone.ID = LoopFieldID(node.ID, i)
	clone.LoopIndex = &index
	clone.SourceStepID = node.ID

	clone.Data.Label = strings.Replace(template, indexPlaceholder, strconv.Itoa(i+1), 1)
	clone.Data.Loop = nil

	clone.Data.Questions = make([]domain.Question, len(node.Data.Questions))
	for j, q := range node.Data.Questions {
		q.ID = LoopFieldID(q.ID, i)
		clone.Data.Questions[j] = q
	}

	if node.Data.Logic != nil {
		clone.Data.Logic = append([]domain.LogicRule(nil), node.Data.Logic...)
	}
	if node.Connections != nil {
		clone.Connections = append([]domain.Connection(nil), node.Connections...)
	}
	return clone
}
