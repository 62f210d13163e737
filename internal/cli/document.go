package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Formflow/internal/domain"
)

// LoadFlowFile читает документ flow (title, description, nodes, settings, theme)
// из JSON или YAML файла. Формат определяется по расширению.
func LoadFlowFile(path string) (*domain.Flow, error) {
	var content domain.FlowContent
	if err := readDocument(path, &content); err != nil {
		return nil, err
	}

	flow := &domain.Flow{Status: domain.FlowStatusDraft}
	flow.ApplyContent(content)
	if flow.Nodes == nil {
		flow.Nodes = []domain.Node{}
	}
	return flow, nil
}

// LoadValuesFile читает значения формы из JSON или YAML файла.
func LoadValuesFile(path string) (domain.FormValues, error) {
	values := domain.FormValues{}
	if err := readDocument(path, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// readDocument декодирует файл в v. YAML сначала приводится к JSON,
// чтобы действовали json-теги доменных типов.
func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("convert %s: %w", path, err)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// contentRequest собирает тело запроса create из документа flow.
func contentRequest(flow *domain.Flow) (CreateFlowRequest, error) {
	nodes, err := json.Marshal(flow.Nodes)
	if err != nil {
		return CreateFlowRequest{}, fmt.Errorf("marshal nodes: %w", err)
	}
	return CreateFlowRequest{
		Title:       flow.Title,
		Description: flow.Description,
		Nodes:       nodes,
		Settings:    flow.Settings,
		Theme:       flow.Theme,
	}, nil
}
