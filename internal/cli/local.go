package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/logic"
	"github.com/shaiso/Formflow/internal/renderer"
)

// Локальные команды работают с файлами и не обращаются к API.

// NewValidateCmd создаёт команду проверки документа flow.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a flow document for broken references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := LoadFlowFile(args[0])
			if err != nil {
				return err
			}
			return printIssues(outputFn(), CheckFlow(flow))
		},
	}
}

// CheckFlow проверяет flow и возвращает проблемы в формате API.
func CheckFlow(flow *domain.Flow) []Issue {
	errs := logic.Check(flow)
	issues := make([]Issue, len(errs))
	for i, e := range errs {
		issues[i] = Issue{
			Code:    logic.Code(e),
			StepID:  e.StepID,
			FieldID: e.FieldID,
			Message: e.Error(),
		}
	}
	return issues
}

// NewPreviewCmd создаёт команду предпросмотра формы по документу и значениям.
func NewPreviewCmd(outputFn func() *Output) *cobra.Command {
	var (
		valuesFile string
		history    []string
	)

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show the step plan and current state of a flow for given values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			flow, err := LoadFlowFile(args[0])
			if err != nil {
				return err
			}

			values := domain.FormValues{}
			if valuesFile != "" {
				if values, err = LoadValuesFile(valuesFile); err != nil {
					return err
				}
			}

			sess := renderer.Resume(flow, values, history)
			if out.jsonMode {
				out.JSON(sess.State())
				return nil
			}

			out.Table([]string{"#", "STEP", "LABEL", "VISIBLE", "FIELDS"}, planRows(flow, values))

			state := sess.State()
			if state.Step != nil {
				out.Success(fmt.Sprintf("Current step: %s (%d%%)", state.Step.ID, state.Progress))
			}
			for id, msg := range sess.ValidateAll() {
				out.Warn(id + ": " + msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&valuesFile, "values", "v", "", "Values file (JSON or YAML)")
	cmd.Flags().StringSliceVar(&history, "history", nil, "Visited step IDs, comma separated")
	return cmd
}

// planRows — строки таблицы плана шагов с учётом видимости и циклов.
func planRows(flow *domain.Flow, values domain.FormValues) [][]string {
	plan := logic.Plan(flow, values)
	rows := make([][]string, len(plan))
	for i, p := range plan {
		fields := make([]string, 0, len(p.Node.Data.Questions))
		for _, q := range p.Node.Data.Questions {
			state := logic.EvaluateFieldLogic(q.ID, flow, values)
			switch {
			case !state.Show:
				continue
			case q.Required || state.Required:
				fields = append(fields, q.ID+"*")
			default:
				fields = append(fields, q.ID)
			}
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			p.Node.ID,
			p.Node.Data.Label,
			strconv.FormatBool(p.Visible),
			strings.Join(fields, ","),
		}
	}
	return rows
}

// NewSchemaCmd создаёт команду вывода JSON Schema документа flow.
func NewSchemaCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of flow documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFn().JSON(FlowSchema())
			return nil
		},
	}
}

// FlowSchema строит JSON Schema документа flow.
func FlowSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	s := reflector.Reflect(domain.FlowContent{})
	if s.Version == "" {
		s.Version = jsonschema.Version
	}
	s.Title = "Formflow flow document"
	return s
}
