package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var responseHeaders = []string{"ID", "VERSION", "COMPLETED", "ANSWERS", "CREATED"}

func responseRow(r *ResponseResponse) []string {
	return []string{r.ID, strconv.Itoa(r.Version), strconv.FormatBool(r.Completed), strconv.Itoa(len(r.Values)), r.CreatedAt}
}

// NewResponseCmd создаёт группу команд для ответов на формы.
func NewResponseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Submit and inspect form responses",
	}

	cmd.AddCommand(
		newResponseListCmd(clientFn, outputFn),
		newResponseShowCmd(clientFn, outputFn),
		newResponseSubmitCmd(clientFn, outputFn),
	)

	return cmd
}

func newResponseListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		completed     string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "list FLOW_ID",
		Short: "List responses of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			opts := ListResponsesOpts{Limit: limit, Offset: offset}
			if cmd.Flags().Changed("completed") {
				b, err := strconv.ParseBool(completed)
				if err != nil {
					return fmt.Errorf("invalid value for --completed: %s", completed)
				}
				opts.Completed = &b
			}

			responses, total, err := clientFn().ListResponses(args[0], opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(responses))
			for i := range responses {
				rows[i] = responseRow(&responses[i])
			}

			out.Print(responseHeaders, rows, responses)
			if !out.jsonMode {
				out.Success(fmt.Sprintf("%d of %d responses", len(responses), total))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&completed, "completed", "", "Filter by completion (true/false)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of responses")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of responses to skip")
	return cmd
}

func newResponseShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a response with its values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := clientFn().GetResponse(args[0])
			if err != nil {
				return err
			}

			outputFn().Print([]string{"FIELD", "VALUE"}, valueRows(resp.Values), resp)
			return nil
		},
	}
}

func newResponseSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		valuesFile string
		partial    bool
		preview    bool
	)

	cmd := &cobra.Command{
		Use:   "submit FLOW_ID",
		Short: "Submit a response from a values file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			values, err := LoadValuesFile(valuesFile)
			if err != nil {
				return err
			}

			req := SubmitRequest{Values: values, Preview: preview}
			if partial {
				completed := false
				req.Completed = &completed
			}

			resp, err := clientFn().SubmitResponse(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Response submitted: %s", resp.ID))
			out.Print(responseHeaders, [][]string{responseRow(resp)}, resp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&valuesFile, "values", "v", "", "Values file (JSON or YAML, required)")
	cmd.Flags().BoolVar(&partial, "partial", false, "Save as a partial response without validation")
	cmd.Flags().BoolVar(&preview, "preview", false, "Submit against the draft instead of the published version")
	cmd.MarkFlagRequired("values")
	return cmd
}

// NewAnalyticsCmd создаёт команду вывода сводки по ответам.
func NewAnalyticsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics FLOW_ID",
		Short: "Show aggregated response analytics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			summary, err := clientFn().Analytics(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(summary.Fields))
			for i, f := range summary.Fields {
				rows[i] = []string{f.FieldID, f.Type, strconv.Itoa(f.Answered), formatRate(f.AnswerRate), formatChoices(f.Choices)}
			}

			if !out.jsonMode {
				out.Success(fmt.Sprintf("%d responses, %d completed (%s)",
					summary.Total, summary.Completed, formatRate(summary.CompletionRate)))
			}
			out.Print([]string{"FIELD", "TYPE", "ANSWERED", "RATE", "CHOICES"}, rows, summary)
			return nil
		},
	}
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r*100, 'f', 1, 64) + "%"
}

// formatChoices выводит варианты по убыванию частоты: "pro=2 free=1".
func formatChoices(choices map[string]int) string {
	keys := make([]string, 0, len(choices))
	for k := range choices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if choices[keys[i]] != choices[keys[j]] {
			return choices[keys[i]] > choices[keys[j]]
		}
		return keys[i] < keys[j]
	})

	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += k + "=" + strconv.Itoa(choices[k])
	}
	return s
}

func valueRows(values map[string]any) [][]string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, fmt.Sprint(values[k])}
	}
	return rows
}
