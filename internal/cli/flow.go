package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var flowHeaders = []string{"ID", "TITLE", "STATUS", "VERSION", "UPDATED"}

func flowRow(f *FlowResponse) []string {
	return []string{f.ID, f.Title, f.Status, strconv.Itoa(f.Version), f.UpdatedAt}
}

// NewFlowCmd создаёт группу команд для управления flows.
func NewFlowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Manage flows",
	}

	cmd.AddCommand(
		newFlowListCmd(clientFn, outputFn),
		newFlowCreateCmd(clientFn, outputFn),
		newFlowShowCmd(clientFn, outputFn),
		newFlowUpdateCmd(clientFn, outputFn),
		newFlowDraftCmd(clientFn, outputFn),
		newFlowDeleteCmd(clientFn, outputFn),
		newFlowCheckCmd(clientFn, outputFn),
		newFlowPublishCmd(clientFn, outputFn),
		newFlowVersionsCmd(clientFn, outputFn),
	)

	return cmd
}

func newFlowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flows of the tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, _, err := clientFn().ListFlows(status)
			if err != nil {
				return err
			}

			rows := make([][]string, len(flows))
			for i := range flows {
				rows[i] = flowRow(&flows[i])
			}

			outputFn().Print(flowHeaders, rows, flows)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (draft, published, archived)")
	return cmd
}

func newFlowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var title, file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft flow, optionally from a flow document",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			req := CreateFlowRequest{}
			if file != "" {
				doc, err := LoadFlowFile(file)
				if err != nil {
					return err
				}
				if req, err = contentRequest(doc); err != nil {
					return err
				}
			}
			if title != "" {
				req.Title = title
			}
			if req.Title == "" {
				return fmt.Errorf("--title is required when the document has no title")
			}

			flow, err := clientFn().CreateFlow(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Flow created: %s", flow.ID))
			out.Print(flowHeaders, [][]string{flowRow(flow)}, flow)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Flow title")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Flow document (JSON or YAML)")
	return cmd
}

func newFlowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show flow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := clientFn().GetFlow(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(flowHeaders, [][]string{flowRow(flow)}, flow)
			return nil
		},
	}
}

func newFlowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var title, description, status string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update flow title, description or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			req := UpdateFlowRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("status") {
				req.Status = &status
			}

			flow, err := clientFn().UpdateFlow(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Flow updated")
			out.Print(flowHeaders, [][]string{flowRow(flow)}, flow)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New status (draft, published, archived)")
	return cmd
}

func newFlowDraftCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "draft ID",
		Short: "Replace the draft content from a flow document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			doc, err := LoadFlowFile(file)
			if err != nil {
				return err
			}
			content, err := contentRequest(doc)
			if err != nil {
				return err
			}

			flow, err := clientFn().SaveDraft(args[0], DraftRequest{
				Nodes:    content.Nodes,
				Settings: content.Settings,
				Theme:    content.Theme,
			})
			if err != nil {
				return err
			}

			out.Success("Draft saved")
			out.Print(flowHeaders, [][]string{flowRow(flow)}, flow)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Flow document (JSON or YAML, required)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newFlowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a flow with its versions and responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteFlow(args[0]); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Flow deleted: %s", args[0]))
			return nil
		},
	}
}

func newFlowCheckCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "check ID",
		Short: "Validate the draft on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := clientFn().ValidateFlow(args[0])
			if err != nil {
				return err
			}
			return printIssues(outputFn(), result.Issues)
		},
	}
}

func newFlowPublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "publish ID",
		Short: "Publish the draft as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			version, err := clientFn().PublishFlow(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Version %d published for flow %s", version.Version, version.FlowID))
			out.Print(
				[]string{"FLOW_ID", "VERSION", "PUBLISHED"},
				[][]string{{version.FlowID, strconv.Itoa(version.Version), version.PublishedAt}},
				version,
			)
			return nil
		},
	}
}

func newFlowVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions ID",
		Short: "List published versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := clientFn().ListVersions(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = []string{v.FlowID, strconv.Itoa(v.Version), v.PublishedAt}
			}

			outputFn().Print([]string{"FLOW_ID", "VERSION", "PUBLISHED"}, rows, versions)
			return nil
		},
	}
}

// ErrInvalidFlow — проверка flow нашла проблемы.
var ErrInvalidFlow = errors.New("flow has validation issues")

// printIssues выводит проблемы flow; при их наличии возвращает ErrInvalidFlow.
func printIssues(out *Output, issues []Issue) error {
	if len(issues) == 0 {
		out.Success("Flow is valid")
		if out.jsonMode {
			out.JSON([]Issue{})
		}
		return nil
	}

	rows := make([][]string, len(issues))
	for i, is := range issues {
		rows[i] = []string{is.Code, is.StepID, is.FieldID, is.Message}
	}
	out.Print([]string{"CODE", "STEP", "FIELD", "MESSAGE"}, rows, issues)
	return ErrInvalidFlow
}
