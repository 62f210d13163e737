// Formflow CLI — инструмент командной строки для управления формами
// через HTTP API и для локальной работы с файлами flow.
//
// Использование:
//
//	formflow [--api-url URL] [--tenant ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	flow       Управление flows и версиями
//	response   Просмотр и отправка ответов
//	analytics  Сводка по ответам flow
//	validate   Проверка файла flow без сервера
//	preview    План шагов формы для заданных значений
//	schema     JSON Schema файла flow
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Formflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var tenant string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "formflow",
		Short:         "Formflow CLI — multi-step form builder",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("FORMFLOW_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", os.Getenv("FORMFLOW_TENANT"), "Tenant ID (X-Tenant-ID header)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, tenant) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewFlowCmd(clientFn, outputFn),
		cli.NewResponseCmd(clientFn, outputFn),
		cli.NewAnalyticsCmd(clientFn, outputFn),
		cli.NewValidateCmd(outputFn),
		cli.NewPreviewCmd(outputFn),
		cli.NewSchemaCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
