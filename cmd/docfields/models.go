package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List vision-capable models installed on the Ollama server",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	models, err := a.client.ListVisionModels(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFAMILY\tPARAMS\tQUANT\tSIZE")
	for _, m := range models {
		marker := ""
		if m.Name == a.cfg.Inference.Model {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%.1f GB\n", m.Name, marker, m.Family, m.ParameterSize, m.Quantization,
			float64(m.SizeBytes)/(1<<30))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(models) == 0 {
		a.logger.Warn("models.none", "base_url", a.cfg.Inference.BaseURL)
	}
	return nil
}
