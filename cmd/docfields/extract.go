package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/pipeline"
)

var (
	extractMime   string
	extractOutput string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract fields from one document and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	addSpecFlags(extractCmd)
	extractCmd.Flags().StringVar(&extractMime, "mime", "", "MIME type of the document (default: from extension)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write the JSON result to this file instead of stdout")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	spec, err := loadSpec()
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	mt := extractMime
	if mt == "" {
		mt = constants.MimeFromExt(filepath.Ext(path))
	}

	ctx = common.WithRequestID(ctx, uuid.New().String())
	doc, err := a.processor.Process(ctx, pipeline.Request{
		Name:         path,
		Data:         data,
		MimeType:     mt,
		Spec:         spec,
		Instructions: instructions,
	})
	if err != nil {
		a.logger.Error("extract.failed", "path", path, "kind", common.Kind(err), "error", err)
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	out = append(out, '\n')
	if extractOutput != "" {
		return os.WriteFile(extractOutput, out, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
