package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MdSium003/AgamiOps/internal/app"
	"github.com/MdSium003/AgamiOps/internal/businessmodel"
	"github.com/MdSium003/AgamiOps/internal/inventory"
)

var (
	inventoryFile string

	modelIdea     string
	modelLocation string
	modelCount    int
)

var analyzeInventoryCmd = &cobra.Command{
	Use:   "analyze-inventory",
	Short: "Analyze a JSON array of inventory records and print the analysis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, inventoryFile)
		if err != nil {
			return err
		}
		records, err := inventory.DecodeRecords(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", inventoryFile, err)
		}
		gens, err := app.NewGenerators(cmd.Context(), cfg, nil, log)
		if err != nil {
			return err
		}
		res, err := gens.Inventory.Analyze(cmd.Context(), records)
		if err != nil {
			return err
		}
		log.Info("inventory analyzed", "records", len(records), "source", string(res.Source))
		return printJSON(cmd.OutOrStdout(), res.Analysis)
	},
}

var businessModelsCmd = &cobra.Command{
	Use:   "business-models",
	Short: "Generate business models for an idea and print them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gens, err := app.NewGenerators(cmd.Context(), cfg, nil, log)
		if err != nil {
			return err
		}
		res, err := gens.Models.Generate(cmd.Context(), 0, businessmodel.Request{
			Idea:     modelIdea,
			Location: modelLocation,
			Count:    modelCount,
		})
		if err != nil {
			return err
		}
		log.Info("business models generated", "count", len(res.Models), "source", string(res.Source))
		return printJSON(cmd.OutOrStdout(), res.Models)
	},
}

func init() {
	analyzeInventoryCmd.Flags().StringVar(&inventoryFile, "file", "-", "JSON file with an array of records; - reads stdin")

	businessModelsCmd.Flags().StringVar(&modelIdea, "idea", "", "business idea")
	businessModelsCmd.Flags().StringVar(&modelLocation, "location", "", "target location")
	businessModelsCmd.Flags().IntVar(&modelCount, "count", businessmodel.MaxCount, "number of models (2-3)")
	_ = businessModelsCmd.MarkFlagRequired("idea")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
