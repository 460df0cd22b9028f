package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rec-operation/lem-api/config"
	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/infra/store"
)

var orderCmd = &cobra.Command{
	Use:   "order <order_id>",
	Short: "Inspect a stored order and its results",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrder,
}

func runOrder(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening order store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	id := args[0]
	o, err := db.Order(ctx, id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	status := map[string]any{
		"order_id":     o.ID,
		"request_type": o.RequestType,
		"processed":    o.Processed,
		"created_at":   o.CreatedAt,
	}
	if o.Error != "" {
		status["error"] = o.Error
		status["message"] = o.Message
	}
	if err := enc.Encode(status); err != nil {
		return err
	}
	if !o.Processed || o.Error != "" {
		return nil
	}

	switch o.RequestType {
	case model.RequestVanilla:
		out, err := db.VanillaResults(ctx, id)
		if err != nil {
			return err
		}
		return enc.Encode(out)
	case model.RequestLoop:
		if o.LemOrganization == model.OrganizationBilateral {
			out, err := db.BilateralMILPResults(ctx, id)
			if err != nil {
				return err
			}
			return enc.Encode(out)
		}
		fallthrough
	default:
		out, err := db.PoolMILPResults(ctx, id)
		if err != nil {
			return err
		}
		return enc.Encode(out)
	}
}
