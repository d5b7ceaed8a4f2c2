package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nathoo/sceneweaver/cli"
	"github.com/nathoo/sceneweaver/engine/save"
	"github.com/nathoo/sceneweaver/session"
)

func slotsCmd() *cobra.Command {
	var remove string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List save slots in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlots(cmd, remove)
		},
	}
	cmd.Flags().StringVar(&remove, "delete", "", "delete this slot")
	return cmd
}

func runSlots(cmd *cobra.Command, remove string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := session.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if remove != "" {
		if err := st.Delete(ctx, remove); err != nil {
			return err
		}
		cmd.Printf("deleted %s\n", remove)
		return nil
	}

	infos, err := save.ListSlots(ctx, st)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		cmd.Println("no saves")
		return nil
	}
	for _, info := range infos {
		cmd.Println(cli.FormatSlot(info))
	}
	return nil
}
