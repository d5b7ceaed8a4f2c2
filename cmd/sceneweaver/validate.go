package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathoo/sceneweaver/loader"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <game_directory>",
		Short: "Check a game's scripts for errors",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	b, err := loader.Load(args[0])
	if err != nil {
		var ve *loader.ValidationError
		if errors.As(err, &ve) {
			for _, w := range ve.Warnings {
				cmd.Printf("warning: %s\n", w)
			}
			for _, e := range ve.Errors {
				cmd.Printf("error: %s\n", e)
			}
			return fmt.Errorf("%d error(s)", len(ve.Errors))
		}
		return err
	}
	defer b.Close()

	for _, w := range b.Warnings {
		cmd.Printf("warning: %s\n", w)
	}
	cmd.Printf("%d scene(s), %d actor(s), %d map(s): ok\n", len(b.Defs.Scenes), len(b.Defs.Actors), len(b.Defs.Maps))
	return nil
}
