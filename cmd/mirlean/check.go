package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mirlean/internal/mir"
)

var errInvalidBundle = errors.New("bundle has malformed bodies")

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <bundle>",
		Short: "Validate the bodies of a crate bundle without translating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mir.LoadBundle(args[0])
			if err != nil {
				return err
			}
			if verr := mir.ValidateCrate(c); verr != nil {
				a.logger.Debug("validation failed", zap.String("bundle", args[0]), zap.Error(verr))
				fmt.Fprintln(cmd.ErrOrStderr(), verr)
				return errInvalidBundle
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d definitions ok\n", c.Name, len(c.Defs))
			return nil
		},
	}
}
