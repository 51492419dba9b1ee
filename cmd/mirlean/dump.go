package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mirlean/internal/cfg"
	"mirlean/internal/mir"
)

func (a *app) dumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [flags] <bundle>",
		Short: "Print the definitions of a crate bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			only, err := cmd.Flags().GetStringSlice("def")
			if err != nil {
				return fmt.Errorf("failed to get def flag: %w", err)
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return fmt.Errorf("failed to get json flag: %w", err)
			}
			loops, err := cmd.Flags().GetBool("loops")
			if err != nil {
				return fmt.Errorf("failed to get loops flag: %w", err)
			}
			c, err := mir.LoadBundle(args[0])
			if err != nil {
				return err
			}
			switch {
			case asJSON:
				return mir.WriteBundle(cmd.OutOrStdout(), c, mir.FormatJSON)
			case loops:
				printLoops(cmd.OutOrStdout(), c, only)
				return nil
			}
			return mir.DumpCrate(cmd.OutOrStdout(), c, mir.DumpOptions{Only: only})
		},
	}
	cmd.Flags().StringSlice("def", nil, "only dump these definitions")
	cmd.Flags().Bool("json", false, "re-encode the whole bundle as JSON")
	cmd.Flags().Bool("loops", false, "print the loop nest of every body instead")
	return cmd
}

// printLoops lists each body's loops by header, inner loops indented.
func printLoops(w io.Writer, c *mir.Crate, only []string) {
	for i := range c.Defs {
		d := &c.Defs[i]
		if d.Body == nil || (len(only) > 0 && !slices.Contains(only, d.Name)) {
			continue
		}
		nest := cfg.Nest(d.Body, d.Body.Start, nil, cfg.EntryOf(d.Body))
		fmt.Fprintf(w, "%s: %d loops\n", d.Name, len(nest))
		writeNest(w, nest, 1)
	}
}

func writeNest(w io.Writer, nest []cfg.LoopNest, depth int) {
	for _, l := range nest {
		fmt.Fprintf(w, "%sbb%d %v\n", strings.Repeat("  ", depth), l.Header, l.Blocks)
		writeNest(w, l.Inner, depth+1)
	}
}
