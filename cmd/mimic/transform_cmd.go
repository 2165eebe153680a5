package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/CTAG07/Mimic/pkg/transform"
	"github.com/CTAG07/Mimic/pkg/workpool"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "transform <gibberish|devolve|wawa> [text...]",
		Short: "Rewrite text with a throwaway model (reads stdin when no text is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTransform,
	}

	RootCmd.AddCommand(cmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	config, _, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	variant, err := transform.VariantByName(args[0])
	if err != nil {
		return err
	}

	input := strings.Join(args[1:], " ")
	if len(args) == 1 {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxTransformInput))
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		input = string(data)
	}

	tr := transform.New(workpool.New(config.Model.Workers),
		transform.WithTries(config.Model.SampleTries),
		transform.WithGibberishCap(config.Model.GibberishCap),
		transform.WithLogger(logger),
	)
	out, err := tr.Transform(cmd.Context(), variant, input)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
