package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/CTAG07/Mimic/pkg/corpus"
	"github.com/CTAG07/Mimic/pkg/markov"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var (
	exportOut     string
	inspectTok    string
	inspectSample int
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export <guild> <user>",
		Short: "Build a user's model and write it as JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default <guild>-<user>.json)")

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Load an exported model, print its stats and optionally sample it",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVar(&inspectTok, "tokenizer", "word", "Tokenizer the model was built with: word, char or syllable")
	inspectCmd.Flags().IntVarP(&inspectSample, "sample", "s", 0, "Number of texts to sample")

	RootCmd.AddCommand(exportCmd, inspectCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	config, secrets, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	app, err := newApp(config, secrets, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	key := corpus.Key{GuildID: args[0], UserID: args[1]}
	model, err := app.cache.Fetch(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("failed to build model for %s: %w", key, err)
	}

	var buf bytes.Buffer
	if err = model.Export(&buf); err != nil {
		return fmt.Errorf("failed to export model: %w", err)
	}
	out := exportOut
	if out == "" {
		out = fmt.Sprintf("%s-%s.json", key.GuildID, key.UserID)
	}
	if err = atomic.WriteFile(out, &buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d chains)\n", out, model.Size())
	return err
}

func tokenizerByName(name string) (markov.Tokenizer, error) {
	switch name {
	case "word":
		return markov.NewWordTokenizer(), nil
	case "char":
		return markov.NewCharTokenizer(), nil
	case "syllable":
		return markov.NewSyllableTokenizer(), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	tok, err := tokenizerByName(inspectTok)
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	model, err := markov.Import(f, tok)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err = enc.Encode(model.Stats()); err != nil {
		return err
	}
	for i := 0; i < inspectSample; i++ {
		if text, ok := model.Sample(0); ok {
			_, _ = fmt.Fprintln(out, text)
		}
	}
	return nil
}
