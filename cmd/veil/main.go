// Package main provides the Veil framework CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veil-ml/veil/phi"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "veil",
		Short:         "Veil - privacy-preserving tensors for Go",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInspectCmd(&verbose))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Veil %s\n", version)
		},
	}
}

func newInspectCmd(verbose *bool) *cobra.Command {
	var maxBytes int

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a serialized private tensor and print its public metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := zap.NewNop()
			if *verbose {
				var err error
				if log, err = zap.NewDevelopment(); err != nil {
					return err
				}
				defer log.Sync()
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var opts []phi.DecodeOption
			if maxBytes > 0 {
				opts = append(opts, phi.WithDecodeLimit(maxBytes))
			}
			t, err := phi.Deserialize(raw, opts...)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}
			log.Debug("decoded record", zap.Int("bytes", len(raw)))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "shape:    %v\n", t.Shape())
			fmt.Fprintf(out, "dtype:    %s\n", t.DType())
			fmt.Fprintf(out, "subjects: %s\n", strings.Join(t.DataSubjects().Subjects(), ", "))
			fmt.Fprintf(out, "min:      %s\n", t.MinVals())
			fmt.Fprintf(out, "max:      %s\n", t.MaxVals())
			return nil
		},
	}
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 0, "reject records larger than this many bytes (0 = unlimited)")
	return cmd
}
