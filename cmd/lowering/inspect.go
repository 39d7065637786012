package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colorfulnotion/lowering/codestore"
	"github.com/colorfulnotion/lowering/heap"
	"github.com/nsf/jsondiff"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var (
		cachePath string
		disasm    bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <key>",
		Short: "Print a cached code object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := codestore.ParseHash(args[0])
			if err != nil {
				return err
			}
			store, err := codestore.Open(cachePath)
			if err != nil {
				return err
			}
			defer store.Close()

			code, ok, err := store.Get(key, heap.NewFactory())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no code object cached under %s", key)
			}
			printCode(cmd.OutOrStdout(), &compiled{key: key, code: code}, true, disasm)
			return nil
		},
	}
	cmd.Flags().StringVar(&cachePath, "cache", "", "code cache directory")
	cmd.Flags().BoolVarP(&disasm, "disasm", "d", true, "print the disassembled machine code")
	_ = cmd.MarkFlagRequired("cache")
	return cmd
}

// errDifferent makes diff exit non-zero when the code objects differ.
var errDifferent = errors.New("code objects differ")

func newDiffCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "diff <a.json> <b.json>",
		Short: "Compile two units and diff the resulting code objects",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(configPath)
			if err != nil {
				return err
			}
			var docs [2][]byte
			for i, path := range args {
				c, err := compileFile(cmd, path, opts, nil)
				if err != nil {
					return err
				}
				s := summarize(c)
				s.Key = ""
				if docs[i], err = json.Marshal(s); err != nil {
					return err
				}
			}

			diffOpts := jsondiff.DefaultConsoleOptions()
			diff, text := jsondiff.Compare(docs[0], docs[1], &diffOpts)
			if diff == jsondiff.FullMatch {
				fmt.Fprintln(cmd.OutOrStdout(), "identical")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return errDifferent
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "JSON file with code generator options")
	return cmd
}

func newCacheCmd() *cobra.Command {
	var cachePath string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the code cache",
	}
	cmd.PersistentFlags().StringVar(&cachePath, "cache", "", "code cache directory")
	_ = cmd.MarkPersistentFlagRequired("cache")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached code objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := codestore.Open(cachePath)
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := store.Keys()
			if err != nil {
				return err
			}
			for _, key := range keys {
				code, _, err := store.Get(key, heap.NewFactory())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %s %d bytes\n", key, code.Name, code.Kind, code.InstructionSize)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <key>...",
		Short: "Drop cached code objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := codestore.Open(cachePath)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, arg := range args {
				key, err := codestore.ParseHash(arg)
				if err != nil {
					return err
				}
				if err := store.Delete(key); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}
