package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/colorfulnotion/lowering/codegen"
	"github.com/colorfulnotion/lowering/codestore"
	"github.com/colorfulnotion/lowering/heap"
	"github.com/colorfulnotion/lowering/instruction"
	log "github.com/colorfulnotion/lowering/log"
	"github.com/colorfulnotion/lowering/x64"
	"github.com/spf13/cobra"
)

// compiled is one unit together with the key it is cached under.
type compiled struct {
	key  codestore.Hash
	code *codegen.Code
}

func loadOptions(path string) (codegen.Options, error) {
	if path == "" {
		return codegen.DefaultOptions(), nil
	}
	return codegen.LoadOptions(path)
}

// compileFile assembles the unit stored at path. With a store, a cached code
// object is reused and fresh results are written back.
func compileFile(cmd *cobra.Command, path string, opts codegen.Options, store *codestore.Store) (*compiled, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit %s: %w", path, err)
	}
	key := codestore.Key(source, opts)

	if store != nil {
		code, ok, err := store.Get(key, heap.NewFactory())
		if err != nil {
			return nil, err
		}
		if ok {
			log.Debug(log.CodeStoreMonitoring, "cache hit", "unit", path, "key", key)
			return &compiled{key: key, code: code}, nil
		}
	}

	unit, err := instruction.LoadSequence(bytes.NewReader(source), x64.Opcodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	gen := codegen.New(unit.Sequence, unit.Linkage, x64.NewBackend(), opts)
	code, err := gen.GenerateCode(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	code.Name = unit.Name

	if store != nil {
		if err := store.Put(key, code); err != nil {
			return nil, err
		}
		log.Debug(log.CodeStoreMonitoring, "cached", "unit", unit.Name, "key", key)
	}
	return &compiled{key: key, code: code}, nil
}

func printCode(w io.Writer, c *compiled, tree, disasm bool) {
	fmt.Fprintf(w, "key: %s\n", c.key)
	if tree {
		fmt.Fprint(w, c.code.Tree())
	}
	if disasm {
		fmt.Fprint(w, x64.Disassemble(c.code.MachineCode()))
	}
}

func newCompileCmd() *cobra.Command {
	var (
		configPath string
		cachePath  string
		noTree     bool
		disasm     bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "compile <unit.json>...",
		Short: "Assemble register-allocated units into code objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(configPath)
			if err != nil {
				return err
			}
			var store *codestore.Store
			if cachePath != "" {
				if store, err = codestore.Open(cachePath); err != nil {
					return err
				}
				defer store.Close()
			}

			out := cmd.OutOrStdout()
			for _, path := range args {
				c, err := compileFile(cmd, path, opts, store)
				if err != nil {
					return err
				}
				if asJSON {
					data, err := json.MarshalIndent(summarize(c), "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(data))
					continue
				}
				printCode(out, c, !noTree, disasm)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "JSON file with code generator options")
	f.StringVar(&cachePath, "cache", "", "code cache directory")
	f.BoolVar(&noTree, "no-tree", false, "do not print the code object tree")
	f.BoolVarP(&disasm, "disasm", "d", false, "print the disassembled machine code")
	f.BoolVar(&asJSON, "json", false, "print a JSON summary instead")
	return cmd
}

// codeSummary is the JSON view used by compile --json and diff.
type codeSummary struct {
	Key                  string   `json:"key"`
	Name                 string   `json:"name"`
	Kind                 string   `json:"kind"`
	InstructionSize      int      `json:"instruction_size"`
	SafepointTableOffset int      `json:"safepoint_table_offset"`
	StackSlots           int      `json:"stack_slots"`
	Disassembly          []string `json:"disassembly"`
	Safepoints           []string `json:"safepoints"`
	Relocations          []string `json:"relocations"`
	Literals             []string `json:"literals,omitempty"`
	DeoptEntries         []string `json:"deopt_entries,omitempty"`
}

func summarize(c *compiled) *codeSummary {
	code := c.code
	s := &codeSummary{
		Key:                  c.key.String(),
		Name:                 code.Name,
		Kind:                 code.Kind.String(),
		InstructionSize:      code.InstructionSize,
		SafepointTableOffset: code.SafepointTableOffset,
		StackSlots:           code.StackSlots,
		Disassembly:          strings.Split(strings.TrimSpace(x64.Disassemble(code.MachineCode())), "\n"),
	}
	if table, err := code.SafepointTable(); err == nil {
		for _, e := range table.Entries() {
			s.Safepoints = append(s.Safepoints, e.String())
		}
	}
	for _, r := range code.Relocations {
		target := fmt.Sprint(r.Data)
		if r.Object != nil {
			target = r.Object.String()
		}
		s.Relocations = append(s.Relocations, fmt.Sprintf("%d %s %s", r.Offset, r.Mode, target))
	}
	if d := code.DeoptimizationData; d != nil {
		for _, l := range d.LiteralArray {
			s.Literals = append(s.Literals, l.String())
		}
		for _, e := range d.Entries {
			s.DeoptEntries = append(s.DeoptEntries, fmt.Sprintf("ast_id=%d translation=%d", e.AstID, e.TranslationIndex))
		}
	}
	return s
}
