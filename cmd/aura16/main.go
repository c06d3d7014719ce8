package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BySabri/aura16/pkg/asm"
	"github.com/BySabri/aura16/pkg/bench"
	"github.com/BySabri/aura16/pkg/cpu"
	"github.com/BySabri/aura16/pkg/isa"
)

var log = logrus.New()

func main() {
	rootCmd := &cobra.Command{
		Use:   "aura16",
		Short: "AURA16 assembler and five-stage pipelined CPU simulator",
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	cobra.OnInitialize(func() {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	})

	rootCmd.AddCommand(
		assembleCmd(),
		runCmd(),
		stepCmd(),
		disasmCmd(),
		benchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func assembleCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "assemble [file.asm]",
		Short: "Assemble a source file and print (or write) the machine words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "read %s", args[0])
			}
			prog, err := asm.Assemble(string(src))
			if err != nil {
				return errors.Wrap(err, "assemble")
			}

			log.WithFields(logrus.Fields{"file": args[0], "words": len(prog.Words)}).Debug("assembled")

			if output != "" {
				if err := os.WriteFile(output, []byte(strings.Join(prog.Hex, "\n")+"\n"), 0o644); err != nil {
					return errors.Wrapf(err, "write %s", output)
				}
				fmt.Printf("Wrote %d words to %s\n", len(prog.Hex), output)
				return nil
			}
			for addr, hex := range prog.Hex {
				fmt.Printf("%04d  %s  %s\n", addr, hex, prog.AddrToSource[addr])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write hex words to this file instead of stdout")
	return cmd
}

func runCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run [file.asm]",
		Short: "Assemble and run a program to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			cycles := c.RunAll()
			log.WithFields(logrus.Fields{"cycles": cycles, "halted": c.Halted}).Debug("run complete")

			state := c.State()
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(state)
			}
			printState(state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the final state as JSON")
	return cmd
}

func stepCmd() *cobra.Command {
	var cycles int
	cmd := &cobra.Command{
		Use:   "step [file.asm]",
		Short: "Step a program cycle by cycle, printing each cycle's snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			for i := 0; i < cycles; i++ {
				running := c.Step()
				state := c.State()
				fmt.Printf("cycle %d: IF=%s ID=%s EX=%s MEM=%s WB=%s\n",
					state.Cycle, state.IFID.Disasm, state.IDEX.Disasm,
					state.EXMEM.Disasm, state.MEMWB.Disasm, "")
				if state.StallInfo != nil {
					fmt.Printf("  stall: %s (%s)\n", state.StallInfo.Kind, state.StallInfo.Reason)
				}
				if state.ControlHazard != nil {
					fmt.Printf("  flush: %s -> %d\n", state.ControlHazard.Kind, state.ControlHazard.TargetAddress)
				}
				if !running {
					break
				}
			}
			printState(c.State())
			return nil
		},
	}
	cmd.Flags().IntVarP(&cycles, "cycles", "n", 20, "Maximum number of cycles to step")
	return cmd
}

func disasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm [hex-word...]",
		Short: "Disassemble one or more 4-hex-digit instruction words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, hex := range args {
				fmt.Printf("%s  %s\n", strings.ToUpper(hex), isa.DisassembleHex(hex))
			}
			return nil
		},
	}
}

func benchCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "bench [dir]",
		Short: "Assemble and run every .asm file in dir, reporting a sorted performance table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(args[0])
			if err != nil {
				return errors.Wrapf(err, "read directory %s", args[0])
			}

			var programs []bench.Program
			for _, e := range entries {
				if e.IsDir() || filepath.Ext(e.Name()) != ".asm" {
					continue
				}
				path := filepath.Join(args[0], e.Name())
				src, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrapf(err, "read %s", path)
				}
				programs = append(programs, bench.Program{Name: e.Name(), Source: string(src)})
			}
			if len(programs) == 0 {
				return fmt.Errorf("no .asm files found in %s", args[0])
			}

			r := bench.NewRunner(workers)
			r.RunAll(programs, log.IsLevelEnabled(logrus.DebugLevel))

			checked, failed := r.Stats()
			log.WithFields(logrus.Fields{"checked": checked, "failed": failed}).Info("bench complete")

			fmt.Printf("%-28s %8s %8s %8s %8s\n", "PROGRAM", "CYCLES", "CPI", "STALL%", "FWD%")
			for _, e := range r.Results.Entries() {
				if e.Err != nil {
					fmt.Printf("%-28s %8s\n", e.Name, "ERROR: "+e.Err.Error())
					continue
				}
				p := e.Performance
				fmt.Printf("%-28s %8d %8.2f %7.1f%% %7.1f%%\n", e.Name, p.Cycles, p.CPI, p.StallRate, p.ForwardRate)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Number of workers (0 = NumCPU)")
	return cmd
}

func loadProgram(path string) (*cpu.CPU, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	prog, err := asm.Assemble(string(src))
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}
	c := cpu.NewCPU()
	c.Load(prog.Words)
	return c, nil
}

func printState(s cpu.State) {
	fmt.Printf("PC=%d cycle=%d halted=%v\n", s.PC, s.Cycle, s.Halted)
	fmt.Print("registers:")
	for i, v := range s.Registers {
		fmt.Printf(" r%d=%d", i, v)
	}
	fmt.Println()
	fmt.Printf("performance: cycles=%d instructions=%d cpi=%.2f stall_rate=%.1f%% forward_rate=%.1f%% flushes=%d\n",
		s.Performance.Cycles, s.Performance.Instructions, s.Performance.CPI,
		s.Performance.StallRate, s.Performance.ForwardRate, s.Performance.FlushCount)
}
