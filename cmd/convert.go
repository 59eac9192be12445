package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ntm-sim/ntm-sim/sim/machine"
)

var (
	convertMachinePath string
	convertFormat      string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a machine description between the text and YAML forms",
}

var convertYAMLCmd = &cobra.Command{
	Use:   "yaml",
	Short: "Write a machine description as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, nil)
		m, err := readMachine(cmd.InOrStdin(), convertMachinePath, convertFormat, cfg.TableConfig())
		if err != nil {
			logrus.Fatalf("convert yaml failed: %v", err)
		}
		writeMachine(cmd.OutOrStdout(), m, machine.EncodeYAML)
	},
}

var convertTextCmd = &cobra.Command{
	Use:   "text",
	Short: "Write a machine description in the tr / acc / max / run text form",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, nil)
		m, err := readMachine(cmd.InOrStdin(), convertMachinePath, convertFormat, cfg.TableConfig())
		if err != nil {
			logrus.Fatalf("convert text failed: %v", err)
		}
		writeMachine(cmd.OutOrStdout(), m, machine.Format)
	},
}

func writeMachine(w io.Writer, m *machine.Machine, encode func(io.Writer, *machine.Machine) error) {
	if err := encode(w, m); err != nil {
		logrus.Fatalf("Failed to write machine description: %v", err)
	}
}

func init() {
	for _, c := range []*cobra.Command{convertYAMLCmd, convertTextCmd} {
		c.Flags().StringVar(&convertMachinePath, "machine", "-", "Machine description file (- for stdin)")
		c.Flags().StringVar(&convertFormat, "format", "", "Input format: text or yaml (default: by file extension)")
		convertCmd.AddCommand(c)
	}
	rootCmd.AddCommand(convertCmd)
}
