package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ntm-sim/ntm-sim/sim"
	"github.com/ntm-sim/ntm-sim/sim/machine"
)

// readMachine loads a description from path, or from stdin when path is "-"
// or empty. An empty format is inferred from the extension, defaulting to text.
func readMachine(stdin io.Reader, path, format string, tableCfg sim.TableConfig) (*machine.Machine, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "text"
		}
	}

	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening machine description: %w", err)
		}
		defer f.Close()
		r = f
	}

	switch format {
	case "text":
		return machine.Parse(r, tableCfg)
	case "yaml":
		return machine.DecodeYAML(r, tableCfg)
	}
	return nil, fmt.Errorf("unknown format %q; valid: text, yaml", format)
}
