package qasm

import (
	"fmt"
	"strings"

	"qdeck/circuit"
)

// Format writes c as OpenQASM 2.0 with a single qreg q and, when anything is
// measured, a creg c of the same width. Register r measures into c[r].
func Format(c *circuit.Circuit) string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.Registers())
	if len(c.MeasuredRegisters()) > 0 {
		fmt.Fprintf(&sb, "creg c[%d];\n", c.Registers())
	}
	sb.WriteString("\n")

	for m := range c.Moments() {
		for _, p := range m.Placements {
			writePlacement(&sb, p)
		}
	}
	return sb.String()
}

func writePlacement(sb *strings.Builder, p circuit.Placement) {
	regs := p.Registers()
	switch {
	case p.IsMeasurement():
		for _, r := range regs {
			fmt.Fprintf(sb, "measure q[%d] -> c[%d];\n", r, r)
		}
	case p.IsReset():
		fmt.Fprintf(sb, "reset q[%d];\n", regs[0])
	default:
		sb.WriteString(strings.ToLower(p.Gate.Name))
		if len(p.Gate.Params) > 0 {
			fmt.Fprintf(sb, "(%s)", formatParams(p.Gate.Params))
		}
		for i, r := range regs {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "q[%d]", r)
		}
		sb.WriteString(";\n")
	}
}
