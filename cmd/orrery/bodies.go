package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"solar-system-ai/internal/celestial"
)

var bodiesCmd = &cobra.Command{
	Use:   "bodies",
	Short: "List the bodies and their orbital parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		printBodies(cmd.OutOrStdout(), celestial.InitSolarSystemObjects())
		return nil
	},
}

// printBodies writes the registry as a table in orbit order
func printBodies(w io.Writer, bodies []celestial.Body) {
	fmt.Fprintf(w, "\n--- %s ---\n", "Planets")
	fmt.Fprintf(w, "%-10s | %-7s | %-12s | %-14s | %-14s | %s\n",
		"Name", "Radius", "Orbit radius", "Orbit (rad/t)", "Period (ticks)", "Says")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------------")

	for _, b := range bodies {
		period := math.Inf(1)
		if b.OrbitSpeed > 0 {
			period = 2 * math.Pi / b.OrbitSpeed
		}
		fmt.Fprintf(w, "%-10s | %7.1f | %12.1f | %14.4f | %14.0f | %s\n",
			b.Name,
			b.Radius,
			b.OrbitRadius,
			b.OrbitSpeed,
			period,
			celestial.CannedLine(b.Name))
	}
}
