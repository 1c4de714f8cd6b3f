package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "chameleond",
	Short: "Chameleond drives the Chameleon board, a display-sink emulator " +
		"for automated conformance testing.",
	Long: `Chameleond drives the Chameleon board, an FPGA-backed test ` +
		`fixture that emulates a display sink (DisplayPort, HDMI, VGA) ` +
		`towards a device under test. It controls hotplug lines, EDID ` +
		`emulation, and the video capture pipeline.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
